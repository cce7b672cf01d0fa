package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"udaan_go/middleware"
	"udaan_go/models"
	"udaan_go/utils"
)

// AuthConfig is the single administrator credential and token settings.
type AuthConfig struct {
	AdminUsername     string
	AdminPasswordHash string
	JWTSecret         string
	JWTExpiresIn      time.Duration
}

type AuthController struct {
	cfg       AuthConfig
	blacklist middleware.TokenBlacklist
	activity  middleware.ActivityRecorder
}

func NewAuthController(cfg AuthConfig, blacklist middleware.TokenBlacklist, activity middleware.ActivityRecorder) *AuthController {
	return &AuthController{cfg: cfg, blacklist: blacklist, activity: activity}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login checks the administrator credential and returns a JWT token
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := utils.ValidateStruct(req); err != nil {
		return respondError(c, err, "Invalid request body")
	}

	if req.Username != ac.cfg.AdminUsername || utils.CheckPassword(req.Password, ac.cfg.AdminPasswordHash) != nil {
		logrus.WithFields(logrus.Fields{"username": req.Username, "ip": c.IP()}).Warn("Failed login attempt")
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := middleware.GenerateToken(req.Username, middleware.RoleAdmin, ac.cfg.JWTSecret, ac.cfg.JWTExpiresIn)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to generate token",
		})
	}

	ac.record(c, "LOGIN", req.Username)

	return c.JSON(fiber.Map{
		"message":    "Login successful",
		"token":      token,
		"expires_in": int(ac.cfg.JWTExpiresIn.Seconds()),
		"user": fiber.Map{
			"username": req.Username,
			"role":     middleware.RoleAdmin,
		},
	})
}

// Logout revokes the current token until it would have expired
func (ac *AuthController) Logout(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	token, _ := c.Locals("token").(string)

	if ac.blacklist != nil && token != "" {
		ttl := ac.cfg.JWTExpiresIn
		if claims.ExpiresAt != nil {
			ttl = time.Until(claims.ExpiresAt.Time)
		}
		if ttl > 0 {
			if err := ac.blacklist.Revoke(c.UserContext(), token, ttl); err != nil {
				// logout still succeeds on the client side
				logrus.WithError(err).Warn("Failed to revoke token")
			}
		}
	}

	ac.record(c, "LOGOUT", claims.Username)
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// Me returns the authenticated user
func (ac *AuthController) Me(c *fiber.Ctx) error {
	claims, err := middleware.GetCurrentClaims(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"user": fiber.Map{"username": claims.Username, "role": claims.Role},
	})
}

func (ac *AuthController) record(c *fiber.Ctx, action, username string) {
	if ac.activity == nil {
		return
	}
	_, err := ac.activity.Record(c.UserContext(), models.ActivityLog{
		Action:    action,
		Resource:  "auth",
		Username:  username,
		IPAddress: c.IP(),
		UserAgent: c.Get("User-Agent"),
		Status:    fiber.StatusOK,
	})
	if err != nil {
		logrus.WithError(err).Warn("Failed to record auth activity")
	}
}
