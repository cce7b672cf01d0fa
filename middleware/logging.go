package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberutils "github.com/gofiber/fiber/v2/utils"
	"github.com/sirupsen/logrus"

	"udaan_go/models"
)

// LoggerMiddleware logs HTTP requests
func LoggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start)
		status := c.Response().StatusCode()

		entry := logrus.WithFields(logrus.Fields{
			"method":     c.Method(),
			"path":       c.Path(),
			"status":     status,
			"duration":   duration.String(),
			"ip":         c.IP(),
			"user_agent": c.Get("User-Agent"),
		})
		if status >= fiber.StatusInternalServerError {
			entry.Warn("HTTP Request")
		} else {
			entry.Info("HTTP Request")
		}

		return err
	}
}

// ActivityRecorder persists audit entries.
type ActivityRecorder interface {
	Record(ctx context.Context, entry models.ActivityLog) (models.ActivityLog, error)
}

// LogActivityMiddleware records successful mutating requests.
func LogActivityMiddleware(recorder ActivityRecorder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// GET requests and auth endpoints are not audited
		if c.Method() == fiber.MethodGet || strings.Contains(c.Path(), "/auth/") {
			return c.Next()
		}

		err := c.Next()

		var action string
		switch c.Method() {
		case fiber.MethodPost:
			action = "CREATE"
		case fiber.MethodPut, fiber.MethodPatch:
			action = "UPDATE"
		case fiber.MethodDelete:
			action = "DELETE"
		default:
			return err
		}

		status := c.Response().StatusCode()
		if err != nil || status >= fiber.StatusBadRequest {
			return err
		}

		// assumes /api/{resource}/{id}/...
		pathParts := strings.Split(strings.Trim(c.Path(), "/"), "/")
		var resource, resourceID string
		if len(pathParts) >= 2 {
			resource = pathParts[1]
		}
		if len(pathParts) >= 3 {
			resourceID = pathParts[2]
		}

		// fiber reuses request buffers once the handler returns
		entry := models.ActivityLog{
			Action:     action,
			Resource:   fiberutils.CopyString(resource),
			ResourceID: fiberutils.CopyString(resourceID),
			Username:   CurrentUsername(c),
			IPAddress:  fiberutils.CopyString(c.IP()),
			UserAgent:  fiberutils.CopyString(c.Get("User-Agent")),
			Status:     status,
		}
		if _, logErr := recorder.Record(c.UserContext(), entry); logErr != nil {
			logrus.WithError(logErr).Warn("Failed to record activity log")
		}
		return err
	}
}
