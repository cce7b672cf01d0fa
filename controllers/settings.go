package controllers

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/services"
)

type SettingsController struct {
	service *services.SettingsService
}

func NewSettingsController(service *services.SettingsService) *SettingsController {
	return &SettingsController{service: service}
}

func (sc *SettingsController) GetSettings(c *fiber.Ctx) error {
	settings, err := sc.service.Get(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to load settings")
	}
	return c.JSON(fiber.Map{"settings": settings})
}

// UpdateSettings changes only the fields present in the body
func (sc *SettingsController) UpdateSettings(c *fiber.Ctx) error {
	var req services.UpdateSettingsInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	settings, err := sc.service.Update(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to update settings")
	}
	return c.JSON(fiber.Map{
		"message":  "Settings updated successfully",
		"settings": settings,
	})
}
