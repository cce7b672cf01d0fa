package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"udaan_go/database"
	"udaan_go/utils"
)

// respondError maps service errors to status codes: validation 400,
// missing records 404, store failures 503 and anything else 500 with fallback.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	if ve, ok := utils.AsValidationError(err); ok {
		fields := ve.Fields
		if fields == nil {
			fields = []utils.FieldError{}
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":  ve.Error(),
			"fields": fields,
		})
	}
	if utils.IsNotFound(err) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}

	entry := logrus.WithError(err).WithFields(logrus.Fields{"method": c.Method(), "path": c.Path()})
	if database.IsStorageError(err) {
		entry.Error("Record store failure")
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Storage is unavailable, please retry"})
	}
	entry.Error(fallback)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": fallback})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
