package controllers

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/services"
)

type DashboardController struct {
	dashboard *services.DashboardService
}

func NewDashboardController(dashboard *services.DashboardService) *DashboardController {
	return &DashboardController{dashboard: dashboard}
}

func (dc *DashboardController) GetStats(c *fiber.Ctx) error {
	stats, err := dc.dashboard.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to compute dashboard stats")
	}
	return c.JSON(fiber.Map{"stats": stats})
}
