package controllers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"udaan_go/services"
)

type LogController struct {
	logs *services.ActivityLogService
}

func NewLogController(logs *services.ActivityLogService) *LogController {
	return &LogController{logs: logs}
}

// GetLogs retrieves recent activity logs with filters
func (lc *LogController) GetLogs(c *fiber.Ctx) error {
	limit, _ := strconv.Atoi(c.Query("limit", "50"))
	if limit < 1 || limit > 500 {
		limit = 50
	}

	logs, err := lc.logs.Recent(c.UserContext(), services.LogFilter{
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
		Username: c.Query("username"),
		Limit:    limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to retrieve logs")
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"total": len(logs),
		"limit": limit,
	})
}

// GetLogStats provides per action and resource counts
func (lc *LogController) GetLogStats(c *fiber.Ctx) error {
	stats, err := lc.logs.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to compute log stats")
	}
	return c.JSON(stats)
}

// DeleteOldLogs removes logs older than ?days= (default 30)
func (lc *LogController) DeleteOldLogs(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "30"))
	if err != nil || days < 1 {
		return badRequest(c, "Invalid days parameter")
	}

	retention := time.Duration(days) * 24 * time.Hour
	n, err := lc.logs.Prune(c.UserContext(), retention)
	if err != nil {
		return respondError(c, err, "Failed to delete old logs")
	}
	return c.JSON(fiber.Map{
		"message":       "Old logs deleted successfully",
		"deleted_count": n,
		"cutoff_date":   time.Now().Add(-retention),
	})
}
