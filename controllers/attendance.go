package controllers

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/services/websocket"
	"udaan_go/utils"
)

type AttendanceController struct {
	attendance *services.AttendanceService
	reports    *services.ReportService
	publisher  services.EventPublisher
}

func NewAttendanceController(attendance *services.AttendanceService, reports *services.ReportService, publisher services.EventPublisher) *AttendanceController {
	return &AttendanceController{attendance: attendance, reports: reports, publisher: publisher}
}

type markAttendanceRequest struct {
	Date   string                  `json:"date"`
	Status models.AttendanceStatus `json:"status"`
}

// GetAttendance returns studentId -> status for ?date= (default today)
func (ac *AttendanceController) GetAttendance(c *fiber.Ctx) error {
	date := c.Query("date", utils.TodayString())
	marks, err := ac.attendance.ForDate(c.UserContext(), date)
	if err != nil {
		return respondError(c, err, "Failed to fetch attendance")
	}
	return c.JSON(fiber.Map{"date": date, "attendance": marks})
}

func (ac *AttendanceController) MarkAttendance(c *fiber.Ctx) error {
	var req markAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Date == "" {
		req.Date = utils.TodayString()
	}
	rec, err := ac.attendance.Mark(c.UserContext(), c.Params("studentId"), req.Date, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to mark attendance")
	}
	ac.publish(rec.Date, 1)
	return c.JSON(fiber.Map{"attendance": rec})
}

// MarkAll gives every student the same status for a date
func (ac *AttendanceController) MarkAll(c *fiber.Ctx) error {
	var req markAttendanceRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Date == "" {
		req.Date = utils.TodayString()
	}
	n, err := ac.attendance.MarkAll(c.UserContext(), req.Date, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to mark attendance")
	}
	ac.publish(req.Date, n)
	return c.JSON(fiber.Map{"message": "Attendance marked", "date": req.Date, "marked": n})
}

func (ac *AttendanceController) GetStats(c *fiber.Ctx) error {
	stats, err := ac.attendance.Stats(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to compute attendance stats")
	}
	return c.JSON(fiber.Map{"stats": stats})
}

// Analyze asks the AI service for an analysis of all attendance
func (ac *AttendanceController) Analyze(c *fiber.Ctx) error {
	report, err := ac.reports.AttendanceAnalysis(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to analyse attendance")
	}
	return c.JSON(fiber.Map{"report": report})
}

func (ac *AttendanceController) publish(date string, marked int) {
	if ac.publisher == nil {
		return
	}
	ac.publisher.Publish(websocket.EventAttendanceMarked, fiber.Map{"date": date, "marked": marked})
}
