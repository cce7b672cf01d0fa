package controllers

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/utils"
)

type TeacherController struct {
	teachers *services.TeacherService
}

func NewTeacherController(teachers *services.TeacherService) *TeacherController {
	return &TeacherController{teachers: teachers}
}

func (tc *TeacherController) GetTeachers(c *fiber.Ctx) error {
	teachers, err := tc.teachers.List(c.UserContext(), c.Query("search"))
	if err != nil {
		return respondError(c, err, "Failed to fetch teachers")
	}
	return c.JSON(fiber.Map{"teachers": teachers, "total": len(teachers)})
}

func (tc *TeacherController) GetTeacher(c *fiber.Ctx) error {
	teacher, err := tc.teachers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch teacher")
	}
	return c.JSON(fiber.Map{"teacher": teacher})
}

func (tc *TeacherController) CreateTeacher(c *fiber.Ctx) error {
	var req models.Teacher
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	teacher, err := tc.teachers.Create(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to create teacher")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Teacher created successfully",
		"teacher": teacher,
	})
}

func (tc *TeacherController) UpdateTeacher(c *fiber.Ctx) error {
	var req models.Teacher
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	teacher, err := tc.teachers.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, err, "Failed to update teacher")
	}
	return c.JSON(fiber.Map{
		"message": "Teacher updated successfully",
		"teacher": teacher,
	})
}

func (tc *TeacherController) DeleteTeacher(c *fiber.Ctx) error {
	if err := tc.teachers.Delete(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, err, "Failed to delete teacher")
	}
	return c.JSON(fiber.Map{"message": "Teacher deleted successfully"})
}

// GetAttendance lists every teacher with the mark for ?date= (default today)
func (tc *TeacherController) GetAttendance(c *fiber.Ctx) error {
	date := c.Query("date", utils.TodayString())
	rows, err := tc.teachers.AttendanceForDate(c.UserContext(), date)
	if err != nil {
		return respondError(c, err, "Failed to fetch teacher attendance")
	}
	return c.JSON(fiber.Map{"date": date, "attendance": rows})
}

type markTeacherRequest struct {
	Date   string                         `json:"date"`
	Status models.TeacherAttendanceStatus `json:"status"`
}

func (tc *TeacherController) MarkAttendance(c *fiber.Ctx) error {
	var req markTeacherRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if req.Date == "" {
		req.Date = utils.TodayString()
	}
	rec, err := tc.teachers.MarkAttendance(c.UserContext(), c.Params("id"), req.Date, req.Status)
	if err != nil {
		return respondError(c, err, "Failed to mark teacher attendance")
	}
	return c.JSON(fiber.Map{"attendance": rec})
}
