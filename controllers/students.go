package controllers

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/services/websocket"
	"udaan_go/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type StudentController struct {
	students  *services.StudentService
	exports   *services.ExportService
	reports   *services.ReportService
	publisher services.EventPublisher
}

func NewStudentController(students *services.StudentService, exports *services.ExportService, reports *services.ReportService, publisher services.EventPublisher) *StudentController {
	return &StudentController{students: students, exports: exports, reports: reports, publisher: publisher}
}

// GetStudents returns every student matching search, class and section
func (sc *StudentController) GetStudents(c *fiber.Ctx) error {
	students, err := sc.students.List(c.UserContext(), services.StudentFilter{
		Search:    c.Query("search"),
		ClassName: c.Query("class"),
		Section:   c.Query("section"),
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch students")
	}
	return c.JSON(fiber.Map{"students": students, "total": len(students)})
}

func (sc *StudentController) GetStudent(c *fiber.Ctx) error {
	student, err := sc.students.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to fetch student")
	}
	return c.JSON(fiber.Map{"student": student})
}

// NextRollNo previews the roll number the next registration will get
func (sc *StudentController) NextRollNo(c *fiber.Ctx) error {
	next, err := sc.students.NextRollNo(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to compute roll number")
	}
	return c.JSON(fiber.Map{"rollNo": next})
}

func (sc *StudentController) CreateStudent(c *fiber.Ctx) error {
	var req models.Student
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	student, err := sc.students.Create(c.UserContext(), req)
	if err != nil {
		return respondError(c, err, "Failed to create student")
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Student registered successfully",
		"student": student,
	})
}

func (sc *StudentController) UpdateStudent(c *fiber.Ctx) error {
	var req models.Student
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	student, err := sc.students.Update(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, err, "Failed to update student")
	}
	return c.JSON(fiber.Map{
		"message": "Student updated successfully",
		"student": student,
	})
}

// DeleteStudent removes the student with every fee, attendance and exam record
func (sc *StudentController) DeleteStudent(c *fiber.Ctx) error {
	res, err := sc.students.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to delete student")
	}
	if sc.publisher != nil {
		sc.publisher.Publish(websocket.EventStudentDeleted, res)
	}
	return c.JSON(fiber.Map{
		"message": "Student deleted successfully",
		"deleted": res,
	})
}

// ExportStudents downloads the directory as csv (default) or xlsx
func (sc *StudentController) ExportStudents(c *fiber.Ctx) error {
	date := utils.TodayString()
	switch format := c.Query("format", "csv"); format {
	case "csv":
		var buf bytes.Buffer
		if _, err := sc.exports.StudentsCSV(c.UserContext(), &buf); err != nil {
			return respondError(c, err, "Failed to export students")
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Attachment(fmt.Sprintf("students_export_%s.csv", date))
		return c.Send(buf.Bytes())
	case "xlsx":
		buf, err := sc.exports.StudentsXLSX(c.UserContext())
		if err != nil {
			return respondError(c, err, "Failed to export students")
		}
		c.Set(fiber.HeaderContentType, xlsxContentType)
		c.Attachment(fmt.Sprintf("students_export_%s.xlsx", date))
		return c.Send(buf.Bytes())
	default:
		return badRequest(c, "format must be csv or xlsx")
	}
}

// ImportStudents registers students from an uploaded csv or xlsx "file"
func (sc *StudentController) ImportStudents(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return badRequest(c, "cannot open file")
	}
	defer file.Close()

	res, err := sc.exports.ImportStudents(c.UserContext(), fileHeader.Filename, file)
	if err != nil {
		return respondError(c, err, "Failed to import students")
	}
	return c.JSON(fiber.Map{"success": res.Failed == 0, "result": res})
}

// GenerateReport asks the AI service for a report-card paragraph
func (sc *StudentController) GenerateReport(c *fiber.Ctx) error {
	report, err := sc.reports.StudentReport(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err, "Failed to generate report")
	}
	return c.JSON(fiber.Map{"report": report})
}
