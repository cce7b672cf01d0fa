package controllers

import (
	"github.com/gofiber/fiber/v2"

	"udaan_go/models"
	"udaan_go/services"
)

type ExamController struct {
	exams *services.ExamService
}

func NewExamController(exams *services.ExamService) *ExamController {
	return &ExamController{exams: exams}
}

// GetSheet lists every student with marks for ?exam_type=&subject=
func (ec *ExamController) GetSheet(c *fiber.Ctx) error {
	examType := models.ExamType(c.Query("exam_type", string(models.ExamMidTerm)))
	subject := c.Query("subject", models.Subjects[0])

	rows, err := ec.exams.Sheet(c.UserContext(), examType, subject)
	if err != nil {
		return respondError(c, err, "Failed to fetch exam results")
	}
	results := make([]models.ExamResult, 0, len(rows))
	for _, r := range rows {
		if r.Result != nil {
			results = append(results, *r.Result)
		}
	}
	return c.JSON(fiber.Map{
		"examType": examType,
		"subject":  subject,
		"rows":     rows,
		"passRate": services.PassRate(results),
	})
}

type saveMarksRequest struct {
	ExamType models.ExamType    `json:"examType"`
	Subject  string             `json:"subject"`
	Marks    map[string]float64 `json:"marks"`
}

// SaveMarks stores marks in bulk, keyed by student id
func (ec *ExamController) SaveMarks(c *fiber.Ctx) error {
	var req saveMarksRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Marks) == 0 {
		return badRequest(c, "marks are required")
	}
	saved, err := ec.exams.SaveMarks(c.UserContext(), req.ExamType, req.Subject, req.Marks)
	if err != nil {
		return respondError(c, err, "Failed to save marks")
	}
	return c.JSON(fiber.Map{"message": "Marks saved", "saved": len(saved), "results": saved})
}
