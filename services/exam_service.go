package services

import (
	"context"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

// PassMark is the minimum marks counted as a pass.
const PassMark = 40

var (
	errInvalidExamType = errors.New("exam type must be Mid-Term or Final")
	errInvalidSubject  = errors.New("unknown subject")
	errMarksOutOfRange = errors.New("marks must be between 0 and 100")
)

// ExamService stores marks per student, exam and subject.
type ExamService struct {
	store    database.Store
	students *StudentService
}

func NewExamService(store database.Store, students *StudentService) *ExamService {
	return &ExamService{store: store, students: students}
}

// ExamRow is a student's line in a marks sheet; Result is nil when unmarked.
type ExamRow struct {
	Student utils.StudentShort `json:"student"`
	Result  *models.ExamResult `json:"result,omitempty"`
	Grade   string             `json:"grade,omitempty"`
}

// Grade converts marks out of 100 to a letter grade.
func Grade(marks float64) string {
	switch {
	case marks >= 90:
		return "A+"
	case marks >= 80:
		return "A"
	case marks >= 70:
		return "B"
	case marks >= 60:
		return "C"
	case marks >= PassMark:
		return "D"
	default:
		return "F"
	}
}

// PassRate is the rounded percentage of results at or above PassMark.
func PassRate(results []models.ExamResult) int {
	if len(results) == 0 {
		return 0
	}
	passed := 0
	for _, r := range results {
		if r.MarksObtained >= PassMark {
			passed++
		}
	}
	return int(math.Round(float64(passed) / float64(len(results)) * 100))
}

func validateExam(examType models.ExamType, subject string) error {
	if !examType.Valid() {
		return utils.NewValidationError(errInvalidExamType,
			utils.FieldError{Field: "examType", Error: errInvalidExamType.Error()})
	}
	if !models.IsSubject(subject) {
		return utils.NewValidationError(errInvalidSubject,
			utils.FieldError{Field: "subject", Error: fmt.Sprintf("%s %q", errInvalidSubject, subject)})
	}
	return nil
}

// SaveMarks stores marks for (examType, subject), keyed by student id.
// Every entry is validated before anything is written.
func (s *ExamService) SaveMarks(ctx context.Context, examType models.ExamType, subject string, marks map[string]float64) ([]models.ExamResult, error) {
	if err := validateExam(examType, subject); err != nil {
		return nil, err
	}
	s.students.writes.Lock()
	defer s.students.writes.Unlock()

	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(students))
	for _, st := range students {
		known[st.ID] = true
	}

	var fields []utils.FieldError
	for id, m := range marks {
		switch {
		case !known[id]:
			fields = append(fields, utils.FieldError{Field: "marks." + id, Error: "unknown student"})
		case m < 0 || m > models.MaxMarks || math.IsNaN(m):
			fields = append(fields, utils.FieldError{Field: "marks." + id, Error: errMarksOutOfRange.Error()})
		}
	}
	if len(fields) > 0 {
		return nil, utils.NewValidationError(errMarksOutOfRange, fields...)
	}

	saved := make([]models.ExamResult, 0, len(marks))
	for _, st := range students {
		m, ok := marks[st.ID]
		if !ok {
			continue
		}
		res := models.ExamResult{
			ID:            models.ExamResultID(st.ID, examType, subject),
			StudentID:     st.ID,
			ExamType:      examType,
			Subject:       subject,
			MarksObtained: m,
			TotalMarks:    models.MaxMarks,
		}
		if err := database.Put(ctx, s.store, database.Exams, res); err != nil {
			return nil, errors.Wrap(err, "saving exam result")
		}
		saved = append(saved, res)
	}
	return saved, nil
}

// Sheet lists every student with their result for (examType, subject).
func (s *ExamService) Sheet(ctx context.Context, examType models.ExamType, subject string) ([]ExamRow, error) {
	if err := validateExam(examType, subject); err != nil {
		return nil, err
	}
	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return nil, err
	}
	results, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.ExamResult, len(results))
	for _, r := range results {
		byID[r.ID] = r
	}
	rows := make([]ExamRow, 0, len(students))
	for _, st := range students {
		row := ExamRow{Student: utils.ToStudentShort(st)}
		if r, ok := byID[models.ExamResultID(st.ID, examType, subject)]; ok {
			r := r
			row.Result = &r
			row.Grade = Grade(r.MarksObtained)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Results returns every stored exam result.
func (s *ExamService) Results(ctx context.Context) ([]models.ExamResult, error) {
	all, err := database.List[models.ExamResult](ctx, s.store, database.Exams)
	if err != nil {
		return nil, errors.Wrap(err, "listing exam results")
	}
	return all, nil
}

// ResultsForStudent returns the stored results of one student.
func (s *ExamService) ResultsForStudent(ctx context.Context, studentID string) ([]models.ExamResult, error) {
	all, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ExamResult, 0)
	for _, r := range all {
		if r.StudentID == studentID {
			out = append(out, r)
		}
	}
	return out, nil
}
