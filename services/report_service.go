package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"udaan_go/models"
)

const (
	MsgMissingAPIKey     = "API Key is missing. Please configure the environment."
	msgReportFailed      = "Error communicating with AI service. Please try again later."
	msgReportEmpty       = "No report generated."
	msgAnalysisFailed    = "Error generating AI analysis."
	msgAnalysisEmpty     = "Analysis failed."
	dailySampleSize      = 5
	studentReportTemp    = 0.7
	attendanceReportTemp = 0.5
)

const studentReportInstruction = "You are an expert academic counselor for '%s'. Analyze the student data provided " +
	"(Grades and Attendance) and write a professional, encouraging, 1-paragraph performance summary suitable for a " +
	"report card. Highlight strengths and suggest areas for improvement politely."

const attendanceInstruction = "You are a school administrator analyst. Provide a concise 3-bullet point analysis of " +
	"the attendance data: 1) Overall Health, 2) Specific Observation, 3) Actionable Suggestion."

// Report is generated prose. Generated is false when a fixed fallback text was returned.
type Report struct {
	Text      string `json:"text"`
	Generated bool   `json:"generated"`
}

// ReportService builds prompts from stored data and asks the generator for prose.
type ReportService struct {
	students   *StudentService
	exams      *ExamService
	attendance *AttendanceService
	settings   *SettingsService
	generator  Generator
}

func NewReportService(students *StudentService, exams *ExamService, attendance *AttendanceService, settings *SettingsService, generator Generator) *ReportService {
	return &ReportService{
		students:   students,
		exams:      exams,
		attendance: attendance,
		settings:   settings,
		generator:  generator,
	}
}

// StudentReport writes a report-card paragraph for one student.
func (s *ReportService) StudentReport(ctx context.Context, studentID string) (Report, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	if s.generator == nil || !s.generator.Configured() {
		return Report{Text: MsgMissingAPIKey}, nil
	}
	exams, err := s.exams.ResultsForStudent(ctx, studentID)
	if err != nil {
		return Report{}, err
	}
	all, err := s.attendance.Records(ctx)
	if err != nil {
		return Report{}, err
	}
	attendance := make([]models.AttendanceRecord, 0)
	for _, a := range all {
		if a.StudentID == studentID {
			attendance = append(attendance, a)
		}
	}

	settings, err := s.settings.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Using default school name for report")
	}

	text, err := s.generator.Generate(ctx, GenerateRequest{
		SystemInstruction: fmt.Sprintf(studentReportInstruction, settings.SchoolName),
		Prompt:            studentPrompt(st, exams, attendance),
		Temperature:       studentReportTemp,
	})
	if err != nil {
		logrus.WithError(err).WithField("student_id", studentID).Error("Student report generation failed")
		return Report{Text: msgReportFailed}, nil
	}
	if text == "" {
		return Report{Text: msgReportEmpty}, nil
	}
	return Report{Text: text, Generated: true}, nil
}

// AttendanceAnalysis writes a three-point analysis of every attendance record.
func (s *ReportService) AttendanceAnalysis(ctx context.Context) (Report, error) {
	if s.generator == nil || !s.generator.Configured() {
		return Report{Text: MsgMissingAPIKey}, nil
	}
	records, err := s.attendance.Records(ctx)
	if err != nil {
		return Report{}, err
	}
	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return Report{}, err
	}

	text, err := s.generator.Generate(ctx, GenerateRequest{
		SystemInstruction: attendanceInstruction,
		Prompt:            attendancePrompt(records, len(students)),
		Temperature:       attendanceReportTemp,
	})
	if err != nil {
		logrus.WithError(err).Error("Attendance analysis generation failed")
		return Report{Text: msgAnalysisFailed}, nil
	}
	if text == "" {
		return Report{Text: msgAnalysisEmpty}, nil
	}
	return Report{Text: text, Generated: true}, nil
}

func studentPrompt(st models.Student, exams []models.ExamResult, attendance []models.AttendanceRecord) string {
	academic := "No exam records available."
	if len(exams) > 0 {
		lines := make([]string, 0, len(exams))
		for _, e := range exams {
			lines = append(lines, fmt.Sprintf("- %s (%s): %g/%d", e.Subject, e.ExamType, e.MarksObtained, e.TotalMarks))
		}
		academic = strings.Join(lines, "\n")
	}

	summary := "No attendance records available."
	if len(attendance) > 0 {
		stats := summarizeAttendance(attendance)
		summary = fmt.Sprintf("Total Records: %d, Present: %d, Absent: %d", stats.Total, stats.Present, stats.Absent)
	}

	return fmt.Sprintf("Student Name: %s\nClass: %s-%s\n\nAcademic Performance:\n%s\n\nAttendance Overview:\n%s\n",
		st.FullName, st.ClassName, st.Section, academic, summary)
}

type dayCount struct {
	P int `json:"P"`
	A int `json:"A"`
}

func attendancePrompt(records []models.AttendanceRecord, totalStudents int) string {
	stats := summarizeAttendance(records)

	// dates in order of first appearance
	order := make([]string, 0)
	days := make(map[string]*dayCount)
	for _, r := range records {
		d, ok := days[r.Date]
		if !ok {
			d = &dayCount{}
			days[r.Date] = d
			order = append(order, r.Date)
		}
		switch r.Status {
		case models.AttendancePresent:
			d.P++
		case models.AttendanceAbsent:
			d.A++
		}
	}
	if len(order) > dailySampleSize {
		order = order[:dailySampleSize]
	}
	sample := make([][2]interface{}, 0, len(order))
	for _, date := range order {
		sample = append(sample, [2]interface{}{date, days[date]})
	}
	sampleJSON, _ := json.Marshal(sample)

	return fmt.Sprintf("Total Records Scanned: %d\nTotal Students in DB: %d\n\nSummary:\n- Present: %d\n- Absent: %d\n- Late: %d\n\nDaily Breakdown (Sample):\n%s\n",
		len(records), totalStudents, stats.Present, stats.Absent, stats.Late, sampleJSON)
}
