package services

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

var (
	errInvalidDate             = errors.New("date must be YYYY-MM-DD")
	errInvalidAttendanceStatus = errors.New("status must be Present, Absent, Late or Excused")
)

// AttendanceService marks and summarises daily student attendance.
type AttendanceService struct {
	store    database.Store
	students *StudentService
}

func NewAttendanceService(store database.Store, students *StudentService) *AttendanceService {
	return &AttendanceService{store: store, students: students}
}

// DailyAttendance is the present/absent breakdown of one date.
type DailyAttendance struct {
	Date    string `json:"date"`
	Present int    `json:"present"`
	Absent  int    `json:"absent"`
}

// AttendanceStats aggregates every stored attendance record.
type AttendanceStats struct {
	Total   int               `json:"total"`
	Present int               `json:"present"`
	Absent  int               `json:"absent"`
	Late    int               `json:"late"`
	Excused int               `json:"excused"`
	Daily   []DailyAttendance `json:"daily"`
}

func validateMark(date string, status models.AttendanceStatus) error {
	if _, err := utils.ParseDate(date); err != nil {
		return utils.NewValidationError(errInvalidDate, utils.FieldError{Field: "date", Error: errInvalidDate.Error()})
	}
	if !status.Valid() {
		return utils.NewValidationError(errInvalidAttendanceStatus,
			utils.FieldError{Field: "status", Error: errInvalidAttendanceStatus.Error()})
	}
	return nil
}

// Mark records a student's status for date, overwriting an earlier mark.
func (s *AttendanceService) Mark(ctx context.Context, studentID, date string, status models.AttendanceStatus) (models.AttendanceRecord, error) {
	if err := validateMark(date, status); err != nil {
		return models.AttendanceRecord{}, err
	}
	s.students.writes.Lock()
	defer s.students.writes.Unlock()

	if _, err := s.students.Get(ctx, studentID); err != nil {
		return models.AttendanceRecord{}, err
	}
	rec := models.AttendanceRecord{
		ID:        models.AttendanceID(studentID, date),
		StudentID: studentID,
		Date:      date,
		Status:    status,
	}
	if err := database.Put(ctx, s.store, database.Attendance, rec); err != nil {
		return models.AttendanceRecord{}, errors.Wrap(err, "saving attendance")
	}
	return rec, nil
}

// MarkAll gives every student the same status for date and returns how many were marked.
func (s *AttendanceService) MarkAll(ctx context.Context, date string, status models.AttendanceStatus) (int, error) {
	if err := validateMark(date, status); err != nil {
		return 0, err
	}
	s.students.writes.Lock()
	defer s.students.writes.Unlock()

	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return 0, err
	}
	for _, st := range students {
		rec := models.AttendanceRecord{
			ID:        models.AttendanceID(st.ID, date),
			StudentID: st.ID,
			Date:      date,
			Status:    status,
		}
		if err := database.Put(ctx, s.store, database.Attendance, rec); err != nil {
			return 0, errors.Wrap(err, "saving attendance")
		}
	}
	return len(students), nil
}

// ForDate maps student id to status for every mark on date.
func (s *AttendanceService) ForDate(ctx context.Context, date string) (map[string]models.AttendanceStatus, error) {
	if _, err := utils.ParseDate(date); err != nil {
		return nil, utils.NewValidationError(errInvalidDate, utils.FieldError{Field: "date", Error: errInvalidDate.Error()})
	}
	all, err := database.List[models.AttendanceRecord](ctx, s.store, database.Attendance)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}
	out := make(map[string]models.AttendanceStatus)
	for _, r := range all {
		if r.Date == date {
			out[r.StudentID] = r.Status
		}
	}
	return out, nil
}

// Records returns every stored attendance record.
func (s *AttendanceService) Records(ctx context.Context) ([]models.AttendanceRecord, error) {
	all, err := database.List[models.AttendanceRecord](ctx, s.store, database.Attendance)
	if err != nil {
		return nil, errors.Wrap(err, "listing attendance")
	}
	return all, nil
}

// Stats counts statuses overall and per date, dates ascending.
func (s *AttendanceService) Stats(ctx context.Context) (AttendanceStats, error) {
	all, err := s.Records(ctx)
	if err != nil {
		return AttendanceStats{}, err
	}
	return summarizeAttendance(all), nil
}

func summarizeAttendance(all []models.AttendanceRecord) AttendanceStats {
	stats := AttendanceStats{Total: len(all)}
	daily := make(map[string]*DailyAttendance)
	for _, r := range all {
		day, ok := daily[r.Date]
		if !ok {
			day = &DailyAttendance{Date: r.Date}
			daily[r.Date] = day
		}
		switch r.Status {
		case models.AttendancePresent:
			stats.Present++
			day.Present++
		case models.AttendanceAbsent:
			stats.Absent++
			day.Absent++
		case models.AttendanceLate:
			stats.Late++
		case models.AttendanceExcused:
			stats.Excused++
		default:
			// unknown statuses from older data are counted in Total only
		}
	}
	stats.Daily = make([]DailyAttendance, 0, len(daily))
	for _, day := range daily {
		stats.Daily = append(stats.Daily, *day)
	}
	sort.Slice(stats.Daily, func(i, j int) bool { return stats.Daily[i].Date < stats.Daily[j].Date })
	return stats
}
