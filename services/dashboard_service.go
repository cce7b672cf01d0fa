package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

// GenderStats counts students per gender; Other is reported separately.
type GenderStats struct {
	Male   int `json:"male"`
	Female int `json:"female"`
	Other  int `json:"other"`
}

// DashboardStats is the landing page summary.
type DashboardStats struct {
	TotalStudents   int             `json:"totalStudents"`
	TotalTeachers   int             `json:"totalTeachers"`
	TotalRevenue    decimal.Decimal `json:"totalRevenue"`
	AttendanceToday int             `json:"attendanceToday"`
	PassPercentage  int             `json:"passPercentage"`
	GenderStats     GenderStats     `json:"genderStats"`
	AcademicYear    string          `json:"academicYear"`
	Date            string          `json:"date"`
}

type DashboardService struct {
	store    database.Store
	fees     *FeeService
	settings *SettingsService
	today    func() string
}

func NewDashboardService(store database.Store, fees *FeeService, settings *SettingsService) *DashboardService {
	return &DashboardService{store: store, fees: fees, settings: settings, today: utils.TodayString}
}

// Stats computes the dashboard. Revenue counts PAID semesters of the current
// year at the configured fee, derived from transactions.
func (s *DashboardService) Stats(ctx context.Context) (DashboardStats, error) {
	students, err := database.List[models.Student](ctx, s.store, database.Students)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "listing students")
	}
	teachers, err := database.List[models.Teacher](ctx, s.store, database.Teachers)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "listing teachers")
	}
	records, err := database.List[models.FeeRecord](ctx, s.store, database.Fees)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "listing fee records")
	}
	attendance, err := database.List[models.AttendanceRecord](ctx, s.store, database.Attendance)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "listing attendance")
	}
	exams, err := database.List[models.ExamResult](ctx, s.store, database.Exams)
	if err != nil {
		return DashboardStats{}, errors.Wrap(err, "listing exam results")
	}

	year := s.settings.AcademicYear(ctx)
	today := s.today()
	stats := DashboardStats{
		TotalStudents:  len(students),
		TotalTeachers:  len(teachers),
		TotalRevenue:   decimal.Zero,
		PassPercentage: PassRate(exams),
		AcademicYear:   year,
		Date:           today,
	}

	engine := s.fees.Engine()
	paidSemesters := 0
	for _, rec := range records {
		if rec.AcademicYear != year {
			continue
		}
		for _, st := range engine.Statuses(rec) {
			if st.Status == models.FeePaid {
				paidSemesters++
			}
		}
	}
	stats.TotalRevenue = engine.Fee().Mul(decimal.NewFromInt(int64(paidSemesters)))

	for _, a := range attendance {
		if a.Date == today && a.Status == models.AttendancePresent {
			stats.AttendanceToday++
		}
	}

	for _, st := range students {
		switch st.Gender {
		case models.GenderMale:
			stats.GenderStats.Male++
		case models.GenderFemale:
			stats.GenderStats.Female++
		case models.GenderOther:
			stats.GenderStats.Other++
		default:
			// legacy rows without a gender are not counted
		}
	}
	return stats, nil
}
