package services

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

var (
	academicYearRegex = regexp.MustCompile(`^\d{4}-\d{4}$`)

	// ErrSettingsValidation indicates a user-facing validation error while updating settings
	ErrSettingsValidation = errors.New("settings validation error")
)

// SettingsService persists the single school settings record.
type SettingsService struct {
	store    database.Store
	defaults models.SchoolSettings
	now      func() time.Time
}

func NewSettingsService(store database.Store, schoolName, academicYear, lineGroupID string) *SettingsService {
	return &SettingsService{
		store: store,
		defaults: models.SchoolSettings{
			ID:           models.SchoolSettingsID,
			SchoolName:   schoolName,
			AcademicYear: academicYear,
			LineGroupID:  lineGroupID,
		},
		now: time.Now,
	}
}

// UpdateSettingsInput describes the fields that can be changed; nil means unchanged.
type UpdateSettingsInput struct {
	SchoolName   *string `json:"schoolName"`
	AcademicYear *string `json:"academicYear"`
	LineGroupID  *string `json:"lineGroupId"`
}

// Get returns the stored settings, or the configured defaults when none are stored.
func (s *SettingsService) Get(ctx context.Context) (models.SchoolSettings, error) {
	st, ok, err := database.Find[models.SchoolSettings](ctx, s.store, database.Settings, models.SchoolSettingsID)
	if err != nil {
		return s.defaults, errors.Wrap(err, "loading settings")
	}
	if !ok {
		return s.defaults, nil
	}
	if st.AcademicYear == "" {
		st.AcademicYear = s.defaults.AcademicYear
	}
	if st.SchoolName == "" {
		st.SchoolName = s.defaults.SchoolName
	}
	if st.LineGroupID == "" {
		st.LineGroupID = s.defaults.LineGroupID
	}
	return st, nil
}

// AcademicYear returns the current fee year, falling back to the default on store errors.
func (s *SettingsService) AcademicYear(ctx context.Context) string {
	st, err := s.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Using default academic year")
	}
	return st.AcademicYear
}

func (s *SettingsService) Update(ctx context.Context, in UpdateSettingsInput) (models.SchoolSettings, error) {
	st, err := s.Get(ctx)
	if err != nil {
		return models.SchoolSettings{}, err
	}
	if in.SchoolName != nil {
		name := utils.SanitizeString(*in.SchoolName)
		if name == "" {
			return models.SchoolSettings{}, utils.NewValidationError(ErrSettingsValidation,
				utils.FieldError{Field: "schoolName", Error: "schoolName cannot be blank"})
		}
		st.SchoolName = name
	}
	if in.AcademicYear != nil {
		year := strings.TrimSpace(*in.AcademicYear)
		if !validAcademicYear(year) {
			return models.SchoolSettings{}, utils.NewValidationError(ErrSettingsValidation,
				utils.FieldError{Field: "academicYear", Error: "academicYear must look like 2023-2024"})
		}
		st.AcademicYear = year
	}
	if in.LineGroupID != nil {
		st.LineGroupID = strings.TrimSpace(*in.LineGroupID)
	}
	return s.save(ctx, st)
}

// SetLineGroup records the LINE group the bot belongs to; an empty id clears it.
func (s *SettingsService) SetLineGroup(ctx context.Context, groupID, groupName string) error {
	st, err := s.Get(ctx)
	if err != nil {
		return err
	}
	st.LineGroupID = groupID
	st.LineGroupName = groupName
	_, err = s.save(ctx, st)
	return err
}

// LineGroupID returns the target group for notifications.
func (s *SettingsService) LineGroupID(ctx context.Context) string {
	st, err := s.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Unable to load LINE group id")
	}
	return st.LineGroupID
}

func (s *SettingsService) save(ctx context.Context, st models.SchoolSettings) (models.SchoolSettings, error) {
	st.ID = models.SchoolSettingsID
	st.UpdatedAt = s.now().UTC()
	if err := database.Put(ctx, s.store, database.Settings, st); err != nil {
		return models.SchoolSettings{}, errors.Wrap(err, "saving settings")
	}
	return st, nil
}

// validAcademicYear accepts "YYYY-YYYY" where the second year follows the first.
func validAcademicYear(y string) bool {
	if !academicYearRegex.MatchString(y) {
		return false
	}
	start, _ := strconv.Atoi(y[:4])
	end, _ := strconv.Atoi(y[5:])
	return end == start+1
}
