package services

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

var errInvalidTeacherStatus = errors.New("status must be Present or Absent")

// TeacherService manages teachers and their daily attendance.
type TeacherService struct {
	store database.Store
}

func NewTeacherService(store database.Store) *TeacherService {
	return &TeacherService{store: store}
}

// TeacherAttendanceRow pairs a teacher with the day's mark, empty when unmarked.
type TeacherAttendanceRow struct {
	Teacher utils.TeacherShort             `json:"teacher"`
	Date    string                         `json:"date"`
	Status  models.TeacherAttendanceStatus `json:"status,omitempty"`
}

func (s *TeacherService) List(ctx context.Context, search string) ([]models.Teacher, error) {
	all, err := database.List[models.Teacher](ctx, s.store, database.Teachers)
	if err != nil {
		return nil, errors.Wrap(err, "listing teachers")
	}
	search = strings.TrimSpace(search)
	out := make([]models.Teacher, 0, len(all))
	for _, t := range all {
		if search != "" && !utils.ContainsFold(t.FullName, search) && !utils.ContainsFold(t.Subject, search) {
			continue
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (s *TeacherService) Get(ctx context.Context, id string) (models.Teacher, error) {
	t, ok, err := database.Find[models.Teacher](ctx, s.store, database.Teachers, id)
	if err != nil {
		return models.Teacher{}, errors.Wrap(err, "loading teacher")
	}
	if !ok {
		return models.Teacher{}, errors.Wrapf(utils.ErrNotFound, "teacher %s", id)
	}
	return t, nil
}

func (s *TeacherService) Create(ctx context.Context, in models.Teacher) (models.Teacher, error) {
	t := sanitizeTeacher(in)
	if t.ID == "" {
		t.ID = uuid.NewString()
	} else if _, ok, err := database.Find[models.Teacher](ctx, s.store, database.Teachers, t.ID); err != nil {
		return models.Teacher{}, errors.Wrap(err, "loading teacher")
	} else if ok {
		return models.Teacher{}, utils.NewValidationError(errors.New("teacher already exists"),
			utils.FieldError{Field: "id", Error: "teacher id " + t.ID + " already exists"})
	}
	if err := utils.ValidateStruct(t); err != nil {
		return models.Teacher{}, err
	}
	if err := database.Put(ctx, s.store, database.Teachers, t); err != nil {
		return models.Teacher{}, errors.Wrap(err, "saving teacher")
	}
	return t, nil
}

func (s *TeacherService) Update(ctx context.Context, id string, in models.Teacher) (models.Teacher, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return models.Teacher{}, err
	}
	t := sanitizeTeacher(in)
	t.ID = id
	if err := utils.ValidateStruct(t); err != nil {
		return models.Teacher{}, err
	}
	if err := database.Put(ctx, s.store, database.Teachers, t); err != nil {
		return models.Teacher{}, errors.Wrap(err, "saving teacher")
	}
	return t, nil
}

// Delete removes the teacher only; attendance history is kept.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteOne(ctx, database.Teachers, id); err != nil {
		return errors.Wrap(err, "deleting teacher")
	}
	return nil
}

// MarkAttendance records a teacher's status for date, overwriting any earlier mark.
func (s *TeacherService) MarkAttendance(ctx context.Context, teacherID, date string, status models.TeacherAttendanceStatus) (models.TeacherAttendance, error) {
	if !status.Valid() {
		return models.TeacherAttendance{}, utils.NewValidationError(errInvalidTeacherStatus,
			utils.FieldError{Field: "status", Error: errInvalidTeacherStatus.Error()})
	}
	if _, err := utils.ParseDate(date); err != nil {
		return models.TeacherAttendance{}, utils.NewValidationError(errInvalidDate,
			utils.FieldError{Field: "date", Error: errInvalidDate.Error()})
	}
	if _, err := s.Get(ctx, teacherID); err != nil {
		return models.TeacherAttendance{}, err
	}
	rec := models.TeacherAttendance{
		ID:        models.TeacherAttendanceID(teacherID, date),
		TeacherID: teacherID,
		Date:      date,
		Status:    status,
	}
	if err := database.Put(ctx, s.store, database.TeacherAttendance, rec); err != nil {
		return models.TeacherAttendance{}, errors.Wrap(err, "saving teacher attendance")
	}
	return rec, nil
}

// AttendanceForDate lists every teacher with their mark for date.
func (s *TeacherService) AttendanceForDate(ctx context.Context, date string) ([]TeacherAttendanceRow, error) {
	teachers, err := s.List(ctx, "")
	if err != nil {
		return nil, err
	}
	marks, err := database.List[models.TeacherAttendance](ctx, s.store, database.TeacherAttendance)
	if err != nil {
		return nil, errors.Wrap(err, "listing teacher attendance")
	}
	byTeacher := make(map[string]models.TeacherAttendanceStatus)
	for _, m := range marks {
		if m.Date == date {
			byTeacher[m.TeacherID] = m.Status
		}
	}
	rows := make([]TeacherAttendanceRow, 0, len(teachers))
	for _, t := range teachers {
		rows = append(rows, TeacherAttendanceRow{
			Teacher: utils.ToTeacherShort(t),
			Date:    date,
			Status:  byTeacher[t.ID],
		})
	}
	return rows, nil
}

func sanitizeTeacher(in models.Teacher) models.Teacher {
	in.ID = utils.SanitizeString(in.ID)
	in.FullName = utils.SanitizeString(in.FullName)
	in.Email = utils.SanitizeString(in.Email)
	in.Subject = utils.SanitizeString(in.Subject)
	in.Qualification = utils.SanitizeString(in.Qualification)
	in.Phone = utils.SanitizeString(in.Phone)
	in.JoinDate = utils.SanitizeString(in.JoinDate)
	return in
}
