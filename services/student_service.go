package services

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/utils"
)

// FirstRollNo is assigned to the first registered student.
const FirstRollNo = 1001

var (
	errRollNoTaken     = errors.New("roll number already assigned")
	errAdmissionBefore = errors.New("admission date must be after date of birth")
)

// StudentService manages the student directory.
type StudentService struct {
	store database.Store
	now   func() time.Time

	// writes is held by every write to students and to the fee, attendance
	// and exam records that reference them, so a cascade delete never
	// interleaves with a dependent write.
	writes sync.Mutex
}

func NewStudentService(store database.Store) *StudentService {
	return &StudentService{store: store, now: time.Now}
}

// StudentFilter narrows List. Search matches name, roll number or id.
type StudentFilter struct {
	Search    string
	ClassName string
	Section   string
}

// CascadeResult reports what a student deletion removed.
type CascadeResult struct {
	StudentID   string `json:"studentId"`
	FeeRecords  int    `json:"feeRecords"`
	Attendance  int    `json:"attendance"`
	ExamResults int    `json:"examResults"`
}

func (s *StudentService) List(ctx context.Context, f StudentFilter) ([]models.Student, error) {
	all, err := database.List[models.Student](ctx, s.store, database.Students)
	if err != nil {
		return nil, errors.Wrap(err, "listing students")
	}
	search := strings.TrimSpace(f.Search)
	out := make([]models.Student, 0, len(all))
	for _, st := range all {
		if f.ClassName != "" && st.ClassName != f.ClassName {
			continue
		}
		if f.Section != "" && st.Section != f.Section {
			continue
		}
		if search != "" &&
			!utils.ContainsFold(st.FullName, search) &&
			!strings.Contains(strconv.Itoa(st.RollNo), search) &&
			!utils.ContainsFold(st.ID, search) {
			continue
		}
		out = append(out, st)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RollNo < out[j].RollNo })
	return out, nil
}

func (s *StudentService) Get(ctx context.Context, id string) (models.Student, error) {
	st, ok, err := database.Find[models.Student](ctx, s.store, database.Students, id)
	if err != nil {
		return models.Student{}, errors.Wrap(err, "loading student")
	}
	if !ok {
		return models.Student{}, errors.Wrapf(utils.ErrNotFound, "student %s", id)
	}
	return st, nil
}

// NextRollNo returns the roll number the next registration will get.
func (s *StudentService) NextRollNo(ctx context.Context) (int, error) {
	all, err := database.List[models.Student](ctx, s.store, database.Students)
	if err != nil {
		return 0, errors.Wrap(err, "listing students")
	}
	roll, _ := nextRollNo(all, s.now().Year())
	return roll, nil
}

// nextRollNo starts one past the highest roll number (or at FirstRollNo)
// and moves on while the derived id is held by a renumbered student.
func nextRollNo(all []models.Student, year int) (int, string) {
	maxRoll := FirstRollNo - 1
	ids := make(map[string]bool, len(all))
	for _, st := range all {
		if st.RollNo > maxRoll {
			maxRoll = st.RollNo
		}
		ids[st.ID] = true
	}
	roll := maxRoll + 1
	for ids[models.StudentID(year, roll)] {
		roll++
	}
	return roll, models.StudentID(year, roll)
}

// Create registers a student, assigning the next roll number and its id.
func (s *StudentService) Create(ctx context.Context, in models.Student) (models.Student, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	all, err := database.List[models.Student](ctx, s.store, database.Students)
	if err != nil {
		return models.Student{}, errors.Wrap(err, "listing students")
	}

	st := sanitizeStudent(in)
	st.RollNo, st.ID = nextRollNo(all, s.now().Year())

	if err := validateStudent(st); err != nil {
		return models.Student{}, err
	}

	if err := database.Put(ctx, s.store, database.Students, st); err != nil {
		return models.Student{}, errors.Wrap(err, "saving student")
	}
	logrus.WithFields(logrus.Fields{"student_id": st.ID, "roll_no": st.RollNo}).Info("Student registered")
	return st, nil
}

// Update replaces a student's details. The id cannot change; the roll
// number may, as long as it stays unique.
func (s *StudentService) Update(ctx context.Context, id string, in models.Student) (models.Student, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	all, err := database.List[models.Student](ctx, s.store, database.Students)
	if err != nil {
		return models.Student{}, errors.Wrap(err, "listing students")
	}
	var current *models.Student
	for i := range all {
		if all[i].ID == id {
			current = &all[i]
			break
		}
	}
	if current == nil {
		return models.Student{}, errors.Wrapf(utils.ErrNotFound, "student %s", id)
	}

	st := sanitizeStudent(in)
	st.ID = id
	if st.RollNo == 0 {
		st.RollNo = current.RollNo
	}
	for _, other := range all {
		if other.ID != id && other.RollNo == st.RollNo {
			return models.Student{}, utils.NewValidationError(errRollNoTaken,
				utils.FieldError{Field: "rollNo", Error: "roll number " + strconv.Itoa(st.RollNo) + " is already assigned"})
		}
	}
	if err := validateStudent(st); err != nil {
		return models.Student{}, err
	}

	if err := database.Put(ctx, s.store, database.Students, st); err != nil {
		return models.Student{}, errors.Wrap(err, "saving student")
	}
	return st, nil
}

// Delete removes a student and every fee, attendance and exam record that
// references it.
func (s *StudentService) Delete(ctx context.Context, id string) (CascadeResult, error) {
	s.writes.Lock()
	defer s.writes.Unlock()

	if _, err := s.Get(ctx, id); err != nil {
		return CascadeResult{}, err
	}

	res := CascadeResult{StudentID: id}
	err := database.RunInTx(ctx, s.store, func(tx database.Store) error {
		if err := tx.DeleteOne(ctx, database.Students, id); err != nil {
			return err
		}
		var err error
		if res.FeeRecords, err = database.RemoveWhere(ctx, tx, database.Fees,
			func(r models.FeeRecord) bool { return r.StudentID == id }); err != nil {
			return err
		}
		if res.Attendance, err = database.RemoveWhere(ctx, tx, database.Attendance,
			func(r models.AttendanceRecord) bool { return r.StudentID == id }); err != nil {
			return err
		}
		if res.ExamResults, err = database.RemoveWhere(ctx, tx, database.Exams,
			func(r models.ExamResult) bool { return r.StudentID == id }); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return CascadeResult{}, errors.Wrap(err, "deleting student")
	}

	logrus.WithFields(logrus.Fields{
		"student_id":   id,
		"fee_records":  res.FeeRecords,
		"attendance":   res.Attendance,
		"exam_results": res.ExamResults,
	}).Info("Student deleted")
	return res, nil
}

func sanitizeStudent(in models.Student) models.Student {
	in.FullName = utils.SanitizeString(in.FullName)
	in.ContactNumber = utils.SanitizeString(in.ContactNumber)
	in.Address = utils.SanitizeString(in.Address)
	in.ClassName = utils.SanitizeString(in.ClassName)
	in.Section = utils.SanitizeString(in.Section)
	in.DateOfBirth = utils.SanitizeString(in.DateOfBirth)
	in.AdmissionDate = utils.SanitizeString(in.AdmissionDate)
	return in
}

func validateStudent(st models.Student) error {
	if err := utils.ValidateStruct(st); err != nil {
		return err
	}
	dob, _ := utils.ParseDate(st.DateOfBirth)
	admitted, _ := utils.ParseDate(st.AdmissionDate)
	if !admitted.After(dob) {
		return utils.NewValidationError(errAdmissionBefore,
			utils.FieldError{Field: "admissionDate", Error: errAdmissionBefore.Error()})
	}
	return nil
}
