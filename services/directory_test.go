package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"udaan_go/models"
	"udaan_go/utils"
)

func TestStudentCreateAssignsRollAndID(t *testing.T) {
	env := newTestEnv(t)
	env.students.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	next, err := env.students.NextRollNo(ctx)
	if err != nil || next != FirstRollNo {
		t.Fatalf("NextRollNo on empty store = %d, %v", next, err)
	}

	a := env.addStudent(t, "Aarav Sharma")
	b := env.addStudent(t, "Diya Patel")
	if a.RollNo != 1001 || a.ID != "UV-2024-1001" {
		t.Fatalf("first student = %s / %d", a.ID, a.RollNo)
	}
	if b.RollNo != 1002 || b.ID != "UV-2024-1002" {
		t.Fatalf("second student = %s / %d", b.ID, b.RollNo)
	}
}

func TestStudentCreateSkipsIDHeldByRenumberedStudent(t *testing.T) {
	env := newTestEnv(t)
	env.students.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	env.addStudent(t, "Aarav Sharma")
	env.addStudent(t, "Diya Patel")
	moved := env.addStudent(t, "Kabir Singh")

	in := demoStudent("Kabir Singh")
	in.RollNo = 900
	if _, err := env.students.Update(ctx, moved.ID, in); err != nil {
		t.Fatalf("renumber: %v", err)
	}

	next, err := env.students.NextRollNo(ctx)
	if err != nil || next != 1004 {
		t.Fatalf("NextRollNo = %d, %v want 1004", next, err)
	}
	st := env.addStudent(t, "Ananya Gupta")
	if st.RollNo != 1004 || st.ID != "UV-2024-1004" {
		t.Fatalf("new student = %s / %d", st.ID, st.RollNo)
	}
	if _, err := env.students.Get(ctx, moved.ID); err != nil {
		t.Fatalf("renumbered student lost: %v", err)
	}
}

func TestStudentValidation(t *testing.T) {
	env := newTestEnv(t)
	cases := []struct {
		name  string
		edit  func(*models.Student)
		field string
	}{
		{"short phone", func(s *models.Student) { s.ContactNumber = "12345" }, "contactNumber"},
		{"bad gender", func(s *models.Student) { s.Gender = "Robot" }, "gender"},
		{"admission before birth", func(s *models.Student) { s.AdmissionDate = "2010-01-01" }, "admissionDate"},
		{"blank class", func(s *models.Student) { s.ClassName = "  " }, "className"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			in := demoStudent("Kabir Singh")
			tc.edit(&in)
			_, err := env.students.Create(context.Background(), in)
			ve, ok := utils.AsValidationError(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, f := range ve.Fields {
				if f.Field == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %s in %+v", tc.field, ve.Fields)
			}
		})
	}
}

func TestStudentUpdateKeepsIDAndUniqueRoll(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addStudent(t, "Aarav Sharma")
	b := env.addStudent(t, "Diya Patel")

	in := b
	in.ID = "UV-0000-1"
	in.Address = "7 Hill Road, Pune"
	got, err := env.students.Update(ctx, b.ID, in)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.ID != b.ID || got.Address != "7 Hill Road, Pune" {
		t.Fatalf("unexpected update result %+v", got)
	}

	in.RollNo = a.RollNo
	if _, err := env.students.Update(ctx, b.ID, in); !utils.IsValidationError(err) {
		t.Fatalf("duplicate roll should be rejected, got %v", err)
	}
	if _, err := env.students.Update(ctx, "UV-0000-9", in); !utils.IsNotFound(err) {
		t.Fatalf("unknown student should be not found, got %v", err)
	}
}

func TestStudentListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addStudent(t, "Aarav Sharma")
	other := demoStudent("Diya Patel")
	other.ClassName = "7"
	other.Section = "B"
	if _, err := env.students.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []struct {
		name string
		f    StudentFilter
		want int
	}{
		{"all", StudentFilter{}, 2},
		{"name search", StudentFilter{Search: "aarav"}, 1},
		{"roll search", StudentFilter{Search: "1002"}, 1},
		{"class", StudentFilter{ClassName: "7"}, 1},
		{"class and section", StudentFilter{ClassName: "7", Section: "A"}, 0},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := env.students.List(ctx, tc.f)
			if err != nil {
				t.Fatalf("List: %v", err)
			}
			if len(got) != tc.want {
				t.Fatalf("got %d students want %d", len(got), tc.want)
			}
		})
	}
}

func TestStudentDeleteCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	gone := env.addStudent(t, "Aarav Sharma")
	kept := env.addStudent(t, "Diya Patel")

	for _, st := range []models.Student{gone, kept} {
		env.pay(t, st.ID, models.SemesterOne, 1000)
		if _, err := env.attendance.Mark(ctx, st.ID, "2023-07-03", models.AttendancePresent); err != nil {
			t.Fatalf("Mark: %v", err)
		}
	}
	if _, err := env.exams.SaveMarks(ctx, models.ExamMidTerm, "Science", map[string]float64{gone.ID: 55, kept.ID: 80}); err != nil {
		t.Fatalf("SaveMarks: %v", err)
	}

	res, err := env.students.Delete(ctx, gone.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if res.FeeRecords != 1 || res.Attendance != 1 || res.ExamResults != 1 {
		t.Fatalf("unexpected cascade %+v", res)
	}

	if _, err := env.students.Get(ctx, gone.ID); !utils.IsNotFound(err) {
		t.Fatalf("deleted student still readable: %v", err)
	}
	marks, _ := env.attendance.ForDate(ctx, "2023-07-03")
	if _, ok := marks[gone.ID]; ok || len(marks) != 1 {
		t.Fatalf("attendance after delete = %v", marks)
	}
	results, _ := env.exams.Results(ctx)
	if len(results) != 1 || results[0].StudentID != kept.ID {
		t.Fatalf("exam results after delete = %+v", results)
	}
	if _, err := env.students.Delete(ctx, gone.ID); !utils.IsNotFound(err) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestAttendanceMarkAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addStudent(t, "Aarav Sharma")
	b := env.addStudent(t, "Diya Patel")

	n, err := env.attendance.MarkAll(ctx, "2023-07-03", models.AttendancePresent)
	if err != nil || n != 2 {
		t.Fatalf("MarkAll = %d, %v", n, err)
	}
	if _, err := env.attendance.Mark(ctx, b.ID, "2023-07-03", models.AttendanceAbsent); err != nil {
		t.Fatalf("Mark: %v", err)
	}
	if _, err := env.attendance.Mark(ctx, a.ID, "2023-07-04", models.AttendanceLate); err != nil {
		t.Fatalf("Mark: %v", err)
	}

	marks, err := env.attendance.ForDate(ctx, "2023-07-03")
	if err != nil {
		t.Fatalf("ForDate: %v", err)
	}
	if marks[a.ID] != models.AttendancePresent || marks[b.ID] != models.AttendanceAbsent {
		t.Fatalf("marks = %v", marks)
	}

	stats, err := env.attendance.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 || stats.Present != 1 || stats.Absent != 1 || stats.Late != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if len(stats.Daily) != 2 || stats.Daily[0].Date != "2023-07-03" || stats.Daily[0].Present != 1 || stats.Daily[0].Absent != 1 {
		t.Fatalf("unexpected daily breakdown %+v", stats.Daily)
	}

	invalid := []struct {
		id, date string
		status   models.AttendanceStatus
	}{
		{a.ID, "03/07/2023", models.AttendancePresent},
		{a.ID, "2023-07-03", "Sleeping"},
	}
	for _, tc := range invalid {
		if _, err := env.attendance.Mark(ctx, tc.id, tc.date, tc.status); !utils.IsValidationError(err) {
			t.Fatalf("Mark(%q, %q) should be rejected, got %v", tc.date, tc.status, err)
		}
	}
	if _, err := env.attendance.Mark(ctx, "UV-0000-1", "2023-07-03", models.AttendancePresent); !utils.IsNotFound(err) {
		t.Fatalf("unknown student should be not found, got %v", err)
	}
}

func TestGradeBoundaries(t *testing.T) {
	cases := []struct {
		marks float64
		want  string
	}{
		{100, "A+"}, {90, "A+"}, {89.5, "A"}, {80, "A"}, {70, "B"}, {60, "C"}, {40, "D"}, {39.9, "F"}, {0, "F"},
	}
	for _, tc := range cases {
		if got := Grade(tc.marks); got != tc.want {
			t.Fatalf("Grade(%v) = %s want %s", tc.marks, got, tc.want)
		}
	}
}

func TestExamSaveMarksAndSheet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.addStudent(t, "Aarav Sharma")
	b := env.addStudent(t, "Diya Patel")
	env.addStudent(t, "Kabir Singh")

	saved, err := env.exams.SaveMarks(ctx, models.ExamFinal, "Mathematics", map[string]float64{a.ID: 92, b.ID: 35})
	if err != nil || len(saved) != 2 {
		t.Fatalf("SaveMarks = %d, %v", len(saved), err)
	}
	if got := PassRate(saved); got != 50 {
		t.Fatalf("PassRate = %d want 50", got)
	}

	rows, err := env.exams.Sheet(ctx, models.ExamFinal, "Mathematics")
	if err != nil {
		t.Fatalf("Sheet: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("sheet rows = %d want 3", len(rows))
	}
	if rows[0].Grade != "A+" || rows[1].Grade != "F" || rows[2].Result != nil {
		t.Fatalf("unexpected sheet %+v", rows)
	}

	bad := []struct {
		name     string
		examType models.ExamType
		subject  string
		marks    map[string]float64
	}{
		{"unknown exam", "Quiz", "Mathematics", map[string]float64{a.ID: 50}},
		{"unknown subject", models.ExamFinal, "Astrology", map[string]float64{a.ID: 50}},
		{"out of range", models.ExamFinal, "Mathematics", map[string]float64{a.ID: 101}},
		{"unknown student", models.ExamFinal, "Mathematics", map[string]float64{"UV-0000-1": 50}},
	}
	for _, tc := range bad {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := env.exams.SaveMarks(ctx, tc.examType, tc.subject, tc.marks); !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestTeacherCRUDAndAttendance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	created, err := env.teachers.Create(ctx, models.Teacher{
		FullName: "Meera Iyer",
		Subject:  "Mathematics",
		Phone:    "9123456780",
		Salary:   decimal.NewFromInt(42000),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("teacher id should be generated")
	}
	if _, err := env.teachers.Create(ctx, models.Teacher{FullName: "No Pay", Subject: "Art", Salary: decimal.Zero}); !utils.IsValidationError(err) {
		t.Fatalf("zero salary should be rejected, got %v", err)
	}

	found, err := env.teachers.List(ctx, "math")
	if err != nil || len(found) != 1 {
		t.Fatalf("List(math) = %d, %v", len(found), err)
	}

	if _, err := env.teachers.MarkAttendance(ctx, created.ID, "2023-07-03", models.TeacherPresent); err != nil {
		t.Fatalf("MarkAttendance: %v", err)
	}
	if _, err := env.teachers.MarkAttendance(ctx, created.ID, "2023-07-03", "Late"); !utils.IsValidationError(err) {
		t.Fatalf("teacher status Late should be rejected, got %v", err)
	}
	rows, err := env.teachers.AttendanceForDate(ctx, "2023-07-03")
	if err != nil || len(rows) != 1 || rows[0].Status != models.TeacherPresent {
		t.Fatalf("AttendanceForDate = %+v, %v", rows, err)
	}
	rows, _ = env.teachers.AttendanceForDate(ctx, "2023-07-04")
	if rows[0].Status != "" {
		t.Fatalf("unmarked day should have empty status, got %q", rows[0].Status)
	}

	if err := env.teachers.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := env.teachers.Delete(ctx, created.ID); !utils.IsNotFound(err) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func TestSettingsUpdate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	year := "2024-2025"
	st, err := env.settings.Update(ctx, UpdateSettingsInput{AcademicYear: &year})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if st.AcademicYear != year || st.SchoolName != "Udaan Vidhyalay" {
		t.Fatalf("unexpected settings %+v", st)
	}
	if got := env.settings.AcademicYear(ctx); got != year {
		t.Fatalf("AcademicYear = %s", got)
	}

	for _, bad := range []string{"2024", "2024-2026", "2025-2024"} {
		bad := bad
		if _, err := env.settings.Update(ctx, UpdateSettingsInput{AcademicYear: &bad}); !utils.IsValidationError(err) {
			t.Fatalf("academic year %q should be rejected, got %v", bad, err)
		}
	}

	if err := env.settings.SetLineGroup(ctx, "C123", "Staff room"); err != nil {
		t.Fatalf("SetLineGroup: %v", err)
	}
	if got := env.settings.LineGroupID(ctx); got != "C123" {
		t.Fatalf("LineGroupID = %q", got)
	}
}
