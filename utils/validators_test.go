package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"udaan_go/models"
)

func validStudent() models.Student {
	return models.Student{
		ID:            "UV-2024-1001",
		RollNo:        1001,
		FullName:      "Aarav K. Sharma",
		Gender:        models.GenderMale,
		DateOfBirth:   "2012-04-15",
		ContactNumber: "9876543210",
		Address:       "12 MG Road, Pune",
		ClassName:     "6",
		Section:       "A",
		AdmissionDate: "2019-06-01",
	}
}

func fieldNames(err error) []string {
	ve, ok := AsValidationError(err)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestValidateStudent(t *testing.T) {
	orig := now
	now = func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }
	defer func() { now = orig }()

	cases := []struct {
		name   string
		mutate func(*models.Student)
		field  string
	}{
		{"valid", func(*models.Student) {}, ""},
		{"short name", func(s *models.Student) { s.FullName = "Al" }, "fullName"},
		{"digits in name", func(s *models.Student) { s.FullName = "Agent 007" }, "fullName"},
		{"short phone", func(s *models.Student) { s.ContactNumber = "98765" }, "contactNumber"},
		{"letters in phone", func(s *models.Student) { s.ContactNumber = "98765abcde" }, "contactNumber"},
		{"bad gender", func(s *models.Student) { s.Gender = "Robot" }, "gender"},
		{"future dob", func(s *models.Student) { s.DateOfBirth = "2024-02-01" }, "dateOfBirth"},
		{"bad dob format", func(s *models.Student) { s.DateOfBirth = "15/04/2012" }, "dateOfBirth"},
		{"blank class", func(s *models.Student) { s.ClassName = "   " }, "className"},
		{"short address", func(s *models.Student) { s.Address = "Pune" }, "address"},
		{"missing section", func(s *models.Student) { s.Section = "" }, "section"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			s := validStudent()
			tc.mutate(&s)
			err := ValidateStruct(s)
			if tc.field == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
			found := false
			for _, f := range fieldNames(err) {
				if f == tc.field {
					found = true
				}
			}
			if !found {
				t.Fatalf("expected field %q in %v", tc.field, fieldNames(err))
			}
		})
	}
}

func TestValidateTeacherSalary(t *testing.T) {
	teacher := models.Teacher{ID: "t1", FullName: "Meera Iyer", Subject: "Science", Salary: decimal.Zero}
	err := ValidateStruct(teacher)
	if err == nil {
		t.Fatal("expected zero salary to fail")
	}
	names := strings.Join(fieldNames(err), ",")
	if names != "salary" {
		t.Fatalf("unexpected fields %q", names)
	}

	teacher.Salary = decimal.NewFromInt(42000)
	teacher.Email = "meera@example.com"
	if err := ValidateStruct(teacher); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidationMessagesUseJSONNames(t *testing.T) {
	s := validStudent()
	s.ContactNumber = "123"
	ve, ok := AsValidationError(ValidateStruct(s))
	if !ok || len(ve.Fields) != 1 {
		t.Fatalf("expected one field error, got %+v", ve)
	}
	if ve.Fields[0].Error != "contactNumber must be exactly 10 digits" {
		t.Fatalf("unexpected message %q", ve.Fields[0].Error)
	}
}
