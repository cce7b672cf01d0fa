package seeders

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/services/ledger"
)

// Services are the writers the seeders go through, so demo data passes
// the same validation as API input.
type Services struct {
	Students *services.StudentService
	Teachers *services.TeacherService
	Fees     *services.FeeService
}

// SeedAll creates demo students, teachers and a few payments.
// It does nothing when any student already exists.
func SeedAll(ctx context.Context, svc Services) error {
	existing, err := svc.Students.List(ctx, services.StudentFilter{})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		logrus.Info("Students already seeded, skipping...")
		return nil
	}

	logrus.Info("Starting demo data seeding...")

	created, err := SeedStudents(ctx, svc.Students)
	if err != nil {
		return err
	}
	if err := SeedTeachers(ctx, svc.Teachers); err != nil {
		return err
	}
	if err := SeedPayments(ctx, svc.Fees, created); err != nil {
		return err
	}

	logrus.WithField("students", len(created)).Info("Demo data seeding completed successfully!")
	return nil
}

func SeedStudents(ctx context.Context, students *services.StudentService) ([]models.Student, error) {
	demo := []models.Student{
		{FullName: "Aarav Sharma", Gender: models.GenderMale, DateOfBirth: "2012-04-11", ContactNumber: "9876543210", Address: "12 Station Road, Jaipur", ClassName: "6", Section: "A", AdmissionDate: "2020-06-15"},
		{FullName: "Diya Patel", Gender: models.GenderFemale, DateOfBirth: "2012-09-02", ContactNumber: "9876543211", Address: "4 Lake View, Jaipur", ClassName: "6", Section: "A", AdmissionDate: "2020-06-15"},
		{FullName: "Kabir Singh", Gender: models.GenderMale, DateOfBirth: "2011-01-23", ContactNumber: "9876543212", Address: "88 Civil Lines, Jaipur", ClassName: "7", Section: "B", AdmissionDate: "2019-06-10"},
		{FullName: "Ananya Gupta", Gender: models.GenderFemale, DateOfBirth: "2011-07-30", ContactNumber: "9876543213", Address: "21 Gandhi Nagar, Jaipur", ClassName: "7", Section: "B", AdmissionDate: "2019-06-10"},
		{FullName: "Rohan Verma", Gender: models.GenderMale, DateOfBirth: "2010-12-05", ContactNumber: "9876543214", Address: "9 Malviya Nagar, Jaipur", ClassName: "8", Section: "A", AdmissionDate: "2018-06-12"},
	}

	out := make([]models.Student, 0, len(demo))
	for _, s := range demo {
		st, err := students.Create(ctx, s)
		if err != nil {
			return out, errors.Wrapf(err, "seeding student %s", s.FullName)
		}
		out = append(out, st)
	}
	return out, nil
}

func SeedTeachers(ctx context.Context, teachers *services.TeacherService) error {
	demo := []models.Teacher{
		{FullName: "Meera Iyer", Email: "meera@udaan.school", Subject: "Mathematics", Qualification: "M.Sc, B.Ed", Phone: "9123456780", Salary: decimal.NewFromInt(42000), JoinDate: "2015-07-01"},
		{FullName: "Sanjay Rao", Email: "sanjay@udaan.school", Subject: "Science", Qualification: "M.Sc", Phone: "9123456781", Salary: decimal.NewFromInt(40000), JoinDate: "2017-07-01"},
		{FullName: "Farah Khan", Email: "farah@udaan.school", Subject: "English", Qualification: "M.A, B.Ed", Phone: "9123456782", Salary: decimal.NewFromInt(38000), JoinDate: "2019-07-01"},
	}
	for _, t := range demo {
		if _, err := teachers.Create(ctx, t); err != nil {
			return errors.Wrapf(err, "seeding teacher %s", t.FullName)
		}
	}
	return nil
}

// SeedPayments leaves the ledger with one PAID, one PARTIAL and several PENDING semesters.
func SeedPayments(ctx context.Context, fees *services.FeeService, students []models.Student) error {
	if len(students) < 2 {
		return nil
	}
	fee := fees.Engine().Fee()
	payments := []struct {
		student models.Student
		payment ledger.Payment
	}{
		{students[0], ledger.Payment{Semester: models.SemesterOne, Amount: fee, Date: "2023-07-05", Mode: models.PaymentUPI}},
		{students[0], ledger.Payment{Semester: models.SemesterTwo, Amount: fee, Date: "2023-12-04", Mode: models.PaymentCash}},
		{students[1], ledger.Payment{Semester: models.SemesterOne, Amount: fee.Div(decimal.NewFromInt(2)), Date: "2023-07-10", Mode: models.PaymentOnline}},
	}
	for _, p := range payments {
		if _, err := fees.RecordPayment(ctx, p.student.ID, "", p.payment); err != nil {
			return errors.Wrapf(err, "seeding payment for %s", p.student.ID)
		}
	}
	return nil
}
