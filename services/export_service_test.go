package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"

	"udaan_go/models"
)

func TestStudentsCSVExport(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "Aarav Sharma")
	env.addStudent(t, "Diya Patel")
	exports := NewExportService(env.students, env.fees)

	var buf bytes.Buffer
	n, err := exports.StudentsCSV(context.Background(), &buf)
	if err != nil || n != 2 {
		t.Fatalf("StudentsCSV = %d, %v", n, err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("export has %d lines want 3", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(StudentColumns, ",") {
		t.Fatalf("unexpected header %v", rows[0])
	}
	if rows[1][1] != "1001" || rows[1][2] != "Aarav Sharma" || rows[2][2] != "Diya Patel" {
		t.Fatalf("unexpected rows %v", rows[1:])
	}
}

func TestImportStudentsCSVReportsBadRows(t *testing.T) {
	env := newTestEnv(t)
	exports := NewExportService(env.students, env.fees)

	upload := strings.Join([]string{
		"Full Name,Gender,DOB,Contact,Address,Class,Section,Admission Date",
		"Aarav Sharma,Male,2012-04-15,9876543210,12 MG Road,6,A,2019-06-01",
		",,,,,,,",
		"Diya Patel,Female,2012-05-20,12345,4 Lake View,6,A,2019-06-01",
		"Kabir Singh,Male,2011-01-10,9123456789,7 Hill Road,7,B,2018-06-01",
	}, "\n")

	res, err := exports.ImportStudents(context.Background(), "students.csv", strings.NewReader(upload))
	if err != nil {
		t.Fatalf("ImportStudents: %v", err)
	}
	if res.Total != 3 || res.Inserted != 2 || res.Failed != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Errors) != 1 || res.Errors[0].Row != 4 {
		t.Fatalf("expected the Diya Patel row (4) to fail, got %+v", res.Errors)
	}

	all, _ := env.students.List(context.Background(), StudentFilter{})
	if len(all) != 2 || all[1].RollNo != 1002 {
		t.Fatalf("imported students = %+v", all)
	}
}

func TestImportStudentsRejectsUnusableFiles(t *testing.T) {
	env := newTestEnv(t)
	exports := NewExportService(env.students, env.fees)

	cases := []struct {
		name, file, body string
	}{
		{"unsupported extension", "students.txt", "Full Name\n"},
		{"empty file", "students.csv", ""},
		{"missing column", "students.csv", "Full Name,Gender\nAarav Sharma,Male\n"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if _, err := exports.ImportStudents(context.Background(), tc.file, strings.NewReader(tc.body)); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestStudentsXLSXRoundTrip(t *testing.T) {
	src := newTestEnv(t)
	src.addStudent(t, "Aarav Sharma")
	src.addStudent(t, "Diya Patel")
	buf, err := NewExportService(src.students, src.fees).StudentsXLSX(context.Background())
	if err != nil {
		t.Fatalf("StudentsXLSX: %v", err)
	}

	dst := newTestEnv(t)
	res, err := NewExportService(dst.students, dst.fees).ImportStudents(context.Background(), "students.xlsx", buf)
	if err != nil {
		t.Fatalf("ImportStudents: %v", err)
	}
	if res.Inserted != 2 || res.Failed != 0 {
		t.Fatalf("unexpected import result %+v", res)
	}
	all, _ := dst.students.List(context.Background(), StudentFilter{})
	if all[0].FullName != "Aarav Sharma" || all[0].Address != "12 MG Road, Pune" || all[0].Gender != models.GenderFemale {
		t.Fatalf("round trip lost data: %+v", all[0])
	}
}

func TestFeesXLSXExport(t *testing.T) {
	env := newTestEnv(t)
	st := env.addStudent(t, "Aarav Sharma")
	env.pay(t, st.ID, models.SemesterOne, 5000)

	buf, err := NewExportService(env.students, env.fees).FeesXLSX(context.Background(), "")
	if err != nil {
		t.Fatalf("FeesXLSX: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("empty workbook")
	}
}
