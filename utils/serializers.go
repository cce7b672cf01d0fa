package utils

import "udaan_go/models"

// StudentShort is the compact student embedded in list rows and receipts.
type StudentShort struct {
	ID        string `json:"id"`
	RollNo    int    `json:"rollNo"`
	FullName  string `json:"fullName"`
	ClassName string `json:"className"`
	Section   string `json:"section"`
}

func ToStudentShort(s models.Student) StudentShort {
	return StudentShort{
		ID:        s.ID,
		RollNo:    s.RollNo,
		FullName:  s.FullName,
		ClassName: s.ClassName,
		Section:   s.Section,
	}
}

// TeacherShort is the compact teacher embedded in attendance views.
type TeacherShort struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Subject  string `json:"subject"`
}

func ToTeacherShort(t models.Teacher) TeacherShort {
	return TeacherShort{ID: t.ID, FullName: t.FullName, Subject: t.Subject}
}
