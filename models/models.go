package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// amounts are persisted as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Student is a directory entry. ID and RollNo are assigned on registration.
type Student struct {
	ID            string `json:"id"`
	RollNo        int    `json:"rollNo" validate:"gt=0"`
	FullName      string `json:"fullName" validate:"required,min=3,personname"`
	Gender        Gender `json:"gender" validate:"required,oneof=Male Female Other"`
	DateOfBirth   string `json:"dateOfBirth" validate:"required,isodate,pastdate"`
	ContactNumber string `json:"contactNumber" validate:"required,phone10"`
	Address       string `json:"address" validate:"required,notblank,min=5"`
	ClassName     string `json:"className" validate:"required,notblank"`
	Section       string `json:"section" validate:"required,notblank"`
	AdmissionDate string `json:"admissionDate" validate:"required,isodate"`
}

func (s Student) RecordID() string { return s.ID }

// StudentID formats the registration id for a roll number.
func StudentID(year, rollNo int) string {
	return fmt.Sprintf("UV-%d-%d", year, rollNo)
}

type Teacher struct {
	ID            string          `json:"id"`
	FullName      string          `json:"fullName" validate:"required,notblank"`
	Email         string          `json:"email" validate:"omitempty,email"`
	Subject       string          `json:"subject" validate:"required,notblank"`
	Qualification string          `json:"qualification"`
	Phone         string          `json:"phone" validate:"omitempty,phone10"`
	Salary        decimal.Decimal `json:"salary" validate:"gt=0"`
	JoinDate      string          `json:"joinDate" validate:"omitempty,isodate"`
}

func (t Teacher) RecordID() string { return t.ID }

type TeacherAttendance struct {
	ID        string                  `json:"id"`
	TeacherID string                  `json:"teacherId"`
	Date      string                  `json:"date"`
	Status    TeacherAttendanceStatus `json:"status"`
}

func (a TeacherAttendance) RecordID() string { return a.ID }

func TeacherAttendanceID(teacherID, date string) string {
	return teacherID + "-" + date
}

// Transaction is one immutable fee payment.
type Transaction struct {
	ID       string          `json:"id"`
	Date     string          `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
	Type     PaymentMode     `json:"type"`
	Semester Semester        `json:"semester"`
}

// FeeRecord holds every payment of a student for one academic year.
// Semester1Paid and Semester2Paid mirror the derived status and are
// rewritten together with every appended transaction.
type FeeRecord struct {
	ID              string        `json:"id"`
	StudentID       string        `json:"studentId"`
	AcademicYear    string        `json:"academicYear"`
	Semester1Paid   bool          `json:"semester1Paid"`
	Semester2Paid   bool          `json:"semester2Paid"`
	LastPaymentDate string        `json:"lastPaymentDate,omitempty"`
	Transactions    []Transaction `json:"transactions"`
}

func (f FeeRecord) RecordID() string { return f.ID }

func FeeRecordID(studentID, academicYear string) string {
	return studentID + "-" + academicYear
}

// NewFeeRecord returns the zero-state record for a student and year.
func NewFeeRecord(studentID, academicYear string) FeeRecord {
	return FeeRecord{
		ID:           FeeRecordID(studentID, academicYear),
		StudentID:    studentID,
		AcademicYear: academicYear,
		Transactions: []Transaction{},
	}
}

type AttendanceRecord struct {
	ID        string           `json:"id"`
	StudentID string           `json:"studentId"`
	Date      string           `json:"date"`
	Status    AttendanceStatus `json:"status"`
}

func (a AttendanceRecord) RecordID() string { return a.ID }

func AttendanceID(studentID, date string) string {
	return studentID + "-" + date
}

type ExamResult struct {
	ID            string   `json:"id"`
	StudentID     string   `json:"studentId"`
	ExamType      ExamType `json:"examType"`
	Subject       string   `json:"subject"`
	MarksObtained float64  `json:"marksObtained"`
	TotalMarks    int      `json:"totalMarks"`
}

func (e ExamResult) RecordID() string { return e.ID }

// MaxMarks is the fixed total for every paper.
const MaxMarks = 100

func ExamResultID(studentID string, examType ExamType, subject string) string {
	return studentID + "-" + string(examType) + "-" + subject
}

// SchoolSettings is stored as a single record.
type SchoolSettings struct {
	ID            string    `json:"id"`
	SchoolName    string    `json:"schoolName"`
	AcademicYear  string    `json:"academicYear"`
	LineGroupID   string    `json:"lineGroupId,omitempty"`
	LineGroupName string    `json:"lineGroupName,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

const SchoolSettingsID = "school"

func (s SchoolSettings) RecordID() string { return s.ID }

// ActivityLog records a successful mutating API call.
type ActivityLog struct {
	ID         string    `json:"id"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId,omitempty"`
	Username   string    `json:"username"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	Status     int       `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (l ActivityLog) RecordID() string { return l.ID }
