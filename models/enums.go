package models

import "fmt"

// Semester is the half of an academic year a fee payment applies to.
type Semester int

const (
	SemesterOne Semester = 1
	SemesterTwo Semester = 2
)

// Semesters lists every semester in order.
var Semesters = []Semester{SemesterOne, SemesterTwo}

func (s Semester) Valid() bool {
	switch s {
	case SemesterOne, SemesterTwo:
		return true
	default:
		return false
	}
}

func (s Semester) String() string {
	return fmt.Sprintf("Semester %d", int(s))
}

// PaymentMode is how a fee transaction was paid.
type PaymentMode string

const (
	PaymentCash   PaymentMode = "CASH"
	PaymentUPI    PaymentMode = "UPI"
	PaymentCheque PaymentMode = "CHEQUE"
	PaymentOnline PaymentMode = "ONLINE"
)

var PaymentModes = []PaymentMode{PaymentCash, PaymentUPI, PaymentCheque, PaymentOnline}

func (m PaymentMode) Valid() bool {
	switch m {
	case PaymentCash, PaymentUPI, PaymentCheque, PaymentOnline:
		return true
	default:
		return false
	}
}

// FeeStatus is derived from the transactions of one semester; it is never stored.
type FeeStatus string

const (
	FeePaid    FeeStatus = "PAID"
	FeePartial FeeStatus = "PARTIAL"
	FeePending FeeStatus = "PENDING"
)

func (s FeeStatus) Valid() bool {
	switch s {
	case FeePaid, FeePartial, FeePending:
		return true
	default:
		return false
	}
}

// AttendanceStatus is the daily mark for a student.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "Present"
	AttendanceAbsent  AttendanceStatus = "Absent"
	AttendanceLate    AttendanceStatus = "Late"
	AttendanceExcused AttendanceStatus = "Excused"
)

var AttendanceStatuses = []AttendanceStatus{AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceExcused:
		return true
	default:
		return false
	}
}

// TeacherAttendanceStatus is the daily mark for a teacher.
type TeacherAttendanceStatus string

const (
	TeacherPresent TeacherAttendanceStatus = "Present"
	TeacherAbsent  TeacherAttendanceStatus = "Absent"
)

func (s TeacherAttendanceStatus) Valid() bool {
	switch s {
	case TeacherPresent, TeacherAbsent:
		return true
	default:
		return false
	}
}

// ExamType names an examination sitting.
type ExamType string

const (
	ExamMidTerm ExamType = "Mid-Term"
	ExamFinal   ExamType = "Final"
)

var ExamTypes = []ExamType{ExamMidTerm, ExamFinal}

func (e ExamType) Valid() bool {
	switch e {
	case ExamMidTerm, ExamFinal:
		return true
	default:
		return false
	}
}

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	default:
		return false
	}
}

// Subjects offered for marks entry.
var Subjects = []string{"Mathematics", "Science", "English", "Social Studies", "Hindi"}

// IsSubject reports whether name is one of Subjects.
func IsSubject(name string) bool {
	for _, s := range Subjects {
		if s == name {
			return true
		}
	}
	return false
}

// FeeFilter selects rows of the fee ledger list.
type FeeFilter string

const (
	FeeFilterAll     FeeFilter = "ALL"
	FeeFilterPaid    FeeFilter = "PAID"
	FeeFilterPartial FeeFilter = "PARTIAL"
	FeeFilterPending FeeFilter = "PENDING"
)

func (f FeeFilter) Valid() bool {
	switch f {
	case FeeFilterAll, FeeFilterPaid, FeeFilterPartial, FeeFilterPending:
		return true
	default:
		return false
	}
}
