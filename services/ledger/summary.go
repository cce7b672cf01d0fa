package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"udaan_go/models"
	"udaan_go/utils"
)

// Summary is recomputed from the full student and fee collections on every call.
type Summary struct {
	AcademicYear         string          `json:"academicYear"`
	SemesterFee          decimal.Decimal `json:"semesterFee"`
	TotalStudents        int             `json:"totalStudents"`
	TotalExpectedRevenue decimal.Decimal `json:"totalExpectedRevenue"`
	TotalCollected       decimal.Decimal `json:"totalCollected"`
	PendingRevenue       decimal.Decimal `json:"pendingRevenue"`
	DefaultersCount      int             `json:"defaultersCount"`
}

// Summarize computes revenue and defaulter figures for academicYear.
// Collected revenue counts every transaction of every record passed in.
func (e *Engine) Summarize(students []models.Student, records []models.FeeRecord, academicYear string) Summary {
	expected := e.fee.Mul(decimal.NewFromInt(int64(len(students) * len(models.Semesters))))

	collected := decimal.Zero
	for _, rec := range records {
		collected = collected.Add(TotalPaid(rec))
	}

	byID := indexRecords(records)
	defaulters := 0
	for _, s := range students {
		rec := recordFor(byID, s.ID, academicYear)
		if e.IsDefaulter(rec) {
			defaulters++
		}
	}

	return Summary{
		AcademicYear:         academicYear,
		SemesterFee:          e.fee,
		TotalStudents:        len(students),
		TotalExpectedRevenue: expected,
		TotalCollected:       collected,
		PendingRevenue:       expected.Sub(collected),
		DefaultersCount:      defaulters,
	}
}

// IsDefaulter reports whether either semester of rec is not PAID.
func (e *Engine) IsDefaulter(rec models.FeeRecord) bool {
	for _, st := range e.Statuses(rec) {
		if st.Status != models.FeePaid {
			return true
		}
	}
	return false
}

// Row is one student's line in the fee ledger list.
type Row struct {
	Student   utils.StudentShort `json:"student"`
	Record    models.FeeRecord   `json:"record"`
	Semester1 SemesterStatus     `json:"semester1"`
	Semester2 SemesterStatus     `json:"semester2"`
	TotalPaid decimal.Decimal    `json:"totalPaid"`
}

// Matches applies a list filter to the row.
func (r Row) Matches(filter models.FeeFilter) bool {
	switch filter {
	case models.FeeFilterAll, "":
		return true
	case models.FeeFilterPaid:
		return r.Semester1.Status == models.FeePaid && r.Semester2.Status == models.FeePaid
	case models.FeeFilterPartial:
		return r.Semester1.Status == models.FeePartial || r.Semester2.Status == models.FeePartial
	case models.FeeFilterPending:
		return r.Semester1.Status == models.FeePending || r.Semester2.Status == models.FeePending
	default:
		panic(fmt.Sprintf("ledger: unhandled fee filter %q", filter))
	}
}

// Rows builds the filtered ledger list sorted by roll number. search matches
// the student's name (case-insensitive) or roll number.
func (e *Engine) Rows(students []models.Student, records []models.FeeRecord, academicYear string, filter models.FeeFilter, search string) []Row {
	byID := indexRecords(records)
	search = strings.TrimSpace(search)

	rows := make([]Row, 0, len(students))
	for _, s := range students {
		if search != "" && !utils.ContainsFold(s.FullName, search) && !strings.Contains(strconv.Itoa(s.RollNo), search) {
			continue
		}
		rec := recordFor(byID, s.ID, academicYear)
		st := e.Statuses(rec)
		row := Row{
			Student:   utils.ToStudentShort(s),
			Record:    rec,
			Semester1: st[0],
			Semester2: st[1],
			TotalPaid: TotalPaid(rec),
		}
		if row.Matches(filter) {
			rows = append(rows, row)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Student.RollNo < rows[j].Student.RollNo })
	return rows
}

func indexRecords(records []models.FeeRecord) map[string]models.FeeRecord {
	byID := make(map[string]models.FeeRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}
	return byID
}

func recordFor(byID map[string]models.FeeRecord, studentID, academicYear string) models.FeeRecord {
	if rec, ok := byID[models.FeeRecordID(studentID, academicYear)]; ok {
		return rec
	}
	return models.NewFeeRecord(studentID, academicYear)
}
