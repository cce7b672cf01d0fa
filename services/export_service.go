package services

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"udaan_go/models"
	"udaan_go/utils"
)

// StudentColumns is the header of student exports and imports.
var StudentColumns = []string{"ID", "Roll No", "Full Name", "Gender", "DOB", "Contact", "Address", "Class", "Section", "Admission Date"}

var (
	ledgerColumns      = []string{"Roll No", "Student ID", "Full Name", "Class", "Section", "Semester 1 Paid", "Semester 1 Status", "Semester 2 Paid", "Semester 2 Status", "Total Paid", "Last Payment"}
	transactionColumns = []string{"Transaction ID", "Student ID", "Full Name", "Date", "Semester", "Mode", "Amount"}

	// ErrUnsupportedFormat is returned for files other than csv and xlsx.
	ErrUnsupportedFormat = errors.New("unsupported file type (csv, xlsx)")
)

const (
	sheetStudents     = "Students"
	sheetLedger       = "Ledger"
	sheetTransactions = "Transactions"
)

// ExportService writes students and the fee ledger as CSV or XLSX and imports students.
type ExportService struct {
	students *StudentService
	fees     *FeeService
}

func NewExportService(students *StudentService, fees *FeeService) *ExportService {
	return &ExportService{students: students, fees: fees}
}

// ImportRowError explains why a data row was not imported. Row is 1-based and counts the header.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	FileName string           `json:"fileName"`
	Total    int              `json:"total"`
	Inserted int              `json:"inserted"`
	Failed   int              `json:"failed"`
	Created  []string         `json:"created"`
	Errors   []ImportRowError `json:"errors"`
}

func studentRow(s models.Student) []string {
	return []string{
		s.ID,
		strconv.Itoa(s.RollNo),
		s.FullName,
		string(s.Gender),
		s.DateOfBirth,
		s.ContactNumber,
		s.Address,
		s.ClassName,
		s.Section,
		s.AdmissionDate,
	}
}

// StudentsCSV writes every student, ordered by roll number.
func (s *ExportService) StudentsCSV(ctx context.Context, w io.Writer) (int, error) {
	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return 0, err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(StudentColumns); err != nil {
		return 0, errors.Wrap(err, "writing csv header")
	}
	for _, st := range students {
		if err := cw.Write(studentRow(st)); err != nil {
			return 0, errors.Wrap(err, "writing csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, errors.Wrap(err, "flushing csv")
	}
	return len(students), nil
}

// StudentsXLSX builds a workbook with a single Students sheet.
func (s *ExportService) StudentsXLSX(ctx context.Context) (*bytes.Buffer, error) {
	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetStudents); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if err := writeHeader(f, sheetStudents, StudentColumns); err != nil {
		return nil, err
	}
	for i, st := range students {
		row := []interface{}{st.ID, st.RollNo, st.FullName, string(st.Gender), st.DateOfBirth,
			st.ContactNumber, st.Address, st.ClassName, st.Section, st.AdmissionDate}
		if err := writeRow(f, sheetStudents, i+2, row); err != nil {
			return nil, err
		}
	}
	return f.WriteToBuffer()
}

// FeesXLSX builds the fee ledger workbook for year: one Ledger row per
// student and one Transactions row per payment.
func (s *ExportService) FeesXLSX(ctx context.Context, year string) (*bytes.Buffer, error) {
	rows, err := s.fees.Rows(ctx, year, models.FeeFilterAll, "")
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetLedger); err != nil {
		return nil, errors.Wrap(err, "naming sheet")
	}
	if _, err := f.NewSheet(sheetTransactions); err != nil {
		return nil, errors.Wrap(err, "creating sheet")
	}
	if err := writeHeader(f, sheetLedger, ledgerColumns); err != nil {
		return nil, err
	}
	if err := writeHeader(f, sheetTransactions, transactionColumns); err != nil {
		return nil, err
	}

	txnRow := 2
	for i, r := range rows {
		line := []interface{}{
			r.Student.RollNo, r.Student.ID, r.Student.FullName, r.Student.ClassName, r.Student.Section,
			r.Semester1.PaidAmount.InexactFloat64(), string(r.Semester1.Status),
			r.Semester2.PaidAmount.InexactFloat64(), string(r.Semester2.Status),
			r.TotalPaid.InexactFloat64(), r.Record.LastPaymentDate,
		}
		if err := writeRow(f, sheetLedger, i+2, line); err != nil {
			return nil, err
		}
		for _, t := range r.Record.Transactions {
			line := []interface{}{t.ID, r.Student.ID, r.Student.FullName, t.Date, int(t.Semester), string(t.Type), t.Amount.InexactFloat64()}
			if err := writeRow(f, sheetTransactions, txnRow, line); err != nil {
				return nil, err
			}
			txnRow++
		}
	}
	return f.WriteToBuffer()
}

func writeHeader(f *excelize.File, sheet string, columns []string) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := writeRow(f, sheet, 1, header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return errors.Wrap(err, "creating header style")
	}
	last, err := excelize.CoordinatesToCellName(len(columns), 1)
	if err != nil {
		return errors.Wrap(err, "header range")
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return errors.Wrap(err, "styling header")
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return errors.Wrap(err, "cell name")
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return errors.Wrapf(err, "writing %s row %d", sheet, row)
	}
	return nil
}

// ImportStudents registers every data row of a CSV or XLSX upload. Ids and
// roll numbers in the file are ignored; new ones are assigned. Rows that fail
// validation are reported and skipped.
func (s *ExportService) ImportStudents(ctx context.Context, fileName string, r io.Reader) (ImportResult, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return ImportResult{}, utils.NewValidationError(ErrUnsupportedFormat,
			utils.FieldError{Field: "file", Error: ErrUnsupportedFormat.Error()})
	}
	if err != nil {
		return ImportResult{}, utils.NewValidationError(errors.Wrap(err, "reading upload"),
			utils.FieldError{Field: "file", Error: err.Error()})
	}
	if len(rows) == 0 {
		err := errors.New("file is empty")
		return ImportResult{}, utils.NewValidationError(err, utils.FieldError{Field: "file", Error: err.Error()})
	}

	col := buildColumnIndex(rows[0])
	for _, key := range []string{"full name", "gender", "dob", "contact", "address", "class", "section", "admission date"} {
		if _, ok := col[key]; !ok {
			err := fmt.Errorf("missing column: %s", key)
			return ImportResult{}, utils.NewValidationError(err, utils.FieldError{Field: "file", Error: err.Error()})
		}
	}

	res := ImportResult{FileName: fileName, Created: []string{}, Errors: []ImportRowError{}}
	for i := 1; i < len(rows); i++ {
		raw := rows[i]
		if isRowEmpty(raw) {
			continue
		}
		res.Total++
		st := models.Student{
			FullName:      getValue(raw, col, "full name"),
			Gender:        models.Gender(getValue(raw, col, "gender")),
			DateOfBirth:   getValue(raw, col, "dob"),
			ContactNumber: getValue(raw, col, "contact"),
			Address:       getValue(raw, col, "address"),
			ClassName:     getValue(raw, col, "class"),
			Section:       getValue(raw, col, "section"),
			AdmissionDate: getValue(raw, col, "admission date"),
		}
		created, err := s.students.Create(ctx, st)
		if err != nil {
			if !utils.IsValidationError(err) {
				return res, err
			}
			res.Failed++
			res.Errors = append(res.Errors, ImportRowError{Row: i + 1, Message: rowMessage(err)})
			continue
		}
		res.Inserted++
		res.Created = append(res.Created, created.ID)
	}

	logrus.WithFields(logrus.Fields{
		"file":     fileName,
		"total":    res.Total,
		"inserted": res.Inserted,
		"failed":   res.Failed,
	}).Info("Student import finished")
	return res, nil
}

func rowMessage(err error) string {
	if ve, ok := utils.AsValidationError(err); ok && len(ve.Fields) > 0 {
		msgs := make([]string, 0, len(ve.Fields))
		for _, f := range ve.Fields {
			msgs = append(msgs, f.Error)
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

func readCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	// first sheet only
	sht := f.GetSheetName(0)
	if sht == "" {
		sht = "Sheet1"
	}
	return f.GetRows(sht)
}

// buildColumnIndex maps lower-cased header names to column positions.
func buildColumnIndex(header []string) map[string]int {
	col := map[string]int{}
	for idx, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if key == "" {
			continue
		}
		col[key] = idx
		// alternate spellings
		switch key {
		case "name":
			col["full name"] = idx
		case "date of birth":
			col["dob"] = idx
		case "contact number", "phone":
			col["contact"] = idx
		case "class name":
			col["class"] = idx
		}
	}
	return col
}

func isRowEmpty(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func getValue(row []string, col map[string]int, key string) string {
	if idx, ok := col[key]; ok && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}
