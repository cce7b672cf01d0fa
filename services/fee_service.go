package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/services/ledger"
	"udaan_go/services/websocket"
	"udaan_go/utils"
)

const notifyTimeout = 15 * time.Second

// EventPublisher pushes live events to connected dashboards.
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// UserPublisher pushes a live event to the sessions of one user.
type UserPublisher interface {
	PublishToUser(username, eventType string, data interface{})
}

// Notifier delivers a text message to the school's group chat.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// FeeService binds the ledger engine to the record store.
// Payments hold the student directory's write lock so that the student check,
// derive and write happen as one step and cannot interleave with a delete.
type FeeService struct {
	store    database.Store
	engine   *ledger.Engine
	students *StudentService
	settings *SettingsService

	publisher EventPublisher
	notifier  Notifier
}

func NewFeeService(store database.Store, engine *ledger.Engine, students *StudentService, settings *SettingsService) *FeeService {
	return &FeeService{store: store, engine: engine, students: students, settings: settings}
}

// SetPublisher enables websocket events for recorded payments.
func (s *FeeService) SetPublisher(p EventPublisher) { s.publisher = p }

// SetNotifier enables chat receipts for recorded payments.
func (s *FeeService) SetNotifier(n Notifier) { s.notifier = n }

// Engine exposes the ledger engine the service was built with.
func (s *FeeService) Engine() *ledger.Engine { return s.engine }

// FeeLedger is a record together with its derived semester positions.
type FeeLedger struct {
	Record    models.FeeRecord         `json:"record"`
	Semesters [2]ledger.SemesterStatus `json:"semesters"`
	TotalPaid decimal.Decimal          `json:"totalPaid"`
	Student   utils.StudentShort       `json:"student"`
}

// Receipt is issued for every recorded payment.
type Receipt struct {
	SchoolName   string                `json:"schoolName"`
	ReceiptNo    string                `json:"receiptNo"`
	Student      utils.StudentShort    `json:"student"`
	AcademicYear string                `json:"academicYear"`
	Transaction  models.Transaction    `json:"transaction"`
	Semester     ledger.SemesterStatus `json:"semester"`
	Record       models.FeeRecord      `json:"record"`
}

// Text renders the receipt as a chat message.
func (r Receipt) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\nFee Receipt %s\n", r.SchoolName, r.ReceiptNo)
	fmt.Fprintf(&b, "Student: %s (Roll %d, %s-%s)\n", r.Student.FullName, r.Student.RollNo, r.Student.ClassName, r.Student.Section)
	fmt.Fprintf(&b, "Year: %s, %s\n", r.AcademicYear, r.Transaction.Semester)
	fmt.Fprintf(&b, "Paid: ₹%s by %s on %s\n", r.Transaction.Amount.StringFixed(2), r.Transaction.Type, r.Transaction.Date)
	fmt.Fprintf(&b, "Status: %s, due ₹%s", r.Semester.Status, r.Semester.DueAmount.StringFixed(2))
	return b.String()
}

func (s *FeeService) resolveYear(ctx context.Context, year string) string {
	if year = strings.TrimSpace(year); year != "" {
		return year
	}
	return s.settings.AcademicYear(ctx)
}

// loadRecord returns the stored record or the zero-state record.
func (s *FeeService) loadRecord(ctx context.Context, studentID, year string) (models.FeeRecord, error) {
	rec, ok, err := database.Find[models.FeeRecord](ctx, s.store, database.Fees, models.FeeRecordID(studentID, year))
	if err != nil {
		return models.FeeRecord{}, errors.Wrap(err, "loading fee record")
	}
	if !ok {
		return models.NewFeeRecord(studentID, year), nil
	}
	return rec, nil
}

// GetRecord returns a student's ledger for year. A student without payments
// gets the zero-state record; an unknown student is ErrNotFound.
func (s *FeeService) GetRecord(ctx context.Context, studentID, year string) (FeeLedger, error) {
	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return FeeLedger{}, err
	}
	rec, err := s.loadRecord(ctx, studentID, s.resolveYear(ctx, year))
	if err != nil {
		return FeeLedger{}, err
	}
	return FeeLedger{
		Record:    rec,
		Semesters: s.engine.Statuses(rec),
		TotalPaid: ledger.TotalPaid(rec),
		Student:   utils.ToStudentShort(st),
	}, nil
}

// SemesterStatus derives one semester of a student's ledger.
func (s *FeeService) SemesterStatus(ctx context.Context, studentID, year string, sem models.Semester) (ledger.SemesterStatus, error) {
	if !sem.Valid() {
		return ledger.SemesterStatus{}, utils.NewValidationError(ledger.ErrInvalidSemester,
			utils.FieldError{Field: "semester", Error: ledger.ErrInvalidSemester.Error()})
	}
	l, err := s.GetRecord(ctx, studentID, year)
	if err != nil {
		return ledger.SemesterStatus{}, err
	}
	return l.Semesters[sem-1], nil
}

// RecordPayment appends a payment to the student's record for year and
// persists the whole record. Nothing is written when validation fails.
func (s *FeeService) RecordPayment(ctx context.Context, studentID, year string, p ledger.Payment) (Receipt, error) {
	year = s.resolveYear(ctx, year)
	st, next, err := s.commitPayment(ctx, studentID, year, p)
	if err != nil {
		return Receipt{}, err
	}

	txn := next.Transactions[len(next.Transactions)-1]
	receipt := Receipt{
		SchoolName:   s.schoolName(ctx),
		ReceiptNo:    txn.ID,
		Student:      utils.ToStudentShort(st),
		AcademicYear: year,
		Transaction:  txn,
		Semester:     s.engine.DeriveSemesterStatus(next, txn.Semester),
		Record:       next,
	}

	logrus.WithFields(logrus.Fields{
		"student_id":     studentID,
		"academic_year":  year,
		"transaction_id": txn.ID,
		"semester":       int(txn.Semester),
		"amount":         txn.Amount.String(),
		"status":         receipt.Semester.Status,
	}).Info("Fee payment recorded")

	s.announce(receipt)
	return receipt, nil
}

func (s *FeeService) commitPayment(ctx context.Context, studentID, year string, p ledger.Payment) (models.Student, models.FeeRecord, error) {
	s.students.writes.Lock()
	defer s.students.writes.Unlock()

	st, err := s.students.Get(ctx, studentID)
	if err != nil {
		return models.Student{}, models.FeeRecord{}, err
	}
	rec, err := s.loadRecord(ctx, studentID, year)
	if err != nil {
		return models.Student{}, models.FeeRecord{}, err
	}
	next, err := s.engine.RecordPayment(rec, p)
	if err != nil {
		return models.Student{}, models.FeeRecord{}, err
	}
	if err := database.Put(ctx, s.store, database.Fees, next); err != nil {
		return models.Student{}, models.FeeRecord{}, errors.Wrap(err, "saving fee record")
	}
	return st, next, nil
}

// announce publishes the receipt without affecting the recorded payment.
func (s *FeeService) announce(r Receipt) {
	if s.publisher != nil {
		s.publisher.Publish(websocket.EventPaymentRecorded, r)
	}
	if s.notifier == nil {
		return
	}
	go func(text string) {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := s.notifier.Notify(ctx, text); err != nil {
			logrus.WithError(err).WithField("receipt_no", r.ReceiptNo).Warn("Failed to send fee receipt")
		}
	}(r.Text())
}

func (s *FeeService) schoolName(ctx context.Context) string {
	st, err := s.settings.Get(ctx)
	if err != nil {
		logrus.WithError(err).Warn("Using default school name")
	}
	return st.SchoolName
}

func (s *FeeService) load(ctx context.Context) ([]models.Student, []models.FeeRecord, error) {
	students, err := s.students.List(ctx, StudentFilter{})
	if err != nil {
		return nil, nil, err
	}
	records, err := database.List[models.FeeRecord](ctx, s.store, database.Fees)
	if err != nil {
		return nil, nil, errors.Wrap(err, "listing fee records")
	}
	return students, records, nil
}

// Rows lists the fee ledger for year.
func (s *FeeService) Rows(ctx context.Context, year string, filter models.FeeFilter, search string) ([]ledger.Row, error) {
	if filter == "" {
		filter = models.FeeFilterAll
	}
	if !filter.Valid() {
		err := errors.New("status must be ALL, PAID, PARTIAL or PENDING")
		return nil, utils.NewValidationError(err, utils.FieldError{Field: "status", Error: err.Error()})
	}
	students, records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Rows(students, records, s.resolveYear(ctx, year), filter, search), nil
}

// Summary returns revenue figures for year.
func (s *FeeService) Summary(ctx context.Context, year string) (ledger.Summary, error) {
	students, records, err := s.load(ctx)
	if err != nil {
		return ledger.Summary{}, err
	}
	return s.engine.Summarize(students, records, s.resolveYear(ctx, year)), nil
}

// Defaulters lists students with at least one unpaid semester in year.
func (s *FeeService) Defaulters(ctx context.Context, year string) ([]ledger.Row, error) {
	rows, err := s.Rows(ctx, year, models.FeeFilterAll, "")
	if err != nil {
		return nil, err
	}
	out := make([]ledger.Row, 0, len(rows))
	for _, r := range rows {
		if s.engine.IsDefaulter(r.Record) {
			out = append(out, r)
		}
	}
	return out, nil
}

// DefaulterDigest renders the defaulters of the current year as a chat message.
// It returns an empty text when nobody owes fees.
func (s *FeeService) DefaulterDigest(ctx context.Context) (string, int, error) {
	year := s.settings.AcademicYear(ctx)
	rows, err := s.Defaulters(ctx, year)
	if err != nil {
		return "", 0, err
	}
	if len(rows) == 0 {
		return "", 0, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Fee defaulters %s (%d)\n", year, len(rows))
	for _, r := range rows {
		due := r.Semester1.DueAmount.Add(r.Semester2.DueAmount)
		fmt.Fprintf(&b, "- %d %s (%s-%s): due ₹%s\n", r.Student.RollNo, r.Student.FullName,
			r.Student.ClassName, r.Student.Section, due.StringFixed(2))
	}
	return strings.TrimRight(b.String(), "\n"), len(rows), nil
}
