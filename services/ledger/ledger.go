// Package ledger derives per-semester fee status from a fee record's
// transactions and records new payments against it.
//
// Status is never stored: paid is the sum of the semester's transactions,
// due is the fee minus paid, and the semester is PAID, PARTIAL or PENDING
// accordingly. The engine is pure; persistence belongs to the caller.
package ledger

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"udaan_go/models"
	"udaan_go/utils"
)

// DefaultSemesterFee is the reference fee for one semester.
var DefaultSemesterFee = decimal.NewFromInt(11000)

var (
	ErrNonPositiveAmount    = errors.New("amount must be greater than zero")
	ErrAmountExceedsDue     = errors.New("amount exceeds the due balance")
	ErrSemesterPaid         = errors.New("semester is already fully paid")
	ErrInvalidSemester      = errors.New("semester must be 1 or 2")
	ErrInvalidPaymentMode   = errors.New("payment mode must be CASH, UPI, CHEQUE or ONLINE")
	ErrInvalidPaymentDate   = errors.New("payment date must be YYYY-MM-DD")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")
)

// SemesterStatus is the derived payment position of one semester.
type SemesterStatus struct {
	Semester   models.Semester  `json:"semester"`
	PaidAmount decimal.Decimal  `json:"paidAmount"`
	DueAmount  decimal.Decimal  `json:"dueAmount"`
	Status     models.FeeStatus `json:"status"`
}

// Payment is the input of RecordPayment.
type Payment struct {
	Semester      models.Semester    `json:"semester"`
	Amount        decimal.Decimal    `json:"amount"`
	Date          string             `json:"date"`
	Mode          models.PaymentMode `json:"mode"`
	TransactionID string             `json:"transactionId,omitempty"`
}

type Engine struct {
	fee decimal.Decimal
	now func() time.Time
}

// NewEngine returns an engine charging fee per semester.
// A non-positive fee falls back to DefaultSemesterFee.
func NewEngine(fee decimal.Decimal) *Engine {
	if !fee.IsPositive() {
		fee = DefaultSemesterFee
	}
	return &Engine{fee: fee, now: time.Now}
}

// WithClock replaces the clock used for generated transaction ids.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Fee returns the per-semester fee.
func (e *Engine) Fee() decimal.Decimal { return e.fee }

// DeriveSemesterStatus sums the semester's transactions. It is independent
// of transaction order and never mutates rec.
func (e *Engine) DeriveSemesterStatus(rec models.FeeRecord, sem models.Semester) SemesterStatus {
	paid := decimal.Zero
	for _, t := range rec.Transactions {
		if t.Semester == sem {
			paid = paid.Add(t.Amount)
		}
	}
	return SemesterStatus{
		Semester:   sem,
		PaidAmount: paid,
		DueAmount:  e.fee.Sub(paid),
		Status:     e.statusFor(paid),
	}
}

func (e *Engine) statusFor(paid decimal.Decimal) models.FeeStatus {
	switch {
	case paid.GreaterThanOrEqual(e.fee):
		return models.FeePaid
	case paid.IsPositive():
		return models.FeePartial
	default:
		return models.FeePending
	}
}

// Statuses derives both semesters in order.
func (e *Engine) Statuses(rec models.FeeRecord) [2]SemesterStatus {
	return [2]SemesterStatus{
		e.DeriveSemesterStatus(rec, models.SemesterOne),
		e.DeriveSemesterStatus(rec, models.SemesterTwo),
	}
}

// RecordPayment validates p against rec and returns a new record with the
// transaction appended, both paid flags recomputed and the last payment date
// set. rec itself is left untouched; on error nothing changes.
func (e *Engine) RecordPayment(rec models.FeeRecord, p Payment) (models.FeeRecord, error) {
	if !p.Semester.Valid() {
		return rec, fieldError("semester", ErrInvalidSemester)
	}
	if !p.Mode.Valid() {
		return rec, fieldError("mode", ErrInvalidPaymentMode)
	}
	if _, err := utils.ParseDate(p.Date); err != nil {
		return rec, fieldError("date", ErrInvalidPaymentDate)
	}
	if !p.Amount.IsPositive() {
		return rec, fieldError("amount", ErrNonPositiveAmount)
	}

	current := e.DeriveSemesterStatus(rec, p.Semester)
	switch current.Status {
	case models.FeePaid:
		return rec, fieldError("semester", fmt.Errorf("%w: %s", ErrSemesterPaid, p.Semester))
	case models.FeePartial, models.FeePending:
	default:
		panic(fmt.Sprintf("ledger: unhandled fee status %q", current.Status))
	}
	if p.Amount.GreaterThan(current.DueAmount) {
		return rec, fieldError("amount",
			fmt.Errorf("%w of %s", ErrAmountExceedsDue, current.DueAmount.String()))
	}

	txnID := p.TransactionID
	switch {
	case txnID == "":
		txnID = e.freshTransactionID(rec)
	case hasTransaction(rec, txnID):
		return rec, fieldError("transactionId", fmt.Errorf("%w: %s", ErrDuplicateTransaction, txnID))
	}

	next := rec
	next.Transactions = make([]models.Transaction, 0, len(rec.Transactions)+1)
	next.Transactions = append(next.Transactions, rec.Transactions...)
	next.Transactions = append(next.Transactions, models.Transaction{
		ID:       txnID,
		Date:     p.Date,
		Amount:   p.Amount,
		Type:     p.Mode,
		Semester: p.Semester,
	})
	next.LastPaymentDate = p.Date
	e.syncFlags(&next)
	return next, nil
}

// freshTransactionID derives an id from the clock, suffixed when two
// payments on the same record land in the same millisecond.
func (e *Engine) freshTransactionID(rec models.FeeRecord) string {
	base := utils.GenerateTransactionID(e.now().UnixMilli())
	id := base
	for n := 2; hasTransaction(rec, id); n++ {
		id = fmt.Sprintf("%s-%d", base, n)
	}
	return id
}

func hasTransaction(rec models.FeeRecord, id string) bool {
	for _, t := range rec.Transactions {
		if t.ID == id {
			return true
		}
	}
	return false
}

// syncFlags rewrites the legacy paid flags from fresh derived status.
func (e *Engine) syncFlags(rec *models.FeeRecord) {
	st := e.Statuses(*rec)
	rec.Semester1Paid = st[0].Status == models.FeePaid
	rec.Semester2Paid = st[1].Status == models.FeePaid
}

// TotalPaid sums every transaction of rec.
func TotalPaid(rec models.FeeRecord) decimal.Decimal {
	total := decimal.Zero
	for _, t := range rec.Transactions {
		total = total.Add(t.Amount)
	}
	return total
}

func fieldError(field string, err error) error {
	return utils.NewValidationError(err, utils.FieldError{Field: field, Error: err.Error()})
}
