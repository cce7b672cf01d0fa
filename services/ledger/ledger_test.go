package ledger

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"udaan_go/models"
	"udaan_go/utils"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func txn(id string, sem models.Semester, amount int64) models.Transaction {
	return models.Transaction{ID: id, Date: "2023-07-01", Amount: d(amount), Type: models.PaymentCash, Semester: sem}
}

func fixedEngine() *Engine {
	return NewEngine(d(11000)).WithClock(func() time.Time {
		return time.Date(2023, 7, 1, 10, 0, 0, 0, time.UTC)
	})
}

func TestDeriveSemesterStatus(t *testing.T) {
	e := NewEngine(d(11000))
	cases := []struct {
		name   string
		txns   []models.Transaction
		sem    models.Semester
		paid   int64
		due    int64
		status models.FeeStatus
	}{
		{"empty", nil, models.SemesterOne, 0, 11000, models.FeePending},
		{"partial", []models.Transaction{txn("a", 1, 5000)}, models.SemesterOne, 5000, 6000, models.FeePartial},
		{"exact", []models.Transaction{txn("a", 1, 5000), txn("b", 1, 6000)}, models.SemesterOne, 11000, 0, models.FeePaid},
		{"other semester ignored", []models.Transaction{txn("a", 2, 11000)}, models.SemesterOne, 0, 11000, models.FeePending},
		{"legacy overpayment", []models.Transaction{txn("a", 2, 12000)}, models.SemesterTwo, 12000, -1000, models.FeePaid},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			rec := models.FeeRecord{ID: "s-2023-2024", Transactions: tc.txns}
			got := e.DeriveSemesterStatus(rec, tc.sem)
			if !got.PaidAmount.Equal(d(tc.paid)) {
				t.Fatalf("paid = %s want %d", got.PaidAmount, tc.paid)
			}
			if !got.DueAmount.Equal(d(tc.due)) {
				t.Fatalf("due = %s want %d", got.DueAmount, tc.due)
			}
			if got.Status != tc.status {
				t.Fatalf("status = %s want %s", got.Status, tc.status)
			}
		})
	}
}

func TestDeriveIsOrderIndependent(t *testing.T) {
	e := NewEngine(d(11000))
	base := []models.Transaction{txn("a", 1, 1000), txn("b", 1, 2500), txn("c", 2, 400), txn("e", 1, 7500)}
	perms := [][]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	var first [2]SemesterStatus
	for i, p := range perms {
		txns := make([]models.Transaction, 0, len(p))
		for _, idx := range p {
			txns = append(txns, base[idx])
		}
		st := e.Statuses(models.FeeRecord{Transactions: txns})
		if i == 0 {
			first = st
			continue
		}
		for s := range st {
			if !st[s].PaidAmount.Equal(first[s].PaidAmount) || st[s].Status != first[s].Status {
				t.Fatalf("permutation %v changed semester %d: %+v vs %+v", p, s+1, st[s], first[s])
			}
		}
	}
	if first[0].Status != models.FeePaid || first[1].Status != models.FeePartial {
		t.Fatalf("unexpected statuses %+v", first)
	}
}

func TestRecordPaymentScenario(t *testing.T) {
	e := fixedEngine()
	rec := models.NewFeeRecord("UV-2023-1001", "2023-2024")

	rec, err := e.RecordPayment(rec, Payment{Semester: 1, Amount: d(5000), Date: "2023-07-01", Mode: models.PaymentCash})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	st := e.DeriveSemesterStatus(rec, 1)
	if st.Status != models.FeePartial || !st.DueAmount.Equal(d(6000)) {
		t.Fatalf("after first payment: %+v", st)
	}
	if rec.Semester1Paid {
		t.Fatal("semester1Paid should be false while partial")
	}
	if rec.Transactions[0].ID != "TXN-1688205600000" {
		t.Fatalf("unexpected generated id %q", rec.Transactions[0].ID)
	}

	_, err = e.RecordPayment(rec, Payment{Semester: 1, Amount: d(7000), Date: "2023-07-02", Mode: models.PaymentUPI, TransactionID: "T2"})
	if !errors.Is(err, ErrAmountExceedsDue) {
		t.Fatalf("expected overpayment rejection, got %v", err)
	}
	if !utils.IsValidationError(err) || !strings.Contains(err.Error(), "6000") {
		t.Fatalf("overpayment error should be a validation error naming 6000: %v", err)
	}

	rec, err = e.RecordPayment(rec, Payment{Semester: 1, Amount: d(6000), Date: "2023-08-10", Mode: models.PaymentOnline, TransactionID: "T3"})
	if err != nil {
		t.Fatalf("settling payment: %v", err)
	}
	if e.DeriveSemesterStatus(rec, 1).Status != models.FeePaid || !rec.Semester1Paid || rec.Semester2Paid {
		t.Fatalf("expected semester 1 paid only: %+v", rec)
	}
	if rec.LastPaymentDate != "2023-08-10" {
		t.Fatalf("last payment date = %q", rec.LastPaymentDate)
	}

	_, err = e.RecordPayment(rec, Payment{Semester: 1, Amount: d(1), Date: "2023-08-11", Mode: models.PaymentCash, TransactionID: "T4"})
	if !errors.Is(err, ErrSemesterPaid) {
		t.Fatalf("expected paid semester rejection, got %v", err)
	}
}

func TestRecordPaymentRejectsWithoutMutation(t *testing.T) {
	e := fixedEngine()
	rec := models.FeeRecord{ID: "r", Transactions: []models.Transaction{txn("a", 1, 1000)}}

	cases := []struct {
		name string
		p    Payment
		want error
	}{
		{"zero", Payment{Semester: 1, Amount: d(0), Date: "2023-07-01", Mode: models.PaymentCash}, ErrNonPositiveAmount},
		{"negative", Payment{Semester: 1, Amount: d(-5), Date: "2023-07-01", Mode: models.PaymentCash}, ErrNonPositiveAmount},
		{"bad semester", Payment{Semester: 3, Amount: d(5), Date: "2023-07-01", Mode: models.PaymentCash}, ErrInvalidSemester},
		{"bad mode", Payment{Semester: 1, Amount: d(5), Date: "2023-07-01", Mode: "BARTER"}, ErrInvalidPaymentMode},
		{"bad date", Payment{Semester: 1, Amount: d(5), Date: "01/07/2023", Mode: models.PaymentCash}, ErrInvalidPaymentDate},
		{"duplicate id", Payment{Semester: 1, Amount: d(5), Date: "2023-07-01", Mode: models.PaymentCash, TransactionID: "a"}, ErrDuplicateTransaction},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.RecordPayment(rec, tc.p)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %T", err)
			}
			if len(got.Transactions) != 1 || len(rec.Transactions) != 1 {
				t.Fatalf("record mutated on rejection")
			}
		})
	}
}

func TestRecordPaymentDoesNotAliasInput(t *testing.T) {
	e := fixedEngine()
	txns := make([]models.Transaction, 1, 4)
	txns[0] = txn("a", 2, 1000)
	rec := models.FeeRecord{ID: "r", Transactions: txns}

	next, err := e.RecordPayment(rec, Payment{Semester: 2, Amount: d(500), Date: "2023-07-03", Mode: models.PaymentCheque, TransactionID: "chq-1"})
	if err != nil {
		t.Fatalf("cheque payment: %v", err)
	}
	if len(rec.Transactions) != 1 {
		t.Fatal("input record gained a transaction")
	}
	next.Transactions[0].Amount = d(1)
	if !rec.Transactions[0].Amount.Equal(d(1000)) {
		t.Fatal("returned record shares backing array with input")
	}
	if next.Transactions[1].Type != models.PaymentCheque {
		t.Fatalf("cheque not stored: %+v", next.Transactions[1])
	}
}

func TestFlagsMirrorDerivedStatus(t *testing.T) {
	e := fixedEngine()
	rec := models.NewFeeRecord("s", "2023-2024")
	payments := []Payment{
		{Semester: 2, Amount: d(11000), Date: "2023-07-01", Mode: models.PaymentUPI, TransactionID: "1"},
		{Semester: 1, Amount: d(3000), Date: "2023-07-02", Mode: models.PaymentCash, TransactionID: "2"},
		{Semester: 1, Amount: d(8000), Date: "2023-07-03", Mode: models.PaymentCash, TransactionID: "3"},
	}
	for _, p := range payments {
		var err error
		rec, err = e.RecordPayment(rec, p)
		if err != nil {
			t.Fatalf("payment %s: %v", p.TransactionID, err)
		}
		st := e.Statuses(rec)
		if rec.Semester1Paid != (st[0].Status == models.FeePaid) || rec.Semester2Paid != (st[1].Status == models.FeePaid) {
			t.Fatalf("flags out of sync after %s: %+v", p.TransactionID, rec)
		}
	}
	if !rec.Semester1Paid || !rec.Semester2Paid {
		t.Fatalf("expected both semesters paid: %+v", rec)
	}
}

func TestNewEngineFallsBackToDefaultFee(t *testing.T) {
	if !NewEngine(decimal.Zero).Fee().Equal(DefaultSemesterFee) {
		t.Fatal("expected default fee")
	}
}

func TestGeneratedIDsDoNotCollide(t *testing.T) {
	e := fixedEngine()
	rec := models.NewFeeRecord("UV-2023-1001", "2023-2024")
	var err error
	for i := 0; i < 3; i++ {
		rec, err = e.RecordPayment(rec, Payment{Semester: 2, Amount: d(100), Date: "2023-07-01", Mode: models.PaymentCash})
		if err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
	}
	want := []string{"TXN-1688205600000", "TXN-1688205600000-2", "TXN-1688205600000-3"}
	for i, w := range want {
		if rec.Transactions[i].ID != w {
			t.Fatalf("transaction %d id = %q want %q", i, rec.Transactions[i].ID, w)
		}
	}
}
