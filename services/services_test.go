package services

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"udaan_go/database"
	"udaan_go/models"
	"udaan_go/services/ledger"
)

type testEnv struct {
	store      *database.MemoryStore
	settings   *SettingsService
	students   *StudentService
	teachers   *TeacherService
	attendance *AttendanceService
	exams      *ExamService
	fees       *FeeService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mem := database.NewMemoryStore()
	env := buildTestEnv(mem)
	env.store = mem
	return env
}

// buildTestEnv wires the services over store; env.store stays nil unless
// the caller sets it.
func buildTestEnv(store database.Store) *testEnv {
	env := &testEnv{}
	env.settings = NewSettingsService(store, "Udaan Vidhyalay", "2023-2024", "")
	env.students = NewStudentService(store)
	env.teachers = NewTeacherService(store)
	env.attendance = NewAttendanceService(store, env.students)
	env.exams = NewExamService(store, env.students)
	env.fees = NewFeeService(store, ledger.NewEngine(decimal.NewFromInt(11000)), env.students, env.settings)
	return env
}

func demoStudent(name string) models.Student {
	return models.Student{
		FullName:      name,
		Gender:        models.GenderFemale,
		DateOfBirth:   "2012-04-15",
		ContactNumber: "9876543210",
		Address:       "12 MG Road, Pune",
		ClassName:     "6",
		Section:       "A",
		AdmissionDate: "2019-06-01",
	}
}

func (e *testEnv) addStudent(t *testing.T, name string) models.Student {
	t.Helper()
	st, err := e.students.Create(context.Background(), demoStudent(name))
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	return st
}

func (e *testEnv) pay(t *testing.T, studentID string, sem models.Semester, amount int64) Receipt {
	t.Helper()
	r, err := e.fees.RecordPayment(context.Background(), studentID, "", ledger.Payment{
		Semester: sem,
		Amount:   decimal.NewFromInt(amount),
		Date:     "2023-07-01",
		Mode:     models.PaymentCash,
	})
	if err != nil {
		t.Fatalf("payment for %s: %v", studentID, err)
	}
	return r
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

type chanNotifier struct {
	texts chan string
	err   error
}

func newChanNotifier() *chanNotifier { return &chanNotifier{texts: make(chan string, 16)} }

func (n *chanNotifier) Notify(ctx context.Context, text string) error {
	n.texts <- text
	return n.err
}
