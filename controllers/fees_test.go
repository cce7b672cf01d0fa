package controllers

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"udaan_go/database"
	"udaan_go/middleware"
	"udaan_go/models"
	"udaan_go/services"
	"udaan_go/services/ledger"
	"udaan_go/services/websocket"
)

type userEvent struct {
	username  string
	eventType string
}

type recordingUserPublisher struct {
	mu     sync.Mutex
	events []userEvent
}

func (p *recordingUserPublisher) PublishToUser(username, eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, userEvent{username, eventType})
}

func TestRecordPaymentSendsReceiptToOperator(t *testing.T) {
	store := database.NewMemoryStore()
	settings := services.NewSettingsService(store, "Udaan Vidhyalay", "2023-2024", "")
	students := services.NewStudentService(store)
	fees := services.NewFeeService(store, ledger.NewEngine(decimal.NewFromInt(11000)), students, settings)

	st, err := students.Create(context.Background(), models.Student{
		FullName:      "Aarav Sharma",
		Gender:        models.GenderMale,
		DateOfBirth:   "2012-04-11",
		ContactNumber: "9876543210",
		Address:       "12 Station Road, Jaipur",
		ClassName:     "6",
		Section:       "A",
		AdmissionDate: "2020-06-15",
	})
	if err != nil {
		t.Fatalf("create student: %v", err)
	}

	pub := &recordingUserPublisher{}
	fc := NewFeeController(fees, nil, pub)

	app := fiber.New()
	app.Post("/fees/:studentId/payments", func(c *fiber.Ctx) error {
		c.Locals("claims", &middleware.Claims{Username: "office", Role: middleware.RoleAdmin})
		return c.Next()
	}, fc.RecordPayment)

	body := `{"semester":1,"amount":3000,"date":"2023-07-01","mode":"CASH"}`
	req := httptest.NewRequest("POST", "/fees/"+st.ID+"/payments", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d want 201", resp.StatusCode)
	}

	if len(pub.events) != 1 {
		t.Fatalf("published %d direct events want 1", len(pub.events))
	}
	if got := pub.events[0]; got.username != "office" || got.eventType != websocket.EventReceiptIssued {
		t.Fatalf("unexpected direct event %+v", got)
	}

	req = httptest.NewRequest("POST", "/fees/"+st.ID+"/payments", strings.NewReader(`{"semester":1,"amount":0,"date":"2023-07-01","mode":"CASH"}`))
	req.Header.Set("Content-Type", "application/json")
	if resp, err = app.Test(req); err != nil || resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("zero amount: %v %v", resp, err)
	}
	if len(pub.events) != 1 {
		t.Fatal("a rejected payment must not push a receipt")
	}
}
