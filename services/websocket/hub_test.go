package websocket

import (
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	gws "github.com/gorilla/websocket"
)

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestPublishReachesRegisteredClients(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	admin := &Client{hub: h, send: make(chan []byte, 4), username: "admin"}
	clerk := &Client{hub: h, send: make(chan []byte, 4), username: "clerk"}
	h.register <- admin
	h.register <- clerk
	waitFor(t, func() bool { return h.GetClientCount() == 2 })

	h.Publish(EventPaymentRecorded, map[string]string{"studentId": "UV-2023-1001"})
	for _, c := range []*Client{admin, clerk} {
		select {
		case raw := <-c.send:
			var msg Message
			if err := json.Unmarshal(raw, &msg); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if msg.Type != EventPaymentRecorded {
				t.Fatalf("type = %s", msg.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("%s did not receive the event", c.username)
		}
	}

	h.PublishToUser("clerk", EventReceiptIssued, map[string]string{"receiptNo": "TXN-1"})
	select {
	case raw := <-clerk.send:
		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type != EventReceiptIssued {
			t.Fatalf("unexpected direct message %s (%v)", raw, err)
		}
	case <-time.After(time.Second):
		t.Fatal("clerk did not receive the direct message")
	}
	select {
	case <-admin.send:
		t.Fatal("admin received a message meant for clerk")
	default:
	}

	h.unregister <- admin
	waitFor(t, func() bool { return h.GetClientCount() == 1 })
	if _, ok := <-admin.send; ok {
		t.Fatal("unregistered client channel should be closed")
	}
}

func TestStopClosesClients(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	c := &Client{hub: h, send: make(chan []byte, 1), username: "admin"}
	h.register <- c
	waitFor(t, func() bool { return h.GetClientCount() == 1 })

	h.Stop()
	h.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	if h.GetClientCount() != 0 {
		t.Fatal("clients left after Stop")
	}
}

func TestAttachAfterStopDoesNotBlock(t *testing.T) {
	h := NewHub()
	done := make(chan struct{})
	go func() {
		h.Run()
		close(done)
	}()
	h.Stop()
	<-done

	attached := make(chan bool, 1)
	go func() {
		attached <- h.attach(&Client{hub: h, send: make(chan []byte, 1), username: "admin"})
	}()
	select {
	case ok := <-attached:
		if ok {
			t.Fatal("a stopped hub accepted a client")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("attach blocked on a stopped hub")
	}
}

func TestServeFiberWSDeliversEvents(t *testing.T) {
	h := NewHub()
	go h.Run()
	defer h.Stop()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", fiberws.New(func(c *fiberws.Conn) {
		h.ServeFiberWS(c, "admin")
	}))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go func() { _ = app.Listener(ln) }()
	defer app.Shutdown()

	conn, _, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	waitFor(t, func() bool { return h.GetClientCount() == 1 })

	h.Publish(EventStudentDeleted, map[string]string{"studentId": "UV-2023-1002"})
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != EventStudentDeleted {
		t.Fatalf("type = %s", msg.Type)
	}

	conn.Close()
	waitFor(t, func() bool { return h.GetClientCount() == 0 })
}
