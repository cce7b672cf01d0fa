package websocket

import (
	"encoding/json"
	"sync"
	"time"

	fiberws "github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Event types pushed to dashboard clients.
const (
	EventPaymentRecorded  = "fee.payment"
	EventDashboardStats   = "dashboard.stats"
	EventAttendanceMarked = "attendance.marked"
	EventStudentDeleted   = "student.deleted"
	EventBackupCompleted  = "backup.completed"
	EventReceiptIssued    = "fee.receipt"
)

// Hub maintains the set of active clients and broadcasts messages to the clients.
type Hub struct {
	// Registered clients.
	clients map[*Client]bool

	// Outbound messages for every client.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	quit chan struct{}

	mutex sync.RWMutex
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	hub *Hub

	// Buffered channel of outbound messages.
	send chan []byte

	// Authenticated username
	username string
}

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub; it returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
			logrus.WithField("username", client.username).Info("WebSocket client connected")

		case client := <-h.unregister:
			h.removeClient(client)
			logrus.WithField("username", client.username).Info("WebSocket client disconnected")

		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()

		case <-h.quit:
			h.mutex.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
}

// BroadcastToUser sends a message to all connections of one user
func (h *Hub) BroadcastToUser(username string, message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("Error marshaling WebSocket message")
		return
	}

	h.mutex.Lock()
	sent, dropped := 0, 0
	for client := range h.clients {
		if client.username != username {
			continue
		}
		select {
		case client.send <- data:
			sent++
		default:
			dropped++
			close(client.send)
			delete(h.clients, client)
		}
	}
	h.mutex.Unlock()

	logrus.WithFields(logrus.Fields{"username": username, "sent": sent, "dropped": dropped}).Debug("BroadcastToUser")
}

// PublishToUser wraps data in a typed Message and sends it to one user's sessions.
func (h *Hub) PublishToUser(username, eventType string, data interface{}) {
	h.BroadcastToUser(username, Message{Type: eventType, Data: data})
}

// Broadcast sends a message to all connected clients
func (h *Hub) Broadcast(message interface{}) {
	data, err := json.Marshal(message)
	if err != nil {
		logrus.WithError(err).Error("Error marshaling WebSocket message")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		logrus.Warn("Broadcast channel is full")
	}
}

// Publish wraps data in a typed Message and broadcasts it.
func (h *Hub) Publish(eventType string, data interface{}) {
	h.Broadcast(Message{Type: eventType, Data: data})
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeFiberWS handles Fiber websocket connections until the peer disconnects.
func (h *Hub) ServeFiberWS(c *fiberws.Conn, username string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Errorf("ServeFiberWS panic for %s", username)
		}
	}()

	client := &Client{
		hub:      h,
		send:     make(chan []byte, 256),
		username: username,
	}

	if !h.attach(client) {
		c.Close()
		return
	}

	go h.fiberWritePump(client, c)
	// Run read pump inline to avoid passing the Fiber connection across goroutines
	h.fiberReadPump(client, c)
}

// attach hands the client to Run. It reports false once the hub has stopped.
func (h *Hub) attach(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.quit:
		return false
	}
}

// fiberWritePump handles writing to Fiber websocket connections
func (h *Hub) fiberWritePump(client *Client, c *fiberws.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Errorf("fiberWritePump panic for %s", client.username)
		}
		ticker.Stop()
		h.unregisterClient(client)
		c.Close()
	}()

	for {
		select {
		case message, ok := <-client.send:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.WriteMessage(fiberws.CloseMessage, []byte{})
				return
			}
			if err := c.WriteMessage(fiberws.TextMessage, message); err != nil {
				logrus.WithError(err).Warnf("WebSocket write error for %s", client.username)
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(fiberws.PingMessage, nil); err != nil {
				logrus.WithError(err).Debugf("WebSocket ping error for %s", client.username)
				return
			}
		}
	}
}

// fiberReadPump handles reading from Fiber websocket connections
func (h *Hub) fiberReadPump(client *Client, c *fiberws.Conn) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Errorf("fiberReadPump panic for %s", client.username)
		}
		h.unregisterClient(client)
		c.Close()
	}()

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if fiberws.IsUnexpectedCloseError(err, fiberws.CloseGoingAway, fiberws.CloseAbnormalClosure) {
				logrus.WithError(err).Warnf("WebSocket unexpected close for %s", client.username)
			}
			break
		}
		// clients only receive; inbound frames are ignored
	}
}

// unregisterClient hands the client to Run, or removes it directly once the hub has stopped.
func (h *Hub) unregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.quit:
		h.removeClient(client)
	}
}
