package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/clinicore/hmis-server/cmd/models"
	"github.com/gorilla/websocket"
)

const (
	EventAppointmentBooked    = "appointmentBooked"
	EventAppointmentUpdated   = "appointmentUpdated"
	EventAppointmentCancelled = "appointmentCancelled"
)

// Event is the single payload schema pushed to connected dashboards. Every
// mutation kind carries the full updated record.
type Event struct {
	Event       string              `json:"event"`
	Appointment *models.Appointment `json:"appointment"`
}

// Hub broadcasts events to every connected client. Fire-and-forget: there is
// no backlog, a client connected after an event fired never sees it, and a
// client that stops draining its send channel is dropped.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					delete(h.clients, client)
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) emit(event string, appt *models.Appointment) {
	payload, err := json.Marshal(Event{Event: event, Appointment: appt})
	if err != nil {
		log.Printf("error marshaling %s event: %v", event, err)
		return
	}
	// Non-blocking: delivery is asynchronous with respect to the HTTP
	// response that triggered the mutation.
	select {
	case h.broadcast <- payload:
	default:
		log.Printf("broadcast queue full, dropping %s event", event)
	}
}

func (h *Hub) AppointmentBooked(appt *models.Appointment) {
	h.emit(EventAppointmentBooked, appt)
}

func (h *Hub) AppointmentUpdated(appt *models.Appointment) {
	h.emit(EventAppointmentUpdated, appt)
}

func (h *Hub) AppointmentCancelled(appt *models.Appointment) {
	h.emit(EventAppointmentCancelled, appt)
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

// ReadPump discards inbound frames; the push channel is one-way. It exists to
// notice closed connections and keep the pong deadline fresh.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket read error: %v", err)
			}
			break
		}
	}
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
