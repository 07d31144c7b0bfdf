// Package live pushes service-order events to the staff dashboards of a
// garage over websockets.
package live

import (
	"encoding/json"
	"sync"
	"time"

	"oficina/internal/core/id"
)

// Message is what dashboards receive.
type Message struct {
	GarageID    id.ID           `json:"-"`
	Type        string          `json:"type"`
	AggregateID id.ID           `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// sendBuffer is how many messages a slow client may lag behind before it is dropped.
const sendBuffer = 32

type client struct {
	garage id.ID
	send   chan []byte
}

// Hub fans messages out to the clients of one garage.
type Hub struct {
	mu      sync.RWMutex
	clients map[id.ID]map[*client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[id.ID]map[*client]struct{})}
}

func (h *Hub) subscribe(garage id.ID) *client {
	c := &client{garage: garage, send: make(chan []byte, sendBuffer)}
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[garage]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[garage] = set
	}
	set[c] = struct{}{}
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.garage]
	if !ok {
		return
	}
	if _, ok := set[c]; ok {
		delete(set, c)
		close(c.send)
	}
	if len(set) == 0 {
		delete(h.clients, c.garage)
	}
}

// Broadcast delivers msg to every client of its garage. Clients whose
// buffer is full are disconnected.
func (h *Hub) Broadcast(msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var slow []*client
	h.mu.RLock()
	for c := range h.clients[msg.GarageID] {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.unsubscribe(c)
	}
	return nil
}

// ClientCount returns the number of connected clients of a garage.
func (h *Hub) ClientCount(garage id.ID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[garage])
}
