// internal/handlers/hub.go
package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/table"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

// wsWriter is the part of *websocket.Conn the hub needs.
type wsWriter interface {
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
}

type client struct {
	id      uuid.UUID
	tableID string
	conn    wsWriter
	out     chan []byte
	done    chan struct{}
}

// Hub routes table events to websocket sessions. Each session has its own writer goroutine, so a
// slow client never blocks a table loop; when its outbox is full, events for it are dropped.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*client
	tables  map[string]map[uuid.UUID]*client
	log     *logrus.Entry
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		clients: make(map[uuid.UUID]*client),
		tables:  make(map[string]map[uuid.UUID]*client),
		log:     logger.WithField("component", "hub"),
	}
}

// Register attaches a session to a table and starts its writer. The returned func detaches it.
func (h *Hub) Register(tableID string, sessionID uuid.UUID, conn wsWriter) func() {
	c := &client{
		id:      sessionID,
		tableID: tableID,
		conn:    conn,
		out:     make(chan []byte, outboxSize),
		done:    make(chan struct{}),
	}
	h.mu.Lock()
	h.clients[sessionID] = c
	if h.tables[tableID] == nil {
		h.tables[tableID] = make(map[uuid.UUID]*client)
	}
	h.tables[tableID][sessionID] = c
	h.mu.Unlock()

	go h.writeLoop(c)

	var once sync.Once
	return func() { once.Do(func() { h.unregister(c) }) }
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if h.clients[c.id] == c {
		delete(h.clients, c.id)
	}
	if set := h.tables[c.tableID]; set != nil {
		delete(set, c.id)
		if len(set) == 0 {
			delete(h.tables, c.tableID)
		}
	}
	h.mu.Unlock()
	close(c.done)
}

func (h *Hub) writeLoop(c *client) {
	for {
		select {
		case <-c.done:
			return
		case data := <-c.out:
			ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err := c.conn.Write(ctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				h.log.WithError(err).WithField("session", c.id).Debug("websocket write failed")
			}
		}
	}
}

func (h *Hub) enqueue(c *client, data []byte) {
	select {
	case c.out <- data:
	default:
		h.log.WithFields(logrus.Fields{"session": c.id, "table": c.tableID}).Warn("outbox full, dropping event")
	}
}

// Broadcast implements table.Transport.
func (h *Hub) Broadcast(tableID string, ev table.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Type).Error("failed to marshal event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.tables[tableID] {
		h.enqueue(c, data)
	}
}

// SendTo implements table.Transport.
func (h *Hub) SendTo(sessionID uuid.UUID, ev table.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).WithField("event", ev.Type).Error("failed to marshal event")
		return
	}
	h.sendRaw(sessionID, data)
}

func (h *Hub) sendRaw(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	c, ok := h.clients[sessionID]
	h.mu.RUnlock()
	if ok {
		h.enqueue(c, data)
	}
}

// Sessions is the number of connected sessions on a table.
func (h *Hub) Sessions(tableID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.tables[tableID])
}
