package runfeed

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mhan/momo/pkg/logger"
)

// Event types streamed to subscribers
const (
	TypeConnected   = "connected"
	TypeJobStarted  = "job_started"
	TypeJobFinished = "job_finished"
)

// Event is one job-run notification. job_finished events carry the
// outcome; the other types only mark the moment.
type Event struct {
	Type       string    `json:"type"`
	Job        string    `json:"job,omitempty"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Hub fans job-run events out to websocket subscribers
// ⭐ SSOT: run event distribution lives here only
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client
	quit       chan struct{}

	mu      sync.RWMutex
	running bool

	logger *logger.Logger
}

// NewHub creates a new hub
func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		quit:       make(chan struct{}),
		logger:     log.WithComponent("runfeed"),
	}
}

// Start runs the hub loop in its own goroutine
func (h *Hub) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	h.mu.Unlock()

	go h.run()
}

// Stop ends the hub loop and disconnects every subscriber
func (h *Hub) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	h.mu.Unlock()

	close(h.quit)
}

// Publish queues an event for every connected subscriber. Safe on a
// nil hub so one-shot runs can skip the feed entirely.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode run event")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		// Dropping beats blocking the scheduler behind slow readers
		h.logger.WithField("type", ev.Type).Warn("Run feed full, event dropped")
	}
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) run() {
	for {
		select {
		case <-h.quit:
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logger.Info("Run feed stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.WithFields(map[string]interface{}{
				"client_id": c.id,
				"clients":   count,
			}).Info("Run feed client connected")

			if data, err := json.Marshal(Event{
				Type:      TypeConnected,
				Success:   true,
				Timestamp: time.Now().UTC(),
			}); err == nil {
				select {
				case c.send <- data:
				default:
				}
			}

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()

			h.logger.WithFields(map[string]interface{}{
				"client_id": c.id,
				"clients":   count,
				"duration":  time.Since(c.connectedAt).Seconds(),
			}).Info("Run feed client disconnected")

		case message := <-h.broadcast:
			h.mu.RLock()
			targets := make([]*client, 0, len(h.clients))
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, c := range targets {
				select {
				case c.send <- message:
				default:
					// A full buffer means the reader is gone or stuck;
					// cut it loose
					h.mu.Lock()
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						close(c.send)
					}
					h.mu.Unlock()
					h.logger.WithField("client_id", c.id).Warn("Run feed client too slow, dropped")
				}
			}
		}
	}
}

// upgrader accepts any origin: the feed carries the same public data
// as the read-only API
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ServeWS upgrades an HTTP request into a feed subscription
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Run feed upgrade failed")
		return
	}

	c := &client{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		id:          uuid.New().String(),
		connectedAt: time.Now(),
		logger:      h.logger,
	}

	h.register <- c
	go c.writePump()
	go c.readPump()
}
