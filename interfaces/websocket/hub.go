// Package websocket fans change events out to every connected client. One
// connection per client; delivery is best effort, at most once per channel,
// with no backlog for late joiners.
package websocket

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"recipehub/domain"
	"recipehub/pkg/observability"
)

// Hub maintains the set of open connections and broadcasts to all of them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	events     chan domain.Event
	done       chan struct{}

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub creates a hub; call Run on its own goroutine before broadcasting.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		events:     make(chan domain.Event, 512),
		done:       make(chan struct{}),
		logger:     logger,
		metrics:    metrics,
	}
}

// Run processes registration, close signals and broadcasts until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAll()
			return
		case c := <-h.register:
			h.addClient(c)
		case c := <-h.unregister:
			h.removeClient(c)
		case ev := <-h.events:
			h.fanOut(ev)
		}
	}
}

// Shutdown stops the hub loop and closes every connection.
func (h *Hub) Shutdown() {
	close(h.done)
}

// Broadcast queues an event for delivery to every open channel, including
// the originating client's own connection. Never blocks the mutation path:
// if the hub queue is full the event is dropped.
func (h *Hub) Broadcast(eventType domain.EventType, payload interface{}) {
	select {
	case h.events <- domain.Event{Type: eventType, Payload: payload}:
	default:
		h.logger.Warn("event queue full, dropping broadcast", zap.String("type", string(eventType)))
	}
}

// ClientCount returns the number of open connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(n))
	}
	h.logger.Info("client connected", zap.String("connectionID", c.id), zap.Int("active", n))
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	c.close()
	if h.metrics != nil {
		h.metrics.ActiveConnections.Set(float64(n))
		h.metrics.ChannelsDropped.Inc()
	}
	h.logger.Info("client disconnected", zap.String("connectionID", c.id), zap.Int("active", n))
}

// fanOut writes one event to a snapshot of the registry. A client whose send
// buffer is full is treated as dead and dropped; other channels are
// unaffected.
func (h *Hub) fanOut(ev domain.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("marshaling event", zap.String("type", string(ev.Type)), zap.Error(err))
		return
	}

	h.mu.RLock()
	snapshot := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.RUnlock()

	if h.metrics != nil {
		h.metrics.EventsBroadcast.WithLabelValues(string(ev.Type)).Inc()
	}

	for _, c := range snapshot {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("send buffer full, dropping client", zap.String("connectionID", c.id))
			h.removeClient(c)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}
