// Package hub fans event frames out to websocket clients. One goroutine owns
// the client set; slow clients are disconnected rather than waited on.
package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Frame is one websocket message queued for clients. Frames are text unless
// Binary is set.
type Frame struct {
	Data   []byte
	Binary bool
}

// Hub maintains the set of active clients and broadcasts frames to them
type Hub struct {
	name string

	// clients is only written by Run; mu guards reads from ClientCount.
	clients map[*Client]struct{}
	mu      sync.RWMutex

	broadcast   chan Frame
	registerc   chan *Client
	unregisterc chan *Client
	done        chan struct{}

	running atomic.Bool
	dropped atomic.Int64
	logger  *slog.Logger
}

// New creates a hub. name labels its log lines.
func New(name string, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		name:        name,
		clients:     make(map[*Client]struct{}),
		broadcast:   make(chan Frame, 256),
		registerc:   make(chan *Client),
		unregisterc: make(chan *Client),
		done:        make(chan struct{}),
		logger:      logger.With("component", "hub", "hub", name),
	}
}

// Run owns the client set until ctx is cancelled, then disconnects every
// client. A hub cannot be restarted.
func (h *Hub) Run(ctx context.Context) error {
	h.running.Store(true)
	defer func() {
		h.running.Store(false)
		close(h.done)
		h.mu.Lock()
		for c := range h.clients {
			close(c.send)
			delete(h.clients, c)
		}
		h.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case c := <-h.registerc:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client connected", "clients", count)

		case c := <-h.unregisterc:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("client disconnected", "clients", count)

		case f := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- f:
				default:
					// Too slow to keep up.
					close(c.send)
					delete(h.clients, c)
					h.logger.Warn("dropped slow client")
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) register(c *Client) bool {
	select {
	case h.registerc <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.unregisterc <- c:
	case <-h.done:
	}
}

// Broadcast queues f for every client. It never blocks; when the queue is
// full the message is dropped.
func (h *Hub) Broadcast(f Frame) {
	select {
	case h.broadcast <- f:
	default:
		h.dropped.Add(1)
		h.logger.Warn("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes v and broadcasts it
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(Frame{Data: data})
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many broadcasts were discarded because the queue was full.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// IsRunning reports whether Run is active
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}
