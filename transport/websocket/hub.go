package websocket

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wricardo/chess-relay/metrics"
)

// Hub maintains the set of live client connections
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Closed once Run returns
	done chan struct{}

	count  atomic.Int64
	logger *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's event loop. When ctx is cancelled every client is closed,
// which runs its normal disconnect path.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-ctx.Done():
			h.logger.Info("closing websocket connections", zap.Int("clients", len(h.clients)))
			for client := range h.clients {
				client.Close()
				h.unregisterClient(client)
			}
			return
		}
	}
}

// Count returns the number of live connections
func (h *Hub) Count() int {
	return int(h.count.Load())
}

// Register adds client to the hub; it returns false once the hub has stopped
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes client from the hub
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	if h.clients[client] {
		return
	}
	h.clients[client] = true
	h.count.Add(1)
	metrics.ConnectionsOpen.Inc()

	h.logger.Debug("client registered",
		zap.String("channel", client.ID()),
		zap.Int("clients", len(h.clients)))
}

func (h *Hub) unregisterClient(client *Client) {
	if !h.clients[client] {
		return
	}
	delete(h.clients, client)
	h.count.Add(-1)
	metrics.ConnectionsOpen.Dec()

	h.logger.Debug("client unregistered",
		zap.String("channel", client.ID()),
		zap.Int("clients", len(h.clients)))
}
