package websocket

import (
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/chess-relay/game/config"
	"github.com/wricardo/chess-relay/game/service"
)

// Handler upgrades HTTP requests to websocket connections served by the coordinator
type Handler struct {
	hub         *Hub
	coordinator *service.Coordinator
	upgrader    websocket.Upgrader
	logger      *zap.Logger

	sendQueueSize  int
	maxMessageSize int64

	seq atomic.Uint64
}

// NewHandler creates the connection handler
func NewHandler(hub *Hub, coordinator *service.Coordinator, cfg *config.Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		hub:         hub,
		coordinator: coordinator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.OriginAllowed(r.Header.Get("Origin"))
			},
		},
		logger:         logger,
		sendQueueSize:  cfg.SendQueueSize,
		maxMessageSize: cfg.MaxMessageSize,
	}
}

// ServeHTTP handles WebSocket requests from clients
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied with an HTTP error
		h.logger.Info("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	id := fmt.Sprintf("%s#%d", r.RemoteAddr, h.seq.Add(1))
	client := &Client{
		id:             id,
		hub:            h.hub,
		conn:           conn,
		coordinator:    h.coordinator,
		logger:         h.logger.With(zap.String("channel", id)),
		send:           make(chan []byte, h.sendQueueSize),
		maxMessageSize: h.maxMessageSize,
	}

	if !h.hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}
	h.logger.Info("client connected", zap.String("channel", id))

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// IsUpgrade reports whether r asks for a websocket upgrade
func IsUpgrade(r *http.Request) bool {
	return websocket.IsWebSocketUpgrade(r)
}
