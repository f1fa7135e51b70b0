package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/wricardo/chess-relay/game/service"
	"github.com/wricardo/chess-relay/metrics"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
)

// ErrQueueFull is returned by Send when the client could not keep up; the
// connection is closed in that case.
var ErrQueueFull = errors.New("send queue full")

// Client is one websocket connection. It implements service.Channel.
type Client struct {
	id          string
	hub         *Hub
	conn        *websocket.Conn
	coordinator *service.Coordinator
	logger      *zap.Logger

	// Buffered channel of outbound frames, drained by writePump only
	send chan []byte

	mu     sync.Mutex
	closed bool

	maxMessageSize int64
}

// ID identifies the connection in logs
func (c *Client) ID() string {
	return c.id
}

// Send marshals msg and queues it without blocking. A client whose queue is full
// is closed.
func (c *Client) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal outbound message")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.MessagesDropped.Inc()
		return service.ErrChannelClosed
	}

	select {
	case c.send <- data:
		return nil
	default:
		metrics.MessagesDropped.Inc()
		c.logger.Warn("send queue full, dropping client", zap.String("channel", c.id))
		c.closeLocked()
		return ErrQueueFull
	}
}

// Close stops the write pump, which closes the connection. It is safe to call
// more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// readPump decodes inbound frames and hands them to the coordinator. When the
// connection ends it releases every session this client joined.
func (c *Client) readPump() {
	ctx, cancel := context.WithCancel(context.Background())
	joined := make(map[string]struct{})

	defer func() {
		cancel()
		for sessionID := range joined {
			c.coordinator.Disconnect(c, sessionID)
		}
		c.hub.Unregister(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(c.maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Info("websocket read failed", zap.String("channel", c.id), zap.Error(err))
			}
			return
		}

		ev, err := service.DecodeEvent(data)
		if err != nil {
			c.coordinator.Reject(c, err)
			continue
		}

		if err := c.coordinator.Handle(ctx, c, ev); err != nil {
			continue
		}
		if join, ok := ev.(service.JoinEvent); ok {
			joined[join.GameID] = struct{}{}
		}
	}
}

// writePump is the only writer of the connection: one text frame per message,
// in queue order, plus keepalive pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The client was closed
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Debug("websocket write failed", zap.String("channel", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ service.Channel = (*Client)(nil)
