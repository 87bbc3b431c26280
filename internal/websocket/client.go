package websocket

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/thereayou/voxus-chat/internal/metrics"
)

const (
	writeWait = 10 * time.Second

	pongWait = 60 * time.Second

	// must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 512 * 1024 // 512KB

	sendBuffer = 256
)

// State is the per-connection lifecycle: OPEN until an auth event is accepted,
// AUTHENTICATED while registered, CLOSED once the socket is gone.
type State int32

const (
	StateOpen State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateAuthenticated:
		return "authenticated"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

type ClientMessageHandler interface {
	HandleMessage(client *Client, msg *Message) error
}

type Client struct {
	ID uuid.UUID
	// UserID is the identity the transport verified before the upgrade.
	UserID uint64

	conn    *websocket.Conn
	hub     *Hub
	send    chan []byte
	limiter *rate.Limiter
	state   atomic.Int32

	mu     sync.Mutex
	closed bool
}

// NewClient wraps an upgraded connection. conn may be nil for connections that
// are only driven through Outbound, as in tests. A nil limiter disables inbound
// rate limiting.
func NewClient(hub *Hub, conn *websocket.Conn, userID uint64, limiter *rate.Limiter) *Client {
	return &Client{
		ID:      uuid.New(),
		UserID:  userID,
		conn:    conn,
		hub:     hub,
		send:    make(chan []byte, sendBuffer),
		limiter: limiter,
	}
}

func (c *Client) State() State {
	return State(c.state.Load())
}

func (c *Client) setState(s State) {
	c.state.Store(int32(s))
}

// Outbound exposes the queue the write pump drains.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// enqueue never blocks: a full or closed queue is reported, not waited on.
func (c *Client) enqueue(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrClientQueueFull
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// SendMessage queues one envelope for the write pump.
func (c *Client) SendMessage(msgType MessageType, data interface{}) error {
	frame, err := encode(msgType, data)
	if err != nil {
		return err
	}

	switch err := c.enqueue(frame); err {
	case nil:
		metrics.Deliveries.WithLabelValues(string(msgType)).Inc()
		return nil
	case ErrClientQueueFull:
		metrics.DeliveriesSkipped.WithLabelValues("queue_full").Inc()
		return err
	default:
		metrics.DeliveriesSkipped.WithLabelValues("closed").Inc()
		return err
	}
}

func (c *Client) SendError(errorMsg string) {
	_ = c.SendMessage(TypeError, map[string]string{
		"error": errorMsg,
	})
}

func (c *Client) logger() *zap.Logger {
	if c.hub == nil {
		return zap.NewNop()
	}
	return c.hub.log
}

// ReadPump decodes frames from the socket and hands them to handler until the
// connection fails. The client is unregistered on the way out whatever the
// reason.
func (c *Client) ReadPump(handler ClientMessageHandler) {
	log := c.logger().With(zap.String("conn_id", c.ID.String()), zap.Uint64("user_id", c.UserID))
	defer func() {
		if c.hub != nil {
			c.hub.Unregister(c)
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("websocket_read_failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			metrics.EventsRejected.WithLabelValues("malformed").Inc()
			log.Warn("malformed_frame_dropped", zap.Int("bytes", len(raw)))
			c.SendError(ErrInvalidMessage.Error())
			continue
		}

		if c.limiter != nil && !c.limiter.Allow() {
			metrics.EventsRejected.WithLabelValues("rate_limited").Inc()
			c.SendError(ErrRateLimited.Error())
			continue
		}

		switch msg.Type {
		case TypePong:
			continue
		case TypePing:
			_ = c.SendMessage(TypePong, nil)
			continue
		}

		if handler != nil {
			if err := handler.HandleMessage(c, &msg); err != nil {
				c.SendError(err.Error())
			}
		}
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
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
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

			// flush whatever queued up behind this frame
			n := len(c.send)
			for i := 0; i < n; i++ {
				if err := c.conn.WriteMessage(websocket.TextMessage, <-c.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
