package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stefan-vatov/nightwatch-deck/internal/config"
	"github.com/stefan-vatov/nightwatch-deck/internal/models"
	"github.com/stefan-vatov/nightwatch-deck/internal/security"
)

// Conn is the transport surface a Client needs. *websocket.Conn satisfies
// it; tests substitute a recording fake.
type Conn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, p []byte) error
	Ping(ctx context.Context) error
	Close(code websocket.StatusCode, reason string) error
}

// Client represents a single WebSocket connection with its own send
// goroutine. All room semantics live in the actor; the client only pumps
// bytes and enforces per-connection rate limits.
type Client struct {
	conn  Conn
	actor *RoomActor
	id    string // correlation id for logs only

	send chan []byte

	// Rate limiting
	messageCount int
	lastReset    time.Time
	rateLimitMu  sync.Mutex

	// Lifecycle
	ctx     context.Context
	cancel  context.CancelFunc
	closed  bool
	closeMu sync.Mutex

	log *logrus.Entry
}

func newClient(conn Conn, actor *RoomActor) *Client {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()

	return &Client{
		conn:      conn,
		actor:     actor,
		id:        id,
		send:      make(chan []byte, config.ClientSendBufferSize),
		lastReset: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		log: logrus.WithFields(logrus.Fields{
			"room": actor.ID(),
			"conn": id[:8],
		}),
	}
}

// Start begins the client's read and write pumps.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}

// writePump delivers queued messages and keeps the connection alive with
// periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				// Channel closed; Close already shut the connection.
				return
			}

			writeCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("write error")
				c.actor.metrics.IncrementBroadcastErrors()
				return
			}
			c.actor.metrics.IncrementMessagesSent()

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(c.ctx, config.WriteTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()

			if err != nil {
				c.log.WithError(err).Debug("ping error")
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// readPump forwards inbound frames to the room actor. Transport errors end
// the pump and detach the connection, which is what removes the bound
// participant.
func (c *Client) readPump() {
	defer func() {
		c.actor.Detach(c)
		c.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		readCtx, cancel := context.WithTimeout(c.ctx, config.PongTimeout)
		_, message, err := c.conn.Read(readCtx)
		cancel()

		if err != nil {
			if websocket.CloseStatus(err) != websocket.StatusNormalClosure {
				c.log.WithError(err).Debug("read error")
				c.actor.metrics.IncrementConnectionErrors()
			}
			return
		}

		if !c.checkRateLimit() {
			c.log.Warn("rate limit exceeded")
			c.actor.metrics.IncrementRateLimitViolations()

			if data, err := json.Marshal(models.ErrorMessage("Rate limit exceeded. Please slow down.")); err == nil {
				c.Send(data)
			}
			continue
		}

		c.actor.metrics.IncrementMessagesReceived()
		c.actor.Dispatch(c, message)
	}
}

// checkRateLimit verifies the client hasn't exceeded message rate limits.
func (c *Client) checkRateLimit() bool {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	now := time.Now()
	if now.Sub(c.lastReset) > config.RateLimitWindow {
		c.messageCount = 0
		c.lastReset = now
	}

	c.messageCount++
	return c.messageCount <= config.MaxMessagesPerSecond
}

// Send queues a message for delivery. A full buffer means the peer stopped
// reading; the connection is closed and the send reported as failed.
func (c *Client) Send(message []byte) bool {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- message:
		return true
	default:
		c.log.Warn("send buffer full, closing slow client")
		go c.Close(websocket.StatusNormalClosure, "Slow consumer")
		return false
	}
}

// Close shuts the connection down once, with the given close code and
// reason. Later calls are no-ops, so the first exit path wins. Messages
// still queued are written out before the transport goes down, so a
// farewell snapshot sent just before the close is not lost.
func (c *Client) Close(code websocket.StatusCode, reason string) {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed {
		return
	}

	c.closed = true
	close(c.send)

	for message := range c.send {
		writeCtx, cancel := context.WithTimeout(context.Background(), config.WriteTimeout)
		err := c.conn.Write(writeCtx, websocket.MessageText, message)
		cancel()
		if err != nil {
			break
		}
	}

	c.cancel()
	_ = c.conn.Close(code, security.SanitizeCloseReason(reason))
}
