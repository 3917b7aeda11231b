package server

import (
	"sync"
	"time"
	"unicode/utf8"

	"market-stream/src/helpers"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBufferSize = 256

	// Control frames carry at most 125 bytes, two of which are the close code.
	maxCloseReason = 123
)

// -----------------------------------------------------------------------------
// Client Structure
// -----------------------------------------------------------------------------

type Client struct {
	id     string
	conn   *websocket.Conn
	send   chan *models.MStreamMessage
	logger *logger.Logger

	mu          sync.Mutex
	closing     bool
	closeReason string
	quit        chan struct{}
	done        chan struct{}
	once        sync.Once
}

func newClient(id string, conn *websocket.Conn, log *logger.Logger) *Client {
	return &Client{
		id:     id,
		conn:   conn,
		send:   make(chan *models.MStreamMessage, sendBufferSize),
		logger: log,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// ID is the connection id the stream sessions are keyed by.
func (c *Client) ID() string {
	return c.id
}

// -----------------------------------------------------------------------------

func (c *Client) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closing
}

func (c *Client) enqueue(msg *models.MStreamMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return helpers.ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		return helpers.NewTransportError("send buffer full for "+c.id, helpers.ErrQueueFull)
	}
}

// closeWith asks the writer to flush and close with a normal-closure frame.
func (c *Client) closeWith(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closing {
		return
	}
	c.closing = true
	c.closeReason = truncateReason(reason)
	close(c.quit)
}

// shutdown marks the client gone after the peer left; nothing more is written.
func (c *Client) shutdown() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.once.Do(func() { close(c.done) })
}

// -----------------------------------------------------------------------------
// readPump - watches the connection; client frames are ignored
// -----------------------------------------------------------------------------

func (c *Client) readPump(onClose func()) {
	defer func() {
		onClose()
		c.conn.Close()
		c.logger.Debug("Client %s disconnected", c.id)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logger.Info("WebSocket error on %s: %v", c.id, err)
			}
			return
		}
	}
}

// -----------------------------------------------------------------------------
// writePump - sends messages to client
// -----------------------------------------------------------------------------

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				c.logger.Info("Write error on %s: %v", c.id, err)
				return
			}

		case <-c.quit:
			c.flush()
			c.mu.Lock()
			reason := c.closeReason
			c.mu.Unlock()

			frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = c.conn.WriteControl(websocket.CloseMessage, frame, time.Now().Add(writeWait))
			return

		case <-c.done:
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(message *models.MStreamMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(message)
}

// flush writes whatever was queued before the close was requested.
func (c *Client) flush() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func truncateReason(reason string) string {
	for len(reason) > maxCloseReason {
		_, size := utf8.DecodeLastRuneInString(reason)
		reason = reason[:len(reason)-size]
	}
	return reason
}
