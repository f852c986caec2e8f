package live

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Conn is the transport under a Connection. *websocket.Conn implements it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	Close() error
}

// State is the lifecycle stage of a Connection.
type State int

const (
	StatePendingAuth State = iota
	StateAuthenticated
	StateClosed
)

func (s State) String() string {
	switch s {
	case StatePendingAuth:
		return "pending-auth"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "closed"
	}
}

// Connection is one live push channel. Frames handed to Send are written
// in order by a single writer goroutine; a full queue or a failed or slow
// write closes the connection.
type Connection struct {
	id           string
	conn         Conn
	codec        wire.Codec
	writeTimeout time.Duration
	log          logging.Logger

	mu      sync.Mutex
	state   State
	userID  string
	tokenID string

	send      chan [][]byte
	done      chan struct{}
	closeOnce sync.Once
	onClose   func(*Connection)
}

func newConnection(conn Conn, codec wire.Codec, queueSize int, writeTimeout time.Duration, log logging.Logger) *Connection {
	id := uuid.NewString()
	return &Connection{
		id:           id,
		conn:         conn,
		codec:        codec,
		writeTimeout: writeTimeout,
		log:          log.With("conn_id", id),
		state:        StatePendingAuth,
		send:         make(chan [][]byte, queueSize),
		done:         make(chan struct{}),
	}
}

// ID identifies the connection in logs.
func (c *Connection) ID() string { return c.id }

// Codec is the frame codec negotiated for this connection.
func (c *Connection) Codec() wire.Codec { return c.codec }

// State returns the current lifecycle stage.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID is empty until the connection is authenticated.
func (c *Connection) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// TokenID is the jti of the token the connection authenticated with.
func (c *Connection) TokenID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokenID
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} { return c.done }

// authenticate moves a pending connection to authenticated. It reports
// false if the connection is not pending.
func (c *Connection) authenticate(userID, tokenID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePendingAuth {
		return false
	}
	c.state = StateAuthenticated
	c.userID = userID
	c.tokenID = tokenID
	c.log = c.log.With("user_id", userID)
	return true
}

// Send queues encoded frames to be written back to back. It never blocks.
// If the queue is full the connection is closed instead and Send reports
// false. Frames for connections that are not authenticated are dropped.
func (c *Connection) Send(frames ...[]byte) bool {
	if c.State() != StateAuthenticated {
		return false
	}
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frames:
		return true
	default:
		c.logger().Warn(context.Background(), "send queue full, dropping connection")
		c.Close(websocket.CloseTryAgainLater, "too slow")
		return false
	}
}

// writeLoop drains the queue until the connection closes.
func (c *Connection) writeLoop() {
	msgType := websocket.TextMessage
	if c.codec.Binary() {
		msgType = websocket.BinaryMessage
	}
	for {
		select {
		case <-c.done:
			return
		case frames := <-c.send:
			for _, f := range frames {
				if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
					c.fail(err)
					return
				}
				if err := c.conn.WriteMessage(msgType, f); err != nil {
					c.fail(err)
					return
				}
			}
		}
	}
}

func (c *Connection) fail(err error) {
	c.logger().Warn(context.Background(), "push write failed, dropping connection", "error", err)
	c.Close(websocket.CloseGoingAway, "")
}

// Close ends the connection with a close frame carrying code and reason.
// The state change and deregistration happen before Close returns; the
// close frame and transport release run on their own goroutine, since a
// stalled writer holds the transport until its write deadline. Only the
// first call has an effect.
func (c *Connection) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.mu.Unlock()
		close(c.done)

		if c.onClose != nil {
			c.onClose(c)
		}

		go c.release(code, reason)
	})
}

func (c *Connection) release(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeTimeout))
	_ = c.conn.Close()
	c.logger().Debug(context.Background(), "connection closed", "code", code, "reason", reason)
}

func (c *Connection) logger() logging.Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log
}
