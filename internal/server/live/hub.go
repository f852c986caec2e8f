package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/gorilla/websocket"
)

// maxClientFrame bounds frames read from clients. The only frame a client
// sends is authenticate, which carries a single token.
const maxClientFrame = 8 << 10

// Authenticator validates bearer tokens.
type Authenticator interface {
	Validate(ctx context.Context, token string) (*services.Session, error)
}

// Hub runs push connections from the completed handshake until close.
type Hub struct {
	registry     *Registry
	broadcaster  *Broadcaster
	auth         Authenticator
	grace        time.Duration
	writeTimeout time.Duration
	queueSize    int
	log          logging.Logger
}

func NewHub(registry *Registry, broadcaster *Broadcaster, auth Authenticator, cfg *config.Config, log logging.Logger) *Hub {
	return &Hub{
		registry:     registry,
		broadcaster:  broadcaster,
		auth:         auth,
		grace:        cfg.AuthGracePeriod,
		writeTimeout: cfg.WriteTimeout,
		queueSize:    cfg.SendQueueSize,
		log:          log.With("module", "hub"),
	}
}

// Serve owns conn until it closes. token is the bearer token presented on
// the handshake, possibly empty. A present but invalid token closes the
// connection at once; with no token the client has the grace period to
// send an authenticate frame.
func (h *Hub) Serve(ctx context.Context, conn Conn, codec wire.Codec, token string) {
	c := newConnection(conn, codec, h.queueSize, h.writeTimeout, h.log)
	h.registry.Add(c)
	defer c.Close(websocket.CloseNormalClosure, "")

	conn.SetReadLimit(maxClientFrame)
	go c.writeLoop()

	h.log.Debug(ctx, "push connection opened", "conn_id", c.ID(), "subprotocol", codec.Subprotocol())

	session, err := h.authenticate(ctx, c, token)
	if err != nil {
		h.reject(ctx, c, err)
		return
	}
	// authenticated connections may stay idle indefinitely
	if err := conn.SetReadDeadline(time.Time{}); err != nil {
		return
	}

	if err := h.broadcaster.Subscribe(ctx, c, session.UserID, session.TokenID); err != nil {
		if errors.Is(err, ErrNotPending) {
			return
		}
		h.log.Error(ctx, "subscribing connection failed", "conn_id", c.ID(), "user_id", session.UserID, "error", err)
		c.Close(websocket.CloseInternalServerErr, "snapshot unavailable")
		return
	}
	h.log.Info(ctx, "push connection authenticated", "conn_id", c.ID(), "user_id", session.UserID)

	expiry := time.AfterFunc(time.Until(session.ExpiresAt), func() {
		c.Close(websocket.ClosePolicyViolation, "token expired")
	})
	defer expiry.Stop()

	h.discard(c)
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.registry.CloseAll(websocket.CloseGoingAway, "server shutting down")
}

// Revoke closes the connections authenticated with the token tokenID.
func (h *Hub) Revoke(tokenID string) int {
	return h.registry.CloseToken(tokenID)
}

func (h *Hub) authenticate(ctx context.Context, c *Connection, token string) (*services.Session, error) {
	if token != "" {
		return h.auth.Validate(ctx, token)
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(h.grace)); err != nil {
		return nil, err
	}
	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: no authenticate frame: %v", common.ErrorUnauthorized, err)
	}
	msg, err := c.codec.Decode(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorUnauthorized, err)
	}
	a, ok := msg.(wire.Authenticate)
	if !ok {
		return nil, fmt.Errorf("%w: expected %s frame, got %s", common.ErrorUnauthorized, wire.EventAuthenticate, msg.Event())
	}
	return h.auth.Validate(ctx, a.Token)
}

func (h *Hub) reject(ctx context.Context, c *Connection, err error) {
	if errors.Is(err, common.ErrorUnauthorized) {
		h.log.Info(ctx, "push connection rejected", "conn_id", c.ID(), "error", err)
		c.Close(websocket.ClosePolicyViolation, "unauthorized")
		return
	}
	h.log.Error(ctx, "authenticating push connection failed", "conn_id", c.ID(), "error", err)
	c.Close(websocket.CloseTryAgainLater, "try again later")
}

// discard reads and drops client frames until the connection fails. The
// reads keep control frames flowing.
func (h *Hub) discard(c *Connection) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
