// Package httpapi is the request/response surface of the server: the REST
// endpoints over the auth service and the timer ledger, and the websocket
// handshake that hands push connections to the live hub.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/auth"
	"github.com/dmitrijs2005/timekeeper/internal/server/live"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/gorilla/websocket"
)

const (
	maxBodySize     = 64 << 10
	shutdownTimeout = 10 * time.Second
)

type Authenticator interface {
	Register(ctx context.Context, userName, password string) (*models.User, error)
	Login(ctx context.Context, userName, password string) (auth.Token, error)
	Validate(ctx context.Context, token string) (*services.Session, error)
	Logout(ctx context.Context, session *services.Session) error
}

type Ledger interface {
	StartTimer(ctx context.Context, userID, description string) (*models.Timer, error)
	StopTimer(ctx context.Context, userID string, id int64) (*models.Timer, error)
	ListActive(ctx context.Context, userID string) ([]models.Timer, error)
	ListAll(ctx context.Context, userID string) ([]models.Timer, error)
}

type Exporter interface {
	Export(ctx context.Context, userID string) (*services.Export, error)
}

// PushHub runs upgraded push connections.
type PushHub interface {
	Serve(ctx context.Context, conn live.Conn, codec wire.Codec, token string)
	Revoke(tokenID string) int
	Shutdown()
}

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	address  string
	auth     Authenticator
	ledger   Ledger
	exports  Exporter
	hub      PushHub
	store    Pinger
	upgrader websocket.Upgrader
	logger   logging.Logger
}

func NewServer(address string, l logging.Logger, a Authenticator, ledger Ledger, exports Exporter, hub PushHub, store Pinger) *Server {
	return &Server{
		address: address,
		auth:    a,
		ledger:  ledger,
		exports: exports,
		hub:     hub,
		store:   store,
		upgrader: websocket.Upgrader{
			HandshakeTimeout: 5 * time.Second,
			Subprotocols:     wire.Subprotocols(),
			// Clients are CLIs and services, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: l.With("module", "http_server"),
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/register", s.handleRegister)
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.requireAuth(s.handleLogout))

	mux.HandleFunc("GET /api/timers", s.requireAuth(s.handleListTimers))
	mux.HandleFunc("GET /api/timers/active", s.requireAuth(s.handleListActive))
	mux.HandleFunc("POST /api/timers", s.requireAuth(s.handleStartTimer))
	mux.HandleFunc("POST /api/timers/{id}/stop", s.requireAuth(s.handleStopTimer))
	mux.HandleFunc("POST /api/timers/export", s.requireAuth(s.handleExport))

	mux.HandleFunc("GET /ws", s.handlePush)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// routes used by older clients
	mux.HandleFunc("POST /signup", s.handleRegister)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /timers/start", s.requireAuth(s.handleStartTimer))
	mux.HandleFunc("POST /timers/stop", s.requireAuth(s.handleStopTimerByBody))

	var h http.Handler = mux
	h = rescueMiddleware(h, s.logger)
	h = loggingMiddleware(h, s.logger)
	h = requestIDMiddleware(h)
	return h
}

// Run serves HTTP on the configured address until ctx is cancelled, then
// shuts down gracefully. Live push connections are closed on shutdown.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv.RegisterOnShutdown(s.hub.Shutdown)

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "HTTP shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
