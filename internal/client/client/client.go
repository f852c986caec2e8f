package client

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

// Session is a token issued by the server.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

// Export is a finished timer history export.
type Export struct {
	Key       string
	URL       string
	ExpiresAt time.Time
	Timers    int
	Size      int
}

// Client is the API contract between the CLI and the timekeeper server.
type Client interface {
	Register(ctx context.Context, userName, password string) error
	Login(ctx context.Context, userName, password string) (Session, error)
	Logout(ctx context.Context) error

	StartTimer(ctx context.Context, description string) (wire.Timer, error)
	StopTimer(ctx context.Context, id int64) error
	ListTimers(ctx context.Context, activeOnly bool) ([]wire.Timer, error)
	Export(ctx context.Context) (*Export, error)

	Ping(ctx context.Context) error

	// Token is the current session token, empty when logged out.
	Token() string
	SetToken(token string)
	// PushURL is the websocket endpoint of the same server.
	PushURL() (string, error)
}
