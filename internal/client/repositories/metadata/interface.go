// Package metadata persists client state that must survive restarts in a
// small key/value table. Today that is the current login session.
package metadata

import (
	"context"
	"time"
)

// Session is a login saved for reuse by the next client run.
type Session struct {
	Server    string
	UserName  string
	Token     string
	ExpiresAt time.Time
}

type Repository interface {
	SaveSession(ctx context.Context, s Session) error
	// LoadSession returns (nil, nil) when no complete session is stored.
	LoadSession(ctx context.Context) (*Session, error)
	Clear(ctx context.Context) error
}
