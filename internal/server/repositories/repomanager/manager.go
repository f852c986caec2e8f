package repomanager

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/timers"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
)

// Repositories vends the repositories of one store, or of one transaction
// inside it.
type Repositories interface {
	Users() users.Repository
	Timers() timers.Repository
	RevokedTokens() revokedtokens.Repository
}

// RepositoryManager owns a store and its lifecycle.
type RepositoryManager interface {
	Repositories

	// RunMigrations brings the schema up to date.
	RunMigrations(ctx context.Context) error

	// Ping reports whether the store is reachable. Failures wrap
	// common.ErrorTransientStore.
	Ping(ctx context.Context) error

	// WithTx runs fn with repositories whose operations commit or roll back
	// together.
	WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error

	Close() error
}
