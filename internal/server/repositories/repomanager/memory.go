package repomanager

import (
	"context"

	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/timers"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
)

// MemoryRepositoryManager keeps everything in process memory. It needs no
// migrations and is always reachable. Each repository operation is atomic
// on its own; WithTx does not add isolation across operations.
type MemoryRepositoryManager struct {
	users         *users.MemoryRepository
	timers        *timers.MemoryRepository
	revokedTokens *revokedtokens.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:         users.NewMemoryRepository(),
		timers:        timers.NewMemoryRepository(),
		revokedTokens: revokedtokens.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository                 { return m.users }
func (m *MemoryRepositoryManager) Timers() timers.Repository               { return m.timers }
func (m *MemoryRepositoryManager) RevokedTokens() revokedtokens.Repository { return m.revokedTokens }

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }
func (m *MemoryRepositoryManager) Ping(context.Context) error          { return nil }
func (m *MemoryRepositoryManager) Close() error                        { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return fn(ctx, m)
}
