package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/cryptox"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/revokedtokens"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/timers"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/users"
)

var cheapHasher = cryptox.NewArgon2Hasher(cryptox.Params{Memory: 64, Time: 1, Threads: 1, SaltLen: 8, KeyLen: 16})

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "k"
	return cfg
}

func newTestAuth(t *testing.T, m repomanager.RepositoryManager) *AuthService {
	t.Helper()
	return newAuthService(m, cheapHasher, testConfig(), logging.NewNopLogger())
}

// failingManager serves the embedded manager but fails selected operations.
type failingManager struct {
	repomanager.RepositoryManager
	users   users.Repository
	timers  timers.Repository
	revoked revokedtokens.Repository
	txErr   error
}

func (m *failingManager) Users() users.Repository {
	if m.users != nil {
		return m.users
	}
	return m.RepositoryManager.Users()
}

func (m *failingManager) Timers() timers.Repository {
	if m.timers != nil {
		return m.timers
	}
	return m.RepositoryManager.Timers()
}

func (m *failingManager) RevokedTokens() revokedtokens.Repository {
	if m.revoked != nil {
		return m.revoked
	}
	return m.RepositoryManager.RevokedTokens()
}

func (m *failingManager) WithTx(ctx context.Context, fn func(ctx context.Context, r repomanager.Repositories) error) error {
	if m.txErr != nil {
		return m.txErr
	}
	return fn(ctx, m)
}

// recordingNotifier remembers Notify calls.
type recordingNotifier struct {
	mu    sync.Mutex
	users []string
	// onNotify, if set, runs inside Notify.
	onNotify func(userID string)
}

func (n *recordingNotifier) Notify(_ context.Context, userID string) {
	if n.onNotify != nil {
		n.onNotify(userID)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
}

func (n *recordingNotifier) calls() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.users...)
}

func fixedClock(ts ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := ts[i]
		if i < len(ts)-1 {
			i++
		}
		return t
	}
}
