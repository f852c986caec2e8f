package revokedtokens

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// MemoryRepository keeps the revocation list in a map.
type MemoryRepository struct {
	mu      sync.RWMutex
	revoked map[string]models.RevokedToken
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{revoked: make(map[string]models.RevokedToken)}
}

func (r *MemoryRepository) Revoke(_ context.Context, token *models.RevokedToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.revoked[token.ID]; !ok {
		r.revoked[token.ID] = *token
	}
	return nil
}

func (r *MemoryRepository) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.revoked[id]
	return ok, nil
}

func (r *MemoryRepository) PurgeExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, t := range r.revoked {
		if t.ExpiresAt.Before(now) {
			delete(r.revoked, id)
			n++
		}
	}
	return n, nil
}
