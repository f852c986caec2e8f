package timers

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

// MemoryRepository keeps timers in process memory. IDs are assigned from
// one counter shared by all users, like a database sequence.
type MemoryRepository struct {
	mu     sync.RWMutex
	lastID int64
	byID   map[int64]*models.Timer
	byUser map[string][]int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[int64]*models.Timer),
		byUser: make(map[string][]int64),
	}
}

func (r *MemoryRepository) Create(_ context.Context, timer *models.Timer) (*models.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	timer.ID = r.lastID
	timer.EndedAt = nil

	stored := *timer
	r.byID[stored.ID] = &stored
	r.byUser[stored.UserID] = append(r.byUser[stored.UserID], stored.ID)

	return timer, nil
}

func (r *MemoryRepository) Stop(_ context.Context, userID string, id int64, endedAt time.Time) (*models.Timer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byID[id]
	if !ok || t.UserID != userID || t.EndedAt != nil {
		return nil, common.ErrorNotFound
	}

	end := endedAt
	t.EndedAt = &end
	return copyTimer(t), nil
}

func (r *MemoryRepository) Get(_ context.Context, userID string, id int64) (*models.Timer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok || t.UserID != userID {
		return nil, common.ErrorNotFound
	}
	return copyTimer(t), nil
}

func (r *MemoryRepository) ListByUser(_ context.Context, userID string, activeOnly bool) ([]models.Timer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]models.Timer, 0, len(r.byUser[userID]))
	for _, id := range r.byUser[userID] {
		t := r.byID[id]
		if activeOnly && t.EndedAt != nil {
			continue
		}
		result = append(result, *copyTimer(t))
	}
	return result, nil
}

func copyTimer(t *models.Timer) *models.Timer {
	c := *t
	if t.EndedAt != nil {
		end := *t.EndedAt
		c.EndedAt = &end
	}
	return &c
}
