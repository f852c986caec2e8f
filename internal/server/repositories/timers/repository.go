// Package timers declares the timer ledger's storage: per-user timer
// records and the single active -> inactive transition.
package timers

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/server/models"
)

type Repository interface {
	// Create inserts an active timer and fills in its ID.
	Create(ctx context.Context, timer *models.Timer) (*models.Timer, error)

	// Stop marks the timer inactive with the given end time, but only if it
	// belongs to userID and is still active. When no such active timer
	// exists it returns common.ErrorNotFound and changes nothing.
	Stop(ctx context.Context, userID string, id int64, endedAt time.Time) (*models.Timer, error)

	// Get returns the user's timer or common.ErrorNotFound. Timers of other
	// users are reported as not found.
	Get(ctx context.Context, userID string, id int64) (*models.Timer, error)

	// ListByUser returns the user's timers ordered by ID, optionally only
	// the active ones.
	ListByUser(ctx context.Context, userID string, activeOnly bool) ([]models.Timer, error)
}
