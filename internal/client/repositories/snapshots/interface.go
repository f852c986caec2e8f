package snapshots

import (
	"context"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

type Repository interface {
	// Save replaces the stored frame for (scope, m.Event()).
	Save(ctx context.Context, scope string, m wire.Message, savedAt time.Time) error
	// Load returns common.ErrorNotFound when nothing is stored.
	Load(ctx context.Context, scope string, event wire.Event) (wire.Message, time.Time, error)
	// Clear drops every frame stored for scope.
	Clear(ctx context.Context, scope string) error
}
