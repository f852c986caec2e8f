package models

import (
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

// Timer is one tracked interval. A timer is active exactly when EndedAt is
// nil; once stopped it never changes again.
type Timer struct {
	ID          int64
	UserID      string
	Description string
	StartedAt   time.Time
	EndedAt     *time.Time
}

// Active reports whether the timer is still running.
func (t *Timer) Active() bool { return t.EndedAt == nil }

// Duration is EndedAt-StartedAt for a stopped timer and zero while active.
func (t *Timer) Duration() time.Duration {
	if t.EndedAt == nil {
		return 0
	}
	return t.EndedAt.Sub(t.StartedAt)
}

// Wire projects the timer to its external representation. Timestamps are
// truncated to milliseconds before the duration is computed so that
// duration == end - start holds on the wire.
func (t *Timer) Wire() wire.Timer {
	w := wire.Timer{
		ID:          t.ID,
		UserID:      t.UserID,
		Description: t.Description,
		Active:      t.Active(),
		Start:       t.StartedAt.UnixMilli(),
	}
	if t.EndedAt != nil {
		end := t.EndedAt.UnixMilli()
		d := end - w.Start
		w.End = &end
		w.Duration = &d
	}
	return w
}

// WireTimers projects a slice of timers, never returning nil.
func WireTimers(ts []Timer) []wire.Timer {
	out := make([]wire.Timer, 0, len(ts))
	for i := range ts {
		out = append(out, ts[i].Wire())
	}
	return out
}
