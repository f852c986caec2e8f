package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/syncx"
)

const maxDescriptionLen = 1024

// Notifier is told about every committed change to a user's timers.
type Notifier interface {
	Notify(ctx context.Context, userID string)
}

// TimerLedger is the authority over users' timers. Mutations of one user's
// timers are serialized, and the notifier is called for each of them in
// commit order before the next mutation for that user starts. Failed
// mutations are not announced.
type TimerLedger struct {
	repomanager repomanager.RepositoryManager
	notifier    Notifier
	locks       *syncx.KeyedMutex
	now         func() time.Time
	log         logging.Logger
}

func NewTimerLedger(m repomanager.RepositoryManager, log logging.Logger) *TimerLedger {
	return &TimerLedger{
		repomanager: m,
		locks:       syncx.NewKeyedMutex(),
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		log:         log.With("module", "ledger"),
	}
}

// SetNotifier installs n; it must be called before the ledger is shared.
func (l *TimerLedger) SetNotifier(n Notifier) {
	l.notifier = n
}

// StartTimer creates an active timer for userID starting now. A user may
// have any number of active timers.
func (l *TimerLedger) StartTimer(ctx context.Context, userID, description string) (*models.Timer, error) {
	if len(description) > maxDescriptionLen || !utf8.ValidString(description) {
		return nil, fmt.Errorf("%w: description must be valid UTF-8 of at most %d bytes", common.ErrorValidation, maxDescriptionLen)
	}

	unlock := l.locks.Lock(userID)
	defer unlock()

	timer, err := l.repomanager.Timers().Create(ctx, &models.Timer{
		UserID:      userID,
		Description: description,
		StartedAt:   l.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("error starting timer: %w", err)
	}

	l.log.Debug(ctx, "timer started", "user_id", userID, "timer_id", timer.ID)
	l.notify(ctx, userID)
	return timer, nil
}

// StopTimer ends the user's active timer id now. It returns
// common.ErrorNotFound if the user has no such timer and
// common.ErrorInvalidState if it was already stopped.
func (l *TimerLedger) StopTimer(ctx context.Context, userID string, id int64) (*models.Timer, error) {
	unlock := l.locks.Lock(userID)
	defer unlock()

	var stopped *models.Timer
	err := l.repomanager.WithTx(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		t, err := r.Timers().Stop(ctx, userID, id, l.now())
		if err == nil {
			stopped = t
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}
		// No active timer matched; tell "never existed" from "already stopped".
		if _, err := r.Timers().Get(ctx, userID, id); err != nil {
			return err
		}
		return fmt.Errorf("timer %d already stopped: %w", id, common.ErrorInvalidState)
	})
	if err != nil {
		return nil, err
	}

	l.log.Debug(ctx, "timer stopped", "user_id", userID, "timer_id", id)
	l.notify(ctx, userID)
	return stopped, nil
}

// ListActive returns the user's running timers.
func (l *TimerLedger) ListActive(ctx context.Context, userID string) ([]models.Timer, error) {
	return l.repomanager.Timers().ListByUser(ctx, userID, true)
}

// ListAll returns every timer of the user, running or stopped.
func (l *TimerLedger) ListAll(ctx context.Context, userID string) ([]models.Timer, error) {
	return l.repomanager.Timers().ListByUser(ctx, userID, false)
}

func (l *TimerLedger) notify(ctx context.Context, userID string) {
	if l.notifier == nil {
		return
	}
	// the mutation is committed; the caller going away must not cancel fan-out
	l.notifier.Notify(context.WithoutCancel(ctx), userID)
}
