package live

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/syncx"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

// TimerLister is the read side of the timer ledger.
type TimerLister interface {
	ListAll(ctx context.Context, userID string) ([]models.Timer, error)
}

// Broadcaster pushes a user's active_timers and all_timers snapshots to
// that user's connections. Snapshots for one user are read and queued
// under a per-user lock, so every connection sees them in read order.
type Broadcaster struct {
	registry    *Registry
	timers      TimerLister
	locks       *syncx.KeyedMutex
	readTimeout time.Duration
	log         logging.Logger
}

func NewBroadcaster(registry *Registry, timers TimerLister, log logging.Logger) *Broadcaster {
	return &Broadcaster{
		registry:    registry,
		timers:      timers,
		locks:       syncx.NewKeyedMutex(),
		readTimeout: 5 * time.Second,
		log:         log.With("module", "broadcaster"),
	}
}

// Notify sends the user's current snapshots to all of the user's
// connections. Delivery is best effort and never blocks on a connection;
// failures only affect the failing connection.
func (b *Broadcaster) Notify(ctx context.Context, userID string) {
	unlock := b.locks.Lock(userID)
	defer unlock()

	conns := b.registry.ConnectionsFor(userID)
	if len(conns) == 0 {
		return
	}

	snap, err := b.snapshot(ctx, userID)
	if err != nil {
		b.log.Error(ctx, "reading timers for push failed", "user_id", userID, "error", err)
		return
	}

	delivered := 0
	for _, c := range conns {
		frames, err := snap.encode(c.Codec())
		if err != nil {
			b.log.Error(ctx, "encoding push frames failed", "user_id", userID, "error", err)
			return
		}
		if c.Send(frames...) {
			delivered++
		}
	}
	b.log.Debug(ctx, "snapshot pushed", "user_id", userID, "connections", len(conns), "delivered", delivered)
}

// Subscribe authenticates c as userID and queues the user's current
// snapshots to it. Mutations committed after the snapshot is read are
// delivered to c by Notify.
func (b *Broadcaster) Subscribe(ctx context.Context, c *Connection, userID, tokenID string) error {
	unlock := b.locks.Lock(userID)
	defer unlock()

	if err := b.registry.Register(c, userID, tokenID); err != nil {
		return err
	}

	snap, err := b.snapshot(ctx, userID)
	if err != nil {
		return err
	}
	frames, err := snap.encode(c.Codec())
	if err != nil {
		return err
	}
	c.Send(frames...)
	return nil
}

func (b *Broadcaster) snapshot(ctx context.Context, userID string) (*snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, b.readTimeout)
	defer cancel()

	// one read feeds both frames
	all, err := b.timers.ListAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing timers: %w", err)
	}
	active := make([]models.Timer, 0, len(all))
	for _, t := range all {
		if t.Active() {
			active = append(active, t)
		}
	}

	return &snapshot{
		active:  wire.ActiveTimers{Timers: models.WireTimers(active)},
		all:     wire.AllTimers{Timers: models.WireTimers(all)},
		encoded: make(map[string][][]byte),
	}, nil
}

// snapshot holds one read of a user's timers and its encodings per codec.
type snapshot struct {
	active  wire.ActiveTimers
	all     wire.AllTimers
	encoded map[string][][]byte
}

func (s *snapshot) encode(codec wire.Codec) ([][]byte, error) {
	if frames, ok := s.encoded[codec.Subprotocol()]; ok {
		return frames, nil
	}
	a, err := codec.Encode(s.active)
	if err != nil {
		return nil, err
	}
	all, err := codec.Encode(s.all)
	if err != nil {
		return nil, err
	}
	frames := [][]byte{a, all}
	s.encoded[codec.Subprotocol()] = frames
	return frames, nil
}
