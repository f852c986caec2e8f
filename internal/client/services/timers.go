package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/repositories/snapshots"
	"github.com/dmitrijs2005/timekeeper/internal/client/utils"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/klauspost/compress/zstd"
)

// Source tells where a View came from.
type Source string

const (
	SourceLive   Source = "live"
	SourceServer Source = "server"
	SourceCache  Source = "cache"
)

// View is a list of timers together with its origin and age.
type View struct {
	Timers []wire.Timer
	Source Source
	AsOf   time.Time
}

// TimerService runs timer commands and answers status queries from the
// freshest source available: the live push snapshot while subscribed, the
// server otherwise, and the local cache when the server is unreachable.
type TimerService interface {
	Start(ctx context.Context, description string) (wire.Timer, error)
	Stop(ctx context.Context, id int64) error
	Active(ctx context.Context) (View, error)
	All(ctx context.Context) (View, error)
	Export(ctx context.Context) (*client.Export, error)
	// SaveExport downloads an export and writes the decompressed JSON to path.
	SaveExport(ctx context.Context, e *client.Export, path string) error

	// Apply records a pushed snapshot.
	Apply(ctx context.Context, m wire.Message) error
	// SetLive marks push snapshots as current or stale.
	SetLive(live bool)
	// Forget drops every snapshot of the current scope.
	Forget(ctx context.Context) error
}

type liveSnapshot struct {
	msg wire.Message
	at  time.Time
}

type timerService struct {
	client client.Client
	repo   snapshots.Repository
	scope  func() string
	now    func() time.Time

	mu   sync.Mutex
	live bool
	last map[wire.Event]liveSnapshot
}

// NewTimerService builds a TimerService. scope names the cache partition of
// the current user and is empty while logged out.
func NewTimerService(c client.Client, repo snapshots.Repository, scope func() string) TimerService {
	return &timerService{
		client: c,
		repo:   repo,
		scope:  scope,
		now:    time.Now,
		last:   make(map[wire.Event]liveSnapshot),
	}
}

func (s *timerService) Start(ctx context.Context, description string) (wire.Timer, error) {
	return s.client.StartTimer(ctx, description)
}

func (s *timerService) Stop(ctx context.Context, id int64) error {
	return s.client.StopTimer(ctx, id)
}

func (s *timerService) Active(ctx context.Context) (View, error) {
	return s.view(ctx, wire.EventActiveTimers)
}

func (s *timerService) All(ctx context.Context) (View, error) {
	return s.view(ctx, wire.EventAllTimers)
}

func (s *timerService) view(ctx context.Context, event wire.Event) (View, error) {
	if v, ok := s.liveView(event); ok {
		return v, nil
	}

	ts, err := s.client.ListTimers(ctx, event == wire.EventActiveTimers)
	if err == nil {
		now := s.now()
		_ = s.save(ctx, snapshotOf(event, ts), now)
		return View{Timers: ts, Source: SourceServer, AsOf: now}, nil
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return View{}, err
	}

	scope := s.scope()
	if scope == "" {
		return View{}, err
	}
	m, at, cerr := s.repo.Load(ctx, scope, event)
	if errors.Is(cerr, common.ErrorNotFound) {
		return View{}, err
	}
	if cerr != nil {
		return View{}, cerr
	}
	return View{Timers: timersOf(m), Source: SourceCache, AsOf: at}, nil
}

func (s *timerService) liveView(event wire.Event) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live {
		return View{}, false
	}
	snap, ok := s.last[event]
	if !ok {
		return View{}, false
	}
	return View{Timers: timersOf(snap.msg), Source: SourceLive, AsOf: snap.at}, true
}

func (s *timerService) Apply(ctx context.Context, m wire.Message) error {
	switch m.(type) {
	case wire.ActiveTimers, wire.AllTimers:
	default:
		return fmt.Errorf("%w: unexpected push frame %s", common.ErrorValidation, m.Event())
	}

	now := s.now()
	s.mu.Lock()
	s.last[m.Event()] = liveSnapshot{msg: m, at: now}
	s.mu.Unlock()

	return s.save(ctx, m, now)
}

func (s *timerService) SetLive(live bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.live = live
	if !live {
		clear(s.last)
	}
}

func (s *timerService) Forget(ctx context.Context) error {
	s.SetLive(false)
	scope := s.scope()
	if scope == "" {
		return nil
	}
	return s.repo.Clear(ctx, scope)
}

func (s *timerService) save(ctx context.Context, m wire.Message, at time.Time) error {
	scope := s.scope()
	if scope == "" {
		return nil
	}
	return s.repo.Save(ctx, scope, m, at)
}

func (s *timerService) Export(ctx context.Context) (*client.Export, error) {
	return s.client.Export(ctx)
}

func (s *timerService) SaveExport(ctx context.Context, e *client.Export, path string) error {
	body, err := utils.Download(ctx, e.URL)
	if err != nil {
		return fmt.Errorf("download export: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()

	plain, err := dec.DecodeAll(body, nil)
	if err != nil {
		return fmt.Errorf("decompress export: %w", err)
	}
	return os.WriteFile(path, plain, 0o600)
}

func snapshotOf(event wire.Event, ts []wire.Timer) wire.Message {
	if ts == nil {
		ts = []wire.Timer{}
	}
	if event == wire.EventActiveTimers {
		return wire.ActiveTimers{Timers: ts}
	}
	return wire.AllTimers{Timers: ts}
}

func timersOf(m wire.Message) []wire.Timer {
	switch v := m.(type) {
	case wire.ActiveTimers:
		return v.Timers
	case wire.AllTimers:
		return v.Timers
	}
	return nil
}
