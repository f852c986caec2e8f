// Package server wires the timekeeper server together: storage, services,
// the live push hub, the HTTP gateway and the gRPC health endpoint. It
// runs them until the context is cancelled or a termination signal
// arrives, then shuts everything down.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/httpapi"
	"github.com/dmitrijs2005/timekeeper/internal/server/live"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"

	gs "github.com/dmitrijs2005/timekeeper/internal/server/grpc"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	authService *services.AuthService
	ledger      *services.TimerLedger
	exports     *services.ExportService
	hub         *live.Hub
}

// openStore is swapped in tests.
var openStore = func(c *config.Config) (repomanager.RepositoryManager, error) {
	if c.Storage == config.StorageMemory {
		return repomanager.NewMemoryRepositoryManager(), nil
	}
	return repomanager.OpenPostgres(c.DatabaseDSN)
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, logging.NewJSONLogger(os.Stdout, c.LogLevel))
}

func newApp(c *config.Config, logger logging.Logger) (*App, error) {
	rm, err := openStore(c)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	authService := services.NewAuthService(rm, c, logger)
	ledger := services.NewTimerLedger(rm, logger)

	registry := live.NewRegistry()
	broadcaster := live.NewBroadcaster(registry, ledger, logger)
	ledger.SetNotifier(broadcaster)
	hub := live.NewHub(registry, broadcaster, authService, c, logger)

	return &App{
		config:      c,
		logger:      logger,
		repomanager: rm,
		authService: authService,
		ledger:      ledger,
		exports:     services.NewExportService(ledger, c, logger),
		hub:         hub,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.HTTPAddr, app.logger, app.authService, app.ledger, app.exports, app.hub, app.repomanager)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.GRPCAddr, app.logger, app.repomanager, app.config.HealthCheckInterval)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// purgeRevocations deletes expired revocations periodically.
func (app *App) purgeRevocations(ctx context.Context) {
	t := time.NewTicker(app.config.RevocationPurgeInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			n, err := app.authService.PurgeRevoked(ctx, now)
			if err != nil {
				app.logger.Warn(ctx, "purging revoked tokens failed", "error", err)
				continue
			}
			if n > 0 {
				app.logger.Debug(ctx, "purged revoked tokens", "count", n)
			}
		}
	}
}

// Run migrates the store and serves until ctx is cancelled or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	defer func() {
		if err := app.repomanager.Close(); err != nil {
			app.logger.Error(ctx, "closing store failed", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting app...", "storage", app.config.Storage)

	if err := app.repomanager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	if app.config.GRPCAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			app.startGRPCServer(ctx, cancelFunc)
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.purgeRevocations(ctx)
	}()

	wg.Wait()
	app.logger.Info(context.WithoutCancel(ctx), "App stopped")
	return nil
}
