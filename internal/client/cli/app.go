package cli

import (
	"bufio"
	"context"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/cache"
	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/live"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

// subscriber is the part of live.Subscriber the push loop uses.
type subscriber interface {
	Run(ctx context.Context, token string) error
	OnStateChange(f func(live.State))
}

type App struct {
	config       *config.Config
	api          client.Client
	authService  services.AuthService
	timerService services.TimerService
	closer       io.Closer
	reader       *bufio.Reader
	out          io.Writer

	newSubscriber func(url string, h live.Handler) subscriber

	mu        sync.Mutex
	mode      Mode
	pushState live.State
	pushStop  context.CancelFunc
	pushDone  chan struct{}
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	repos, err := cache.InitDatabase(ctx, c.CachePath)
	if err != nil {
		log.Printf("error initializing cache: %s", err.Error())
		return nil, err
	}

	api := client.NewHTTPClient(c.ServerURL)
	as := services.NewAuthService(api, c.ServerURL, repos.DB())
	ts := services.NewTimerService(api, repos.Snapshots, as.Scope)

	return &App{
		config:        c,
		api:           api,
		authService:   as,
		timerService:  ts,
		closer:        repos,
		reader:        bufio.NewReader(os.Stdin),
		out:           os.Stdout,
		newSubscriber: newLiveSubscriber,
	}, nil
}

func newLiveSubscriber(url string, h live.Handler) subscriber {
	return live.NewSubscriber(url, h)
}

// Run resumes a saved session if there is one, then serves the REPL until
// the user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer func() {
		a.stopPush()
		if a.closer != nil {
			_ = a.closer.Close()
		}
	}()

	printlnFn("Welcome to timekeeper (type 'help' for commands)")

	if err := a.authService.Restore(ctx); err == nil {
		printlnFn("Resumed session as", a.authService.UserName())
		a.startPush(ctx)
	}

	go a.StartOnlineStatusWatcher(ctx, a.config.ReconnectInterval)

	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.authService.UserName() != ""
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()

	if changed {
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) getStatus() string {
	a.mu.Lock()
	mode, push := a.mode, a.pushState
	a.mu.Unlock()

	s := ""
	if name := a.authService.UserName(); name != "" {
		s = name + " "
	}
	if mode != "" {
		s += string(mode)
	}
	if push == live.StateSubscribed {
		s += " live"
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

// StartOnlineStatusWatcher pings the server every interval and flips the
// connectivity mode when reachability changes.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.authService.Ping(pctx)
			cancel()

			if err != nil {
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}

		case <-ctx.Done():
			return
		}
	}
}
