package cli

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/config"
	"github.com/dmitrijs2005/timekeeper/internal/client/live"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
)

func stubInputs(t *testing.T, lines []string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	i := 0
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		i++
		return lines[i-1], nil
	}
	getPassword = func(_ io.Writer) ([]byte, error) { return password, nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

type fakeAuth struct {
	mu sync.Mutex

	user      string
	regUser   string
	regPass   string
	regErr    error
	loginErr  error
	logoutErr error
	restore   error
	loggedOut bool
}

func (f *fakeAuth) Register(_ context.Context, u string, p []byte) error {
	f.regUser, f.regPass = u, string(p)
	return f.regErr
}

func (f *fakeAuth) Login(_ context.Context, u string, _ []byte) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.mu.Lock()
	f.user = u
	f.mu.Unlock()
	return nil
}

func (f *fakeAuth) Restore(context.Context) error { return f.restore }

func (f *fakeAuth) Logout(context.Context) error {
	f.mu.Lock()
	f.user = ""
	f.loggedOut = true
	f.mu.Unlock()
	return f.logoutErr
}

func (f *fakeAuth) Ping(context.Context) error { return nil }

func (f *fakeAuth) UserName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeAuth) Scope() string { return f.UserName() + "@test" }

type fakeTimers struct {
	mu sync.Mutex

	started  string
	stopped  int64
	startErr error
	stopErr  error
	active   services.View
	all      services.View
	viewErr  error
	export   *client.Export
	exportTo string
	applied  []wire.Message
	live     []bool
	forgot   bool
}

func (f *fakeTimers) Start(_ context.Context, d string) (wire.Timer, error) {
	f.started = d
	return wire.Timer{ID: 9, Description: d, Active: true}, f.startErr
}

func (f *fakeTimers) Stop(_ context.Context, id int64) error {
	f.stopped = id
	return f.stopErr
}

func (f *fakeTimers) Active(context.Context) (services.View, error) { return f.active, f.viewErr }
func (f *fakeTimers) All(context.Context) (services.View, error)    { return f.all, f.viewErr }

func (f *fakeTimers) Export(context.Context) (*client.Export, error) {
	if f.export == nil {
		return nil, client.ErrUnavailable
	}
	return f.export, nil
}

func (f *fakeTimers) SaveExport(_ context.Context, _ *client.Export, path string) error {
	f.exportTo = path
	return nil
}

func (f *fakeTimers) Apply(_ context.Context, m wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, m)
	return nil
}

func (f *fakeTimers) SetLive(l bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live = append(f.live, l)
}

func (f *fakeTimers) Forget(context.Context) error {
	f.forgot = true
	return nil
}

func (f *fakeTimers) appliedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.applied)
}

// fakeAPI provides the token and push URL for the push loop.
type fakeAPI struct {
	client.Client
	mu    sync.Mutex
	token string
}

func (f *fakeAPI) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeAPI) SetToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = tok
}

func (f *fakeAPI) PushURL() (string, error) { return "ws://test/ws", nil }

// scriptedSubscriber plays a fixed sequence on every Run.
type scriptedSubscriber struct {
	handler live.Handler
	onState func(live.State)
	frames  []wire.Message
	err     error
	block   bool
	runs    *int
	mu      *sync.Mutex
}

func (s *scriptedSubscriber) OnStateChange(f func(live.State)) { s.onState = f }

func (s *scriptedSubscriber) Run(ctx context.Context, token string) error {
	s.mu.Lock()
	*s.runs++
	s.mu.Unlock()

	s.onState(live.StateAuthenticating)
	defer s.onState(live.StateDisconnected)
	for i, m := range s.frames {
		if i == 0 {
			s.onState(live.StateSubscribed)
		}
		s.handler(m)
	}
	if s.block {
		<-ctx.Done()
		return nil
	}
	return s.err
}

type testApp struct {
	*App
	auth   *fakeAuth
	timers *fakeTimers
	api    *fakeAPI
	out    *bytes.Buffer
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	auth := &fakeAuth{}
	timers := &fakeTimers{}
	api := &fakeAPI{}
	out := &bytes.Buffer{}
	app := &App{
		config:       &config.Config{ServerURL: "http://test", ReconnectInterval: 10 * time.Millisecond},
		api:          api,
		authService:  auth,
		timerService: timers,
		reader:       bufio.NewReader(strings.NewReader("")),
		out:          out,
	}
	t.Cleanup(app.stopPush)
	return &testApp{App: app, auth: auth, timers: timers, api: api, out: out}
}
