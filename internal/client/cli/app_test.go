package cli

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/client/live"
	"github.com/dmitrijs2005/timekeeper/internal/client/services"
	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignup(t *testing.T) {
	app := newTestApp(t)
	stubInputs(t, []string{"alice"}, []byte("pw"))

	require.NoError(t, app.Signup(context.Background()))
	assert.Equal(t, "alice", app.auth.regUser)
	assert.Equal(t, "pw", app.auth.regPass)
	assert.Contains(t, app.out.String(), "Success!")
}

func TestSignup_Taken(t *testing.T) {
	app := newTestApp(t)
	app.auth.regErr = common.ErrorConflict
	stubInputs(t, []string{"alice"}, []byte("pw"))

	require.ErrorIs(t, app.Signup(context.Background()), common.ErrorConflict)
	assert.Contains(t, app.out.String(), "already taken")
}

func TestLogin_StartsPushAndLogoutStopsIt(t *testing.T) {
	app := newTestApp(t)
	stubInputs(t, []string{"alice"}, []byte("pw"))

	var (
		mu   sync.Mutex
		runs int
	)
	app.newSubscriber = func(_ string, h live.Handler) subscriber {
		return &scriptedSubscriber{
			handler: h,
			frames:  []wire.Message{wire.ActiveTimers{Timers: []wire.Timer{}}},
			block:   true,
			runs:    &runs,
			mu:      &mu,
		}
	}
	app.api.SetToken("tok")

	require.NoError(t, app.Login(context.Background()))
	assert.True(t, app.isLoggedIn())
	assert.Contains(t, app.out.String(), "Logged in as alice")

	require.Eventually(t, func() bool { return app.timers.appliedCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Contains(t, app.getStatus(), "alice")
	assert.Contains(t, app.getStatus(), "live")

	require.NoError(t, app.Logout(context.Background()))
	assert.True(t, app.auth.loggedOut)
	assert.True(t, app.timers.forgot)
	assert.False(t, app.isLoggedIn())
	assert.NotContains(t, app.getStatus(), "live")

	mu.Lock()
	assert.Equal(t, 1, runs)
	mu.Unlock()
}

func TestLogin_Failure(t *testing.T) {
	app := newTestApp(t)
	app.auth.loginErr = client.ErrUnauthorized
	stubInputs(t, []string{"alice"}, []byte("bad"))

	require.ErrorIs(t, app.Login(context.Background()), client.ErrUnauthorized)
	assert.Contains(t, app.out.String(), "Not authorized")
	assert.False(t, app.isLoggedIn())
}

func TestLogout_NotLoggedIn(t *testing.T) {
	app := newTestApp(t)
	require.ErrorIs(t, app.Logout(context.Background()), client.ErrNotLoggedIn)
	assert.Contains(t, app.out.String(), "Please log in first")
}

func TestMaintainPush_ReconnectsUntilRejected(t *testing.T) {
	app := newTestApp(t)
	app.api.SetToken("tok")

	var (
		mu   sync.Mutex
		runs int
	)
	app.newSubscriber = func(_ string, h live.Handler) subscriber {
		mu.Lock()
		n := runs
		mu.Unlock()

		err := live.ErrDropped
		if n >= 2 {
			err = live.ErrRejected
		}
		return &scriptedSubscriber{handler: h, err: err, runs: &runs, mu: &mu}
	}

	done := make(chan struct{})
	go func() {
		app.maintainPush(context.Background(), "ws://test/ws")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("push loop did not stop after rejection")
	}
	mu.Lock()
	assert.Equal(t, 3, runs)
	mu.Unlock()
}

func TestMaintainPush_StopsWithoutToken(t *testing.T) {
	app := newTestApp(t)
	app.newSubscriber = func(string, live.Handler) subscriber {
		t.Fatal("subscriber created without a token")
		return nil
	}
	app.maintainPush(context.Background(), "ws://test/ws")
}

func TestSetPushState_TogglesLiveView(t *testing.T) {
	app := newTestApp(t)

	app.setPushState(live.StateAuthenticating)
	app.setPushState(live.StateSubscribed)
	app.setPushState(live.StateDisconnected)

	assert.Equal(t, []bool{false, true, false}, app.timers.live)
}

func TestStartStop(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.NoError(t, app.Start(ctx, []string{"write", "report"}))
	assert.Equal(t, "write report", app.timers.started)
	assert.Contains(t, app.out.String(), "Started timer #9: write report")

	require.NoError(t, app.Stop(ctx, []string{"#9"}))
	assert.Equal(t, int64(9), app.timers.stopped)
	assert.Contains(t, app.out.String(), "Stopped timer #9")
}

func TestStart_PromptsForDescription(t *testing.T) {
	app := newTestApp(t)
	stubInputs(t, []string{"prompted"}, nil)

	require.NoError(t, app.Start(context.Background(), nil))
	assert.Equal(t, "prompted", app.timers.started)
}

func TestStop_Errors(t *testing.T) {
	ctx := context.Background()

	app := newTestApp(t)
	require.Error(t, app.Stop(ctx, []string{"abc"}))
	assert.Contains(t, app.out.String(), "Usage: stop <id>")

	tests := []struct {
		err  error
		want string
	}{
		{common.ErrorNotFound, "No such timer"},
		{common.ErrorInvalidState, "already stopped"},
		{client.ErrNotLoggedIn, "Please log in first"},
		{client.ErrUnavailable, "Server unavailable"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		app := newTestApp(t)
		app.timers.stopErr = tt.err
		require.ErrorIs(t, app.Stop(ctx, []string{"1"}), tt.err)
		assert.Contains(t, app.out.String(), tt.want)
	}
}

func TestStatus(t *testing.T) {
	app := newTestApp(t)
	end, dur := int64(4000), int64(3000)
	app.timers.active = services.View{
		Timers: []wire.Timer{{ID: 1, Description: "coding", Active: true, Start: time.Now().UnixMilli()}},
		Source: services.SourceLive,
	}
	app.timers.all = services.View{
		Timers: []wire.Timer{{ID: 2, Description: "meeting", Start: 1000, End: &end, Duration: &dur}},
		Source: services.SourceCache,
		AsOf:   time.UnixMilli(5000),
	}
	ctx := context.Background()

	require.NoError(t, app.Status(ctx, nil))
	assert.Contains(t, app.out.String(), "coding")
	assert.Contains(t, app.out.String(), "(live)")
	assert.NotContains(t, app.out.String(), "meeting")

	app.out.Reset()
	require.NoError(t, app.Status(ctx, []string{"old"}))
	assert.Contains(t, app.out.String(), "meeting")
	assert.Contains(t, app.out.String(), "3s")
	assert.Contains(t, app.out.String(), "offline: cached at")
}

func TestStatus_Error(t *testing.T) {
	app := newTestApp(t)
	app.timers.viewErr = client.ErrUnavailable
	require.ErrorIs(t, app.Status(context.Background(), nil), client.ErrUnavailable)
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()

	require.ErrorIs(t, app.Export(ctx, nil), client.ErrUnavailable)

	app.timers.export = &client.Export{URL: "https://s3/x", Timers: 2, Size: 40, ExpiresAt: time.Now()}
	require.NoError(t, app.Export(ctx, []string{"out.json"}))
	assert.Contains(t, app.out.String(), "Exported 2 timers (40 bytes)")
	assert.Contains(t, app.out.String(), "https://s3/x")
	assert.Contains(t, app.out.String(), "Saved to out.json")
	assert.Equal(t, "out.json", app.timers.exportTo)
}

func TestSetMode_OnlyOnChange(t *testing.T) {
	app := newTestApp(t)
	app.setMode(ModeOnline)
	app.setMode(ModeOnline)
	assert.Equal(t, "(online)", app.getStatus())
	app.setMode(ModeOffline)
	assert.Equal(t, "(offline)", app.getStatus())
}
