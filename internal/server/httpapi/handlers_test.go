package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/register", "", credentialsRequest{UserName: "alice", Password: "secret"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rr registerResponse
	require.NoError(t, json.Unmarshal(body, &rr))
	assert.Equal(t, "alice", rr.UserName)
	assert.NotEmpty(t, rr.ID)
	assert.NotContains(t, string(body), "secret")

	resp, body = e.do(t, http.MethodPost, "/api/register", "", credentialsRequest{UserName: "alice", Password: "other"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeError(t, body).Error)
}

func TestRegister_Validation(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodPost, "/api/register", "", credentialsRequest{UserName: "", Password: "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeError(t, body).Error)

	resp, _ = e.do(t, http.MethodPost, "/api/register", "", "not an object")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)
	e.register(t, "alice", "secret")

	token := e.login(t, "alice", "secret")
	assert.NotEmpty(t, token)

	for _, tc := range []credentialsRequest{
		{UserName: "alice", Password: "wrong"},
		{UserName: "nobody", Password: "secret"},
	} {
		resp, body := e.do(t, http.MethodPost, "/api/login", "", tc)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		er := decodeError(t, body)
		assert.Equal(t, "unauthorized", er.Error)
		assert.NotContains(t, string(body), "token\"")
	}
}

func TestTimerRoutesRequireToken(t *testing.T) {
	e := newTestEnv(t)

	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/timers"},
		{http.MethodGet, "/api/timers/active"},
		{http.MethodPost, "/api/timers"},
		{http.MethodPost, "/api/timers/1/stop"},
		{http.MethodPost, "/api/timers/export"},
		{http.MethodPost, "/api/logout"},
		{http.MethodPost, "/timers/start"},
		{http.MethodPost, "/timers/stop"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			resp, body := e.do(t, rt.method, rt.path, "", map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, "unauthorized", decodeError(t, body).Error)

			resp, _ = e.do(t, rt.method, rt.path, "forged.token.value", map[string]any{})
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}

func TestTimerLifecycle(t *testing.T) {
	e := newTestEnv(t)
	token := e.signedIn(t, "alice")

	resp, body := e.do(t, http.MethodPost, "/api/timers", token, startTimerRequest{Description: "write report"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var started wire.Timer
	require.NoError(t, json.Unmarshal(body, &started))
	assert.True(t, started.Active)
	assert.Equal(t, "write report", started.Description)
	assert.Nil(t, started.End)
	assert.NotContains(t, string(body), "duration")

	resp, body = e.do(t, http.MethodGet, "/api/timers/active", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var active []wire.Timer
	require.NoError(t, json.Unmarshal(body, &active))
	require.Len(t, active, 1)
	assert.Equal(t, started.ID, active[0].ID)

	resp, body = e.do(t, http.MethodPost, fmt.Sprintf("/api/timers/%d/stop", started.ID), token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode, string(body))
	assert.Empty(t, body)

	resp, body = e.do(t, http.MethodGet, "/api/timers?status=active", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))

	resp, body = e.do(t, http.MethodGet, "/api/timers", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []wire.Timer
	require.NoError(t, json.Unmarshal(body, &all))
	require.Len(t, all, 1)
	stopped := all[0]
	assert.False(t, stopped.Active)
	require.NotNil(t, stopped.End)
	require.NotNil(t, stopped.Duration)
	assert.Equal(t, *stopped.End-stopped.Start, *stopped.Duration)

	resp, body = e.do(t, http.MethodPost, fmt.Sprintf("/api/timers/%d/stop", started.ID), token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_state", decodeError(t, body).Error)

	// the failed stop left the record alone
	_, body = e.do(t, http.MethodGet, "/api/timers?status=all", token, nil)
	var again []wire.Timer
	require.NoError(t, json.Unmarshal(body, &again))
	assert.Equal(t, all, again)
}

func TestStopTimer_Errors(t *testing.T) {
	e := newTestEnv(t)
	alice := e.signedIn(t, "alice")
	bob := e.signedIn(t, "bob")

	_, body := e.do(t, http.MethodPost, "/api/timers", alice, startTimerRequest{Description: "mine"})
	var timer wire.Timer
	require.NoError(t, json.Unmarshal(body, &timer))

	resp, body := e.do(t, http.MethodPost, fmt.Sprintf("/api/timers/%d/stop", timer.ID), bob, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decodeError(t, body).Error)

	_, body = e.do(t, http.MethodGet, "/api/timers", bob, nil)
	assert.JSONEq(t, `[]`, string(body))

	resp, _ = e.do(t, http.MethodPost, "/api/timers/999/stop", alice, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = e.do(t, http.MethodPost, "/api/timers/abc/stop", alice, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeError(t, body).Error)

	// still running after all of the above
	_, body = e.do(t, http.MethodGet, "/api/timers/active", alice, nil)
	var active []wire.Timer
	require.NoError(t, json.Unmarshal(body, &active))
	assert.Len(t, active, 1)
}

func TestListTimers_BadStatus(t *testing.T) {
	e := newTestEnv(t)
	token := e.signedIn(t, "alice")

	resp, body := e.do(t, http.MethodGet, "/api/timers?status=paused", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation", decodeError(t, body).Error)
}

func TestLegacyRoutes(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodPost, "/signup", "", credentialsRequest{UserName: "carol", Password: "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := e.do(t, http.MethodPost, "/login", "", credentialsRequest{UserName: "carol", Password: "pw"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var lr loginResponse
	require.NoError(t, json.Unmarshal(body, &lr))

	resp, body = e.do(t, http.MethodPost, "/timers/start", lr.Token, startTimerRequest{Description: "legacy"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var timer wire.Timer
	require.NoError(t, json.Unmarshal(body, &timer))

	resp, _ = e.do(t, http.MethodPost, "/timers/stop", lr.Token, stopTimerRequest{ID: timer.ID})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodPost, "/timers/stop", lr.Token, stopTimerRequest{ID: timer.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogout(t *testing.T) {
	e := newTestEnv(t)
	token := e.signedIn(t, "alice")
	other := e.login(t, "alice", "pw-alice")

	resp, _ := e.do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, "/api/timers", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// other sessions of the same user are unaffected
	resp, _ = e.do(t, http.MethodGet, "/api/timers", other, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestExport_NotConfigured(t *testing.T) {
	e := newTestEnv(t)
	token := e.signedIn(t, "alice")

	resp, body := e.do(t, http.MethodPost, "/api/timers/export", token, nil)
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	assert.Equal(t, "not_configured", decodeError(t, body).Error)
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)

	resp, body := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))

	e.store.err = common.ErrorTransientStore
	resp, body = e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unavailable"}`, string(body))
}

func TestRequestID(t *testing.T) {
	e := newTestEnv(t)

	resp, _ := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.NotEmpty(t, resp.Header.Get(common.RequestIDHeaderName))

	req, err := http.NewRequest(http.MethodGet, e.ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set(common.RequestIDHeaderName, "abc-123")
	resp, err = e.ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get(common.RequestIDHeaderName))
}

func TestRescueMiddleware(t *testing.T) {
	h := rescueMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}), logging.NewNopLogger())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", decodeError(t, rec.Body.Bytes()).Error)
}

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("x: %w", common.ErrorConflict), http.StatusConflict, "conflict"},
		{fmt.Errorf("%w: %w", common.ErrorUnauthorized, common.ErrTokenExpired), http.StatusUnauthorized, "unauthorized"},
		{common.ErrorNotFound, http.StatusNotFound, "not_found"},
		{common.ErrorInvalidState, http.StatusConflict, "invalid_state"},
		{common.ErrorValidation, http.StatusBadRequest, "validation"},
		{fmt.Errorf("db error: %w", common.ErrorTransientStore), http.StatusServiceUnavailable, "store_unavailable"},
		{common.ErrorNotConfigured, http.StatusNotImplemented, "not_configured"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, code := errorStatus(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.code, code, tc.err.Error())
	}
}

func TestWriteError_HidesInternals(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, fmt.Errorf("db error: %w: password=hunter2", common.ErrorTransientStore))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
