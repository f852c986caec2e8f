package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/config"
	"github.com/dmitrijs2005/timekeeper/internal/server/live"
	"github.com/dmitrijs2005/timekeeper/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	ts       *httptest.Server
	registry *live.Registry
	store    *switchablePinger
}

// switchablePinger is a store whose reachability the test controls.
type switchablePinger struct {
	err error
}

func (p *switchablePinger) Ping(context.Context) error { return p.err }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.SecretKey = "test-secret"

	log := logging.NewNopLogger()
	m := repomanager.NewMemoryRepositoryManager()

	authService := services.NewAuthService(m, cfg, log)
	ledger := services.NewTimerLedger(m, log)
	registry := live.NewRegistry()
	broadcaster := live.NewBroadcaster(registry, ledger, log)
	ledger.SetNotifier(broadcaster)
	hub := live.NewHub(registry, broadcaster, authService, cfg, log)
	exports := services.NewExportService(ledger, cfg, log)
	store := &switchablePinger{}

	srv := NewServer(cfg.HTTPAddr, log, authService, ledger, exports, hub, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	t.Cleanup(hub.Shutdown)

	return &testEnv{ts: ts, registry: registry, store: store}
}

// do sends a request and returns the status and body. body is encoded as
// JSON unless it is nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, e.ts.URL+path, r)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := e.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (e *testEnv) register(t *testing.T, user, password string) {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/register", "", credentialsRequest{UserName: user, Password: password})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func (e *testEnv) login(t *testing.T, user, password string) string {
	t.Helper()
	resp, body := e.do(t, http.MethodPost, "/api/login", "", credentialsRequest{UserName: user, Password: password})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var lr loginResponse
	require.NoError(t, json.Unmarshal(body, &lr))
	require.NotEmpty(t, lr.Token)
	return lr.Token
}

// signedIn registers user and returns a fresh token for it.
func (e *testEnv) signedIn(t *testing.T, user string) string {
	t.Helper()
	e.register(t, user, "pw-"+user)
	return e.login(t, user, "pw-"+user)
}

func decodeError(t *testing.T, body []byte) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(body, &er), string(body))
	return er
}
