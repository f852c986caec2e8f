package services

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/client/client"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
CREATE TABLE snapshots (
  scope    TEXT    NOT NULL,
  event    TEXT    NOT NULL,
  frame    BLOB    NOT NULL,
  saved_at INTEGER NOT NULL,
  PRIMARY KEY (scope, event)
);
`)
	require.NoError(t, err)
	return db
}

func getMeta(t *testing.T, db *sql.DB, k string) string {
	t.Helper()
	var v []byte
	err := db.QueryRow(`SELECT value FROM metadata WHERE key=?`, k).Scan(&v)
	require.NoError(t, err)
	return string(v)
}

func countMeta(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata`).Scan(&n))
	return n
}

// fakeClient implements client.Client for service tests.
type fakeClient struct {
	mu sync.Mutex

	RegisterErr error
	LoginRet    client.Session
	LoginErr    error
	LogoutErr   error
	ListRet     []wire.Timer
	ListErr     error
	StartRet    wire.Timer
	StartErr    error
	StopErr     error
	ExportRet   *client.Export
	ExportErr   error
	PingErr     error

	LastRegister [2]string
	LastLogin    [2]string
	LastStopID   int64
	LastActive   bool
	ListCalls    int
	token        string
}

func (f *fakeClient) Register(_ context.Context, u, p string) error {
	f.LastRegister = [2]string{u, p}
	return f.RegisterErr
}

func (f *fakeClient) Login(_ context.Context, u, p string) (client.Session, error) {
	f.LastLogin = [2]string{u, p}
	if f.LoginErr != nil {
		return client.Session{}, f.LoginErr
	}
	f.SetToken(f.LoginRet.Token)
	return f.LoginRet, nil
}

func (f *fakeClient) Logout(context.Context) error {
	f.SetToken("")
	return f.LogoutErr
}

func (f *fakeClient) StartTimer(_ context.Context, d string) (wire.Timer, error) {
	return f.StartRet, f.StartErr
}

func (f *fakeClient) StopTimer(_ context.Context, id int64) error {
	f.LastStopID = id
	return f.StopErr
}

func (f *fakeClient) ListTimers(_ context.Context, activeOnly bool) ([]wire.Timer, error) {
	f.ListCalls++
	f.LastActive = activeOnly
	return f.ListRet, f.ListErr
}

func (f *fakeClient) Export(context.Context) (*client.Export, error) {
	return f.ExportRet, f.ExportErr
}

func (f *fakeClient) Ping(context.Context) error { return f.PingErr }

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) SetToken(tok string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = tok
}

func (f *fakeClient) PushURL() (string, error) { return "ws://example/ws", nil }

func activeTimer(id int64, desc string) wire.Timer {
	return wire.Timer{ID: id, UserID: "u1", Description: desc, Active: true, Start: 1000 * id}
}

func fixedNow(at time.Time) func() time.Time {
	return func() time.Time { return at }
}
