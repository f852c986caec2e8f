package live

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/logging"
	"github.com/dmitrijs2005/timekeeper/internal/server/models"
	"github.com/dmitrijs2005/timekeeper/internal/server/services"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/stretchr/testify/require"
)

var errConnClosed = errors.New("use of closed connection")

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

type frame struct {
	msgType int
	data    []byte
}

// fakeConn is an in-memory Conn. Frames the client sends are pushed to
// incoming; frames the server writes are recorded. Like a websocket
// connection it allows one writer at a time: WriteControl waits for an
// in-flight WriteMessage until its deadline.
type fakeConn struct {
	incoming chan []byte
	closed   chan struct{}
	wlock    chan struct{}

	mu           sync.Mutex
	frames       []frame
	writeErr     error
	writeGate    chan struct{}
	readDeadline time.Time
	closeCode    int
	closeReason  string
	closeOnce    sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		incoming: make(chan []byte, 4),
		closed:   make(chan struct{}),
		wlock:    make(chan struct{}, 1),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	f.mu.Lock()
	deadline := f.readDeadline
	f.mu.Unlock()

	var timeout <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b := <-f.incoming:
		return 1, b, nil
	case <-f.closed:
		return 0, nil, errConnClosed
	case <-timeout:
		return 0, nil, timeoutError{}
	}
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error {
	f.wlock <- struct{}{}
	defer func() { <-f.wlock }()

	f.mu.Lock()
	gate := f.writeGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-f.closed:
			return errConnClosed
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.frames = append(f.frames, frame{msgType: messageType, data: append([]byte(nil), data...)})
	return nil
}

func (f *fakeConn) WriteControl(_ int, data []byte, deadline time.Time) error {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()
	select {
	case f.wlock <- struct{}{}:
		defer func() { <-f.wlock }()
	case <-timer.C:
		return timeoutError{}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(data) >= 2 {
		f.closeCode = int(binary.BigEndian.Uint16(data))
		f.closeReason = string(data[2:])
	}
	return nil
}

func (f *fakeConn) SetReadDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDeadline = t
	return nil
}

func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeConn) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// code waits for the transport to be released, then returns the close
// code that was written before it.
func (f *fakeConn) code() int {
	select {
	case <-f.closed:
	case <-time.After(time.Second):
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCode
}

func (f *fakeConn) writes() []frame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]frame(nil), f.frames...)
}

// events decodes the recorded frames with codec.
func (f *fakeConn) events(t *testing.T, codec wire.Codec) []wire.Message {
	t.Helper()
	var out []wire.Message
	for _, w := range f.writes() {
		m, err := codec.Decode(w.data)
		require.NoError(t, err)
		out = append(out, m)
	}
	return out
}

func waitFrames(t *testing.T, f *fakeConn, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(f.writes()) >= n }, time.Second, 5*time.Millisecond)
}

func waitClosed(t *testing.T, f *fakeConn) {
	t.Helper()
	require.Eventually(t, f.isClosed, time.Second, 5*time.Millisecond)
}

// fakeLister serves timers from memory. onList, if set, runs after every
// read, under no lock.
type fakeLister struct {
	mu     sync.Mutex
	timers map[string][]models.Timer
	err    error
	onList func(userID string)
}

func newFakeLister() *fakeLister {
	return &fakeLister{timers: make(map[string][]models.Timer)}
}

func (l *fakeLister) add(t models.Timer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.timers[t.UserID] = append(l.timers[t.UserID], t)
}

func (l *fakeLister) ListAll(_ context.Context, userID string) ([]models.Timer, error) {
	l.mu.Lock()
	if l.err != nil {
		l.mu.Unlock()
		return nil, l.err
	}
	out := append([]models.Timer(nil), l.timers[userID]...)
	hook := l.onList
	l.mu.Unlock()

	if hook != nil {
		hook(userID)
	}
	return out, nil
}

// fakeAuth accepts the tokens it knows.
type fakeAuth struct {
	sessions map[string]*services.Session
	err      error
}

func (a *fakeAuth) Validate(_ context.Context, token string) (*services.Session, error) {
	if a.err != nil {
		return nil, a.err
	}
	s, ok := a.sessions[token]
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s, nil
}

func newTestConnection(f *fakeConn, queue int) *Connection {
	return newConnection(f, wire.JSONCodec{}, queue, time.Second, logging.NewNopLogger())
}

func timerAt(id int64, userID, desc string, start time.Time, end *time.Time) models.Timer {
	return models.Timer{ID: id, UserID: userID, Description: desc, StartedAt: start, EndedAt: end}
}
