// Package live is the client end of the push channel. A Subscriber moves
// through disconnected → authenticating → subscribed and hands every
// decoded frame to a handler. Reconnecting is left to the caller.
package live

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/dmitrijs2005/timekeeper/internal/common"
	"github.com/dmitrijs2005/timekeeper/internal/wire"
	"github.com/gorilla/websocket"
)

// State is the subscriber's connection state.
type State int

const (
	StateDisconnected State = iota
	StateAuthenticating
	StateSubscribed
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateSubscribed:
		return "subscribed"
	default:
		return "disconnected"
	}
}

var (
	// ErrRejected means the server refused the token. Retrying with the
	// same token is pointless.
	ErrRejected = errors.New("push channel rejected the token")
	// ErrDropped means an established channel ended.
	ErrDropped = errors.New("push channel dropped")
)

// Handler receives decoded push frames in arrival order.
type Handler func(wire.Message)

type Subscriber struct {
	url     string
	dialer  *websocket.Dialer
	handler Handler

	mu      sync.Mutex
	state   State
	onState func(State)
}

func NewSubscriber(url string, handler Handler) *Subscriber {
	return &Subscriber{
		url: url,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: websocket.DefaultDialer.HandshakeTimeout,
			Subprotocols:     []string{wire.SubprotocolCBOR, wire.SubprotocolJSON},
		},
		handler: handler,
	}
}

// OnStateChange installs f to be called after every state transition.
func (s *Subscriber) OnStateChange(f func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onState = f
}

func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	f := s.onState
	s.mu.Unlock()

	if changed && f != nil {
		f(st)
	}
}

// Run opens the channel with token and delivers frames until the channel
// ends or ctx is cancelled. It returns nil only on cancellation; the
// subscriber is disconnected when Run returns.
func (s *Subscriber) Run(ctx context.Context, token string) error {
	defer s.setState(StateDisconnected)
	s.setState(StateAuthenticating)

	header := http.Header{}
	header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)

	conn, resp, err := s.dialer.DialContext(ctx, s.url, header)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("dialing %s: %w", s.url, err)
	}
	resp.Body.Close()
	defer conn.Close()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	codec := wire.CodecFor(conn.Subprotocol())
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case websocket.IsCloseError(err, websocket.ClosePolicyViolation):
				return fmt.Errorf("%w: %v", ErrRejected, err)
			default:
				return fmt.Errorf("%w: %v", ErrDropped, err)
			}
		}

		msg, err := codec.Decode(data)
		if err != nil {
			return fmt.Errorf("decoding push frame: %w", err)
		}

		if s.State() == StateAuthenticating {
			s.setState(StateSubscribed)
		}
		s.handler(msg)
	}
}
