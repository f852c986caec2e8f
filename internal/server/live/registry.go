package live

import (
	"errors"
	"sync"

	"github.com/gorilla/websocket"
)

// ErrNotPending is returned by Register for a connection that is already
// authenticated or closed.
var ErrNotPending = errors.New("connection is not pending authentication")

// Registry tracks live connections: pending ones until they authenticate
// or time out, authenticated ones grouped by user.
type Registry struct {
	mu      sync.RWMutex
	pending map[*Connection]struct{}
	byUser  map[string]map[*Connection]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		pending: make(map[*Connection]struct{}),
		byUser:  make(map[string]map[*Connection]struct{}),
	}
}

// Add tracks a new pending connection and arranges for it to be removed
// when it closes.
func (r *Registry) Add(c *Connection) {
	c.onClose = r.Unregister

	r.mu.Lock()
	defer r.mu.Unlock()
	if c.State() == StateClosed {
		return
	}
	r.pending[c] = struct{}{}
}

// Register binds a pending connection to userID. A connection belongs to
// at most one user for its whole life.
func (r *Registry) Register(c *Connection, userID, tokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !c.authenticate(userID, tokenID) {
		return ErrNotPending
	}

	delete(r.pending, c)
	set, ok := r.byUser[userID]
	if !ok {
		set = make(map[*Connection]struct{})
		r.byUser[userID] = set
	}
	set[c] = struct{}{}
	return nil
}

// Unregister forgets c. It is safe to call more than once.
func (r *Registry) Unregister(c *Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.pending, c)
	userID := c.UserID()
	if set, ok := r.byUser[userID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// ConnectionsFor returns the user's authenticated connections at the time
// of the call.
func (r *Registry) ConnectionsFor(userID string) []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.byUser[userID]
	out := make([]*Connection, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// CloseToken closes every connection that authenticated with tokenID and
// returns how many there were.
func (r *Registry) CloseToken(tokenID string) int {
	r.mu.RLock()
	var victims []*Connection
	for _, set := range r.byUser {
		for c := range set {
			if c.TokenID() == tokenID {
				victims = append(victims, c)
			}
		}
	}
	r.mu.RUnlock()

	for _, c := range victims {
		c.Close(websocket.ClosePolicyViolation, "token revoked")
	}
	return len(victims)
}

// CloseAll closes every tracked connection, pending or not.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.RLock()
	all := make([]*Connection, 0, len(r.pending))
	for c := range r.pending {
		all = append(all, c)
	}
	for _, set := range r.byUser {
		for c := range set {
			all = append(all, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range all {
		c.Close(code, reason)
	}
}

// Stats returns the number of pending and authenticated connections.
func (r *Registry) Stats() (pending, authenticated int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, set := range r.byUser {
		authenticated += len(set)
	}
	return len(r.pending), authenticated
}
