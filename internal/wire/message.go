// Package wire defines the records and push messages exchanged between the
// server and its clients.
//
// Push frames are a tagged variant: an event name plus a payload whose type
// is fixed by that name. Frames are validated when decoded, so a Message
// obtained from a Codec always carries a well-formed payload.
package wire

import (
	"errors"
	"fmt"
)

// Event names a push frame variant.
type Event string

const (
	EventActiveTimers Event = "active_timers"
	EventAllTimers    Event = "all_timers"
	EventAuthenticate Event = "authenticate"
)

var (
	ErrUnknownEvent   = errors.New("unknown event")
	ErrInvalidPayload = errors.New("invalid payload")
)

// Timer is the external representation of a timer. Timestamps are unix
// milliseconds. End and Duration are present exactly when the timer has
// been stopped.
type Timer struct {
	ID          int64  `json:"id"`
	UserID      string `json:"user_id"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
	Start       int64  `json:"start"`
	End         *int64 `json:"end,omitempty"`
	Duration    *int64 `json:"duration,omitempty"`
}

// Validate checks the active/end invariant and the derived duration.
func (t Timer) Validate() error {
	if t.Active != (t.End == nil) {
		return fmt.Errorf("%w: timer %d active=%t with end=%v", ErrInvalidPayload, t.ID, t.Active, t.End)
	}
	if t.End == nil {
		if t.Duration != nil {
			return fmt.Errorf("%w: timer %d has duration while active", ErrInvalidPayload, t.ID)
		}
		return nil
	}
	if t.Duration == nil || *t.Duration != *t.End-t.Start {
		return fmt.Errorf("%w: timer %d duration does not match end-start", ErrInvalidPayload, t.ID)
	}
	return nil
}

// Message is one push frame. The concrete types below are the only
// implementations.
type Message interface {
	Event() Event
	validate() error
}

// ActiveTimers carries the user's currently running timers.
type ActiveTimers struct {
	Timers []Timer
}

// AllTimers carries the user's complete timer history.
type AllTimers struct {
	Timers []Timer
}

// Authenticate is sent by a client whose handshake carried no token.
type Authenticate struct {
	Token string `json:"token"`
}

func (ActiveTimers) Event() Event { return EventActiveTimers }
func (AllTimers) Event() Event    { return EventAllTimers }
func (Authenticate) Event() Event { return EventAuthenticate }

func (m ActiveTimers) validate() error {
	for _, t := range m.Timers {
		if err := t.Validate(); err != nil {
			return err
		}
		if !t.Active {
			return fmt.Errorf("%w: inactive timer %d in %s", ErrInvalidPayload, t.ID, EventActiveTimers)
		}
	}
	return nil
}

func (m AllTimers) validate() error {
	for _, t := range m.Timers {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m Authenticate) validate() error {
	if m.Token == "" {
		return fmt.Errorf("%w: empty token", ErrInvalidPayload)
	}
	return nil
}

// payloadOf returns the value serialized as the frame payload.
func payloadOf(m Message) any {
	switch v := m.(type) {
	case ActiveTimers:
		return nonNil(v.Timers)
	case AllTimers:
		return nonNil(v.Timers)
	default:
		return m
	}
}

// newEmpty returns a pointer to decode a payload of the given event into.
func newEmpty(e Event) (any, error) {
	switch e {
	case EventActiveTimers, EventAllTimers:
		return &[]Timer{}, nil
	case EventAuthenticate:
		return &Authenticate{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, e)
	}
}

// fromDecoded builds the Message for e from the value newEmpty returned.
func fromDecoded(e Event, v any) Message {
	switch e {
	case EventActiveTimers:
		return ActiveTimers{Timers: nonNil(*v.(*[]Timer))}
	case EventAllTimers:
		return AllTimers{Timers: nonNil(*v.(*[]Timer))}
	default:
		return *v.(*Authenticate)
	}
}

func nonNil(ts []Timer) []Timer {
	if ts == nil {
		return []Timer{}
	}
	return ts
}
