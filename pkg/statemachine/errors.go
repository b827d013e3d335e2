package statemachine

import (
	"errors"
	"fmt"
)

var (
	ErrNilState          = errors.New("statemachine: initial state is nil")
	ErrInvalidTransition = errors.New("statemachine: transition needs from, to and event")
	ErrInvalidEvent      = errors.New("statemachine: event is nil")
	// ErrNoTransition is wrapped when the current state has no transition
	// for the event.
	ErrNoTransition = errors.New("statemachine: no transition")
	// ErrRejected is wrapped when every candidate transition failed a guard.
	ErrRejected = errors.New("statemachine: transition rejected by guards")
)

// TransitionError names the state and event of a failed Fire.
type TransitionError struct {
	State string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%v: state %q, event %q", e.Err, e.State, e.Event)
}

func (e *TransitionError) Unwrap() error { return e.Err }
