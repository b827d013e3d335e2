package statemachine

import (
	"context"
	"fmt"
	"sync"
)

// SimpleStateMachine is a thread-safe in-memory state machine.
// Transitions are indexed as [fromState][event][]Transition.
type SimpleStateMachine struct {
	initialState State
	currentState State
	transitions  map[string]map[string][]Transition
	listeners    []Listener
	mu           sync.RWMutex
}

func newSimpleStateMachine(initialState State) *SimpleStateMachine {
	return &SimpleStateMachine{
		initialState: initialState,
		currentState: initialState,
		transitions:  make(map[string]map[string][]Transition),
	}
}

func (sm *SimpleStateMachine) Current() State {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.currentState
}

// Is reports whether the current state has the same name as state.
func (sm *SimpleStateMachine) Is(state State) bool {
	if state == nil {
		return false
	}
	return sm.Current().Name() == state.Name()
}

func (sm *SimpleStateMachine) AddTransition(from, to State, event Event, guards []Guard, actions []Action) error {
	if from == nil || to == nil || event == nil {
		return ErrInvalidTransition
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	byEvent, ok := sm.transitions[from.Name()]
	if !ok {
		byEvent = make(map[string][]Transition)
		sm.transitions[from.Name()] = byEvent
	}

	// Several transitions for the same from/event pair are tried in order; the first whose guards pass wins.
	byEvent[event.Name()] = append(byEvent[event.Name()], Transition{
		From:    from,
		To:      to,
		Event:   event,
		Guards:  guards,
		Actions: actions,
	})
	return nil
}

// candidates returns transitions for the current state, falling back to Any.
// Callers hold sm.mu.
func (sm *SimpleStateMachine) candidates(event Event) []Transition {
	if ts := sm.transitions[sm.currentState.Name()][event.Name()]; len(ts) > 0 {
		return ts
	}
	return sm.transitions[Any.Name()][event.Name()]
}

// match returns the first candidate whose guards all pass.
func (sm *SimpleStateMachine) match(ctx context.Context, candidates []Transition, event Event, data any) *Transition {
	for i := range candidates {
		passed := true
		for _, guard := range candidates[i].Guards {
			if guard != nil && !guard(ctx, sm.currentState, event, data) {
				passed = false
				break
			}
		}
		if passed {
			return &candidates[i]
		}
	}
	return nil
}

func (sm *SimpleStateMachine) Fire(ctx context.Context, event Event, data any) error {
	if event == nil {
		return ErrInvalidEvent
	}

	sm.mu.Lock()

	candidates := sm.candidates(event)
	if len(candidates) == 0 {
		state := sm.currentState.Name()
		sm.mu.Unlock()
		return &TransitionError{State: state, Event: event.Name(), Err: ErrNoTransition}
	}

	t := sm.match(ctx, candidates, event, data)
	if t == nil {
		state := sm.currentState.Name()
		sm.mu.Unlock()
		return &TransitionError{State: state, Event: event.Name(), Err: ErrRejected}
	}

	from := sm.currentState
	for _, action := range t.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, t.To, event, data); err != nil {
			sm.mu.Unlock()
			return fmt.Errorf("action failed: %w", err)
		}
	}

	sm.currentState = t.To
	listeners := sm.listeners
	sm.mu.Unlock()

	for _, l := range listeners {
		l(from, t.To, event)
	}
	return nil
}

func (sm *SimpleStateMachine) CanFire(ctx context.Context, event Event, data any) bool {
	if event == nil {
		return false
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.match(ctx, sm.candidates(event), event, data) != nil
}

func (sm *SimpleStateMachine) Reset() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.currentState = sm.initialState
	return nil
}
