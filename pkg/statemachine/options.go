package statemachine

import "fmt"

// Option configures a state machine during construction.
type Option func(*SimpleStateMachine) error

// TransitionOption configures a single transition with guards and actions.
type TransitionOption func(*transitionConfig)

type transitionConfig struct {
	guards  []Guard
	actions []Action
}

// New creates a new state machine with the given initial state and options.
func New(initialState State, opts ...Option) (StateMachine, error) {
	if initialState == nil {
		return nil, ErrNilState
	}

	sm := newSimpleStateMachine(initialState)
	for _, opt := range opts {
		if err := opt(sm); err != nil {
			return nil, err
		}
	}
	return sm, nil
}

// MustNew is like New but panics when an option fails. Use it for machines
// whose transition tables are fixed at compile time.
func MustNew(initialState State, opts ...Option) StateMachine {
	sm, err := New(initialState, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return sm
}

// WithTransition adds a single transition to the state machine.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(sm *SimpleStateMachine) error {
		cfg := &transitionConfig{}
		for _, opt := range opts {
			opt(cfg)
		}
		return sm.AddTransition(from, to, event, cfg.guards, cfg.actions)
	}
}

// WithTransitionFrom registers the same transition for several source states.
func WithTransitionFrom(froms []State, to State, event Event, opts ...TransitionOption) Option {
	return func(sm *SimpleStateMachine) error {
		for _, from := range froms {
			if err := WithTransition(from, to, event, opts...)(sm); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithListener registers fn to be called after every completed transition.
// Listeners run outside the machine lock and may read Current.
func WithListener(fn Listener) Option {
	return func(sm *SimpleStateMachine) error {
		if fn != nil {
			sm.listeners = append(sm.listeners, fn)
		}
		return nil
	}
}

// WithGuard adds a single guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(cfg *transitionConfig) {
		if guard != nil {
			cfg.guards = append(cfg.guards, guard)
		}
	}
}

// WithAction adds a single action to a transition.
func WithAction(action Action) TransitionOption {
	return func(cfg *transitionConfig) {
		if action != nil {
			cfg.actions = append(cfg.actions, action)
		}
	}
}
