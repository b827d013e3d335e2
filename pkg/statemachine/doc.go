// Package statemachine implements a small, thread-safe finite state machine.
//
// States and events are anything with a Name; StringState and StringEvent
// cover the common case. Transitions are declared up front with New and
// WithTransition, may carry guards (all must pass) and actions (run before
// the state changes, an error aborts the transition), and may use Any as the
// source state to accept an event from every state.
//
//	sm := statemachine.MustNew(idle,
//		statemachine.WithTransition(idle, running, start),
//		statemachine.WithTransition(statemachine.Any, idle, stop),
//	)
//	err := sm.Fire(ctx, start, nil)
package statemachine
