// Package statemachine provides a small, type-safe finite state machine.
//
// A Definition is an immutable transition table built once and shared; each
// Machine is a concurrency-safe instance holding its own current state:
//
//	type Status string
//	type Event string
//
//	var lifecycle = statemachine.NewDefinition[Status, Event]().
//		Permit("running", "finish", "completed").
//		Permit("running", "fail", "failed")
//
//	m := lifecycle.Start("running")
//	if _, err := m.Fire("finish"); err != nil {
//		// *statemachine.ErrNoTransition when the event is not allowed
//	}
//
// States without outgoing transitions are terminal: once reached, every Fire
// returns an error, which gives callers an "exactly once" guarantee for the
// transition into them.
package statemachine
