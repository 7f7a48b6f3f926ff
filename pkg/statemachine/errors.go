package statemachine

import (
	"errors"
	"fmt"
)

// ErrNoTransition indicates that the current state has no transition for the event.
type ErrNoTransition struct {
	State string
	Event string
}

func (e *ErrNoTransition) Error() string {
	return fmt.Sprintf("no transition available from state '%s' for event '%s'", e.State, e.Event)
}

// IsNoTransition reports whether err is an *ErrNoTransition.
func IsNoTransition(err error) bool {
	var e *ErrNoTransition
	return errors.As(err, &e)
}
