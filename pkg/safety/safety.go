// Package safety defines the contract between the command queue and the
// policy component that approves, denies or adjusts each command before it is
// sent to a device. Policy itself lives outside this module.
package safety

import (
	"context"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
)

// Decision is the outcome of a safety check.
// When Allowed is true, Command is what will actually be sent; it may differ
// from the submitted command.
type Decision struct {
	Allowed bool
	Command command.Command
	Reason  string
}

// Allow approves cmd unchanged.
func Allow(cmd command.Command) Decision {
	return Decision{Allowed: true, Command: cmd}
}

// Deny rejects a command with a reason.
func Deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Checker approves or rejects a command for a user and device.
// It is called once per queue item, right before the item is sent.
type Checker interface {
	Check(ctx context.Context, cmd command.Command, userID, deviceID string) (Decision, error)
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context, cmd command.Command, userID, deviceID string) (Decision, error)

func (f CheckerFunc) Check(ctx context.Context, cmd command.Command, userID, deviceID string) (Decision, error) {
	return f(ctx, cmd, userID, deviceID)
}

// AllowAll approves every command unchanged.
var AllowAll Checker = CheckerFunc(func(_ context.Context, cmd command.Command, _, _ string) (Decision, error) {
	return Allow(cmd), nil
})
