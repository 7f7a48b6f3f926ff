package device

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
)

// Sender delivers commands to a device. Implementations may be slow or fail;
// callers must not assume any particular latency.
type Sender interface {
	Shock(ctx context.Context, deviceID string, intensity int, duration time.Duration) error
	Vibrate(ctx context.Context, deviceID string, intensity int, duration time.Duration) error
	Sound(ctx context.Context, deviceID string, intensity int, duration time.Duration) error
}

// Dispatch sends cmd through the Sender method matching its kind.
func Dispatch(ctx context.Context, s Sender, cmd command.Command) error {
	switch cmd.Kind() {
	case command.KindShock:
		return s.Shock(ctx, cmd.DeviceID(), cmd.Intensity(), cmd.Duration())
	case command.KindVibrate:
		return s.Vibrate(ctx, cmd.DeviceID(), cmd.Intensity(), cmd.Duration())
	case command.KindSound:
		return s.Sound(ctx, cmd.DeviceID(), cmd.Intensity(), cmd.Duration())
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, cmd.Kind())
	}
}
