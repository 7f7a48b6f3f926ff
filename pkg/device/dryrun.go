package device

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// DryRun is a Sender that only logs what it would send.
type DryRun struct {
	logger *slog.Logger
}

// NewDryRun creates a DryRun sender. A nil logger discards output.
func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &DryRun{logger: logger}
}

func (d *DryRun) Shock(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return d.log(ctx, "shock", deviceID, intensity, duration)
}

func (d *DryRun) Vibrate(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return d.log(ctx, "vibrate", deviceID, intensity, duration)
}

func (d *DryRun) Sound(ctx context.Context, deviceID string, intensity int, duration time.Duration) error {
	return d.log(ctx, "sound", deviceID, intensity, duration)
}

func (d *DryRun) log(ctx context.Context, kind, deviceID string, intensity int, duration time.Duration) error {
	d.logger.InfoContext(ctx, "dry run: device command",
		slog.String("kind", kind),
		slog.String("device_id", deviceID),
		slog.Int("intensity", intensity),
		slog.Duration("duration", duration))
	return nil
}

var _ Sender = (*DryRun)(nil)
