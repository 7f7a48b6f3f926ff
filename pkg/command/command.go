package command

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	MinIntensity = 0
	MaxIntensity = 100
)

// Command is a single device instruction. The zero value is not valid; use New.
type Command struct {
	kind       Kind
	deviceID   string
	intensity  int
	durationMs int
}

// New validates the input and builds a Command.
// kind is matched case-insensitively. Negative durations are kept as given
// and treated as zero by Duration.
func New(kind string, deviceID string, intensity, durationMs int) (Command, error) {
	k, err := ParseKind(kind)
	if err != nil {
		return Command{}, err
	}
	if intensity < MinIntensity || intensity > MaxIntensity {
		return Command{}, fmt.Errorf("%w: got %d", ErrInvalidIntensity, intensity)
	}

	return Command{
		kind:       k,
		deviceID:   deviceID,
		intensity:  intensity,
		durationMs: durationMs,
	}, nil
}

// MustNew is like New but panics on invalid input. Intended for static definitions and tests.
func MustNew(kind string, deviceID string, intensity, durationMs int) Command {
	c, err := New(kind, deviceID, intensity, durationMs)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Command) Kind() Kind       { return c.kind }
func (c Command) DeviceID() string { return c.deviceID }
func (c Command) Intensity() int   { return c.intensity }
func (c Command) DurationMs() int  { return c.durationMs }

// Duration returns the declared duration, never negative.
func (c Command) Duration() time.Duration {
	if c.durationMs <= 0 {
		return 0
	}
	return time.Duration(c.durationMs) * time.Millisecond
}

// Valid reports whether the command was built through New.
func (c Command) Valid() bool {
	return c.kind.Valid() && c.intensity >= MinIntensity && c.intensity <= MaxIntensity
}

// WithIntensity returns a copy with intensity clamped to the valid range.
func (c Command) WithIntensity(intensity int) Command {
	c.intensity = min(max(intensity, MinIntensity), MaxIntensity)
	return c
}

// WithDuration returns a copy with a new duration in milliseconds.
func (c Command) WithDuration(durationMs int) Command {
	c.durationMs = durationMs
	return c
}

// WithDevice returns a copy targeting another device.
func (c Command) WithDevice(deviceID string) Command {
	c.deviceID = deviceID
	return c
}

func (c Command) String() string {
	return fmt.Sprintf("%s(device=%s, intensity=%d, duration=%dms)", c.kind, c.deviceID, c.intensity, c.durationMs)
}

type wireCommand struct {
	Kind       string `json:"kind"`
	DeviceID   string `json:"device_id"`
	Intensity  int    `json:"intensity"`
	DurationMs int    `json:"duration_ms"`
}

func (c Command) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireCommand{
		Kind:       string(c.kind),
		DeviceID:   c.deviceID,
		Intensity:  c.intensity,
		DurationMs: c.durationMs,
	})
}

// UnmarshalJSON decodes and validates a command, so decoded values obey the same rules as New.
func (c *Command) UnmarshalJSON(data []byte) error {
	var w wireCommand
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := New(w.Kind, w.DeviceID, w.Intensity, w.DurationMs)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
