package pattern

import (
	"fmt"
	"time"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
)

// Step is either a command step (Kind set) or a pause step (Pause set).
type Step struct {
	Kind       string `yaml:"kind,omitempty" json:"kind,omitempty"`
	Intensity  int    `yaml:"intensity,omitempty" json:"intensity,omitempty"`
	DurationMs int    `yaml:"duration_ms" json:"duration_ms"`
	Pause      bool   `yaml:"pause,omitempty" json:"pause,omitempty"`
}

// CommandStep builds a command step.
func CommandStep(kind command.Kind, intensity, durationMs int) Step {
	return Step{Kind: kind.String(), Intensity: intensity, DurationMs: durationMs}
}

// PauseStep builds a pause step.
func PauseStep(durationMs int) Step {
	return Step{Pause: true, DurationMs: durationMs}
}

func (s Step) IsPause() bool { return s.Pause }

// Duration returns the step duration, never negative.
func (s Step) Duration() time.Duration {
	return time.Duration(max(s.DurationMs, 0)) * time.Millisecond
}

// Command builds the command this step sends to deviceID.
func (s Step) Command(deviceID string) (command.Command, error) {
	return command.New(s.Kind, deviceID, s.Intensity, s.DurationMs)
}

// Pattern is a named, ordered list of steps. Treat it as immutable once built.
type Pattern struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Validate checks that the pattern has steps and every command step is well formed.
func (p Pattern) Validate() error {
	if len(p.Steps) == 0 {
		return ErrEmptyPattern
	}
	for i, s := range p.Steps {
		if s.IsPause() {
			continue
		}
		if _, err := s.Command("validate"); err != nil {
			return fmt.Errorf("%w %d: %w", ErrInvalidStep, i, err)
		}
	}
	return nil
}

// CommandSteps counts the steps that send a command.
func (p Pattern) CommandSteps() int {
	n := 0
	for _, s := range p.Steps {
		if !s.IsPause() {
			n++
		}
	}
	return n
}

// PassDuration is the sum of step durations for one pass, excluding queue margins.
func (p Pattern) PassDuration() time.Duration {
	var d time.Duration
	for _, s := range p.Steps {
		d += s.Duration()
	}
	return d
}

func (p Pattern) clone() Pattern {
	p.Steps = append([]Step(nil), p.Steps...)
	return p
}
