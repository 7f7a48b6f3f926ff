package pattern

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/hapticqueue/pkg/command"
)

// Library is a registry of named patterns. Names are case-insensitive.
type Library struct {
	mu       sync.RWMutex
	patterns map[string]Pattern
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{patterns: make(map[string]Pattern)}
}

// DefaultLibrary returns a library preloaded with the built-in patterns.
func DefaultLibrary() *Library {
	l := NewLibrary()
	for _, p := range builtin() {
		if err := l.Register(p); err != nil {
			panic(fmt.Sprintf("pattern: invalid built-in %q: %v", p.Name, err))
		}
	}
	return l
}

func key(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register validates p and stores it, replacing any pattern with the same name.
func (l *Library) Register(p Pattern) error {
	k := key(p.Name)
	if k == "" {
		return ErrNameRequired
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("pattern %q: %w", p.Name, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.patterns[k] = p.clone()
	return nil
}

// Get returns the pattern registered under name.
func (l *Library) Get(name string) (Pattern, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.patterns[key(name)]
	if !ok {
		return Pattern{}, fmt.Errorf("%w: %s", ErrPatternNotFound, name)
	}
	return p.clone(), nil
}

// Names returns registered pattern names in sorted order.
func (l *Library) Names() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	names := make([]string, 0, len(l.patterns))
	for _, p := range l.patterns {
		names = append(names, p.Name)
	}
	slices.Sort(names)
	return names
}

// All returns every registered pattern ordered by name.
func (l *Library) All() []Pattern {
	names := l.Names()
	out := make([]Pattern, 0, len(names))
	for _, n := range names {
		if p, err := l.Get(n); err == nil {
			out = append(out, p)
		}
	}
	return out
}

type patternFile struct {
	Patterns []Pattern `yaml:"patterns"`
}

// LoadYAML reads a document of the form
//
//	patterns:
//	  - name: ramp
//	    steps:
//	      - {kind: vibrate, intensity: 20, duration_ms: 300}
//	      - {pause: true, duration_ms: 100}
//
// Every pattern is validated before any of them is registered.
func (l *Library) LoadYAML(r io.Reader) error {
	var f patternFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode patterns: %w", err)
	}

	var errs []error
	for _, p := range f.Patterns {
		if key(p.Name) == "" {
			errs = append(errs, ErrNameRequired)
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("pattern %q: %w", p.Name, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for _, p := range f.Patterns {
		if err := l.Register(p); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile loads patterns from a YAML file.
func (l *Library) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open pattern file: %w", err)
	}
	defer f.Close()

	if err := l.LoadYAML(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func builtin() []Pattern {
	v, s, z := command.KindVibrate, command.KindShock, command.KindSound
	return []Pattern{
		{
			Name:        "pulse",
			Description: "Three short vibrations",
			Steps: []Step{
				CommandStep(v, 50, 300), PauseStep(200),
				CommandStep(v, 50, 300), PauseStep(200),
				CommandStep(v, 50, 300),
			},
		},
		{
			Name:        "wave",
			Description: "Vibration rising and falling in intensity",
			Steps: []Step{
				CommandStep(v, 20, 400), CommandStep(v, 40, 400), CommandStep(v, 60, 400),
				CommandStep(v, 80, 400), CommandStep(v, 60, 400), CommandStep(v, 40, 400),
				CommandStep(v, 20, 400),
			},
		},
		{
			Name:        "heartbeat",
			Description: "Double beat followed by a rest",
			Steps: []Step{
				CommandStep(v, 70, 150), PauseStep(100), CommandStep(v, 50, 150), PauseStep(600),
			},
		},
		{
			Name:        "sos",
			Description: "Morse SOS with beeps",
			Steps: []Step{
				CommandStep(z, 50, 200), PauseStep(150), CommandStep(z, 50, 200), PauseStep(150), CommandStep(z, 50, 200), PauseStep(400),
				CommandStep(z, 50, 600), PauseStep(150), CommandStep(z, 50, 600), PauseStep(150), CommandStep(z, 50, 600), PauseStep(400),
				CommandStep(z, 50, 200), PauseStep(150), CommandStep(z, 50, 200), PauseStep(150), CommandStep(z, 50, 200),
			},
		},
		{
			Name:        "tease",
			Description: "Warning beep, vibration, then a light shock",
			Steps: []Step{
				CommandStep(z, 30, 300), PauseStep(500), CommandStep(v, 60, 800), PauseStep(300), CommandStep(s, 15, 300),
			},
		},
	}
}
