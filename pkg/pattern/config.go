package pattern

import "time"

// Config holds environment-driven executor settings.
type Config struct {
	Retention       time.Duration `env:"PATTERN_RETENTION" envDefault:"5m"`
	CleanupInterval time.Duration `env:"PATTERN_CLEANUP_INTERVAL" envDefault:"1m"`
	MaxRepeat       int           `env:"PATTERN_MAX_REPEAT" envDefault:"100"`
	// File is an optional YAML pattern file loaded on top of the built-ins.
	File string `env:"PATTERN_FILE"`
}

// Options maps the config onto executor options.
func (c Config) Options() []ExecutorOption {
	return []ExecutorOption{
		WithRetention(c.Retention),
		WithCleanupInterval(c.CleanupInterval),
		WithMaxRepeat(c.MaxRepeat),
	}
}

// Library returns the built-in library extended with File, if set.
func (c Config) Library() (*Library, error) {
	lib := DefaultLibrary()
	if c.File == "" {
		return lib, nil
	}
	if err := lib.LoadFile(c.File); err != nil {
		return nil, err
	}
	return lib, nil
}
