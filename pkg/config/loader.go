package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/singleflight"
)

var (
	mu      sync.RWMutex
	cache   = make(map[reflect.Type]any)
	loading singleflight.Group

	dotenvOnce sync.Once
)

// LoadEnv reads the given .env files into the process environment.
// Variables already set in the environment win. Without arguments it reads
// ./.env and ignores a missing file.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}
	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// Load fills v from environment variables using `env` struct tags.
// Each config type is parsed once per process; later calls copy the cached value.
// The default .env file is read before the first parse.
//
//	var cfg queue.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() { _ = LoadEnv() })

	typ := reflect.TypeFor[T]()

	mu.RLock()
	cached, ok := cache[typ]
	mu.RUnlock()
	if ok {
		*v = cached.(T)
		return nil
	}

	res, err, _ := loading.Do(typ.String(), func() (any, error) {
		var parsed T
		if err := env.Parse(&parsed); err != nil {
			return nil, errors.Join(ErrParsingConfig, err)
		}
		mu.Lock()
		cache[typ] = parsed
		mu.Unlock()
		return parsed, nil
	})
	if err != nil {
		return err
	}
	*v = res.(T)
	return nil
}

// MustLoad is Load that panics on failure. Use it in main for required settings.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
}

// Reset drops every cached config so the next Load re-reads the environment.
func Reset() {
	mu.Lock()
	clear(cache)
	mu.Unlock()
}
