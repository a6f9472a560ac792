package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	mu     sync.RWMutex
	loaded = make(map[string]any)
	onces  = make(map[string]*sync.Once)

	dotenvOnce sync.Once
)

// Load parses environment variables into the provided configuration struct
// based on its `env` field tags. Each configuration type is parsed at most
// once per process; subsequent calls return the cached value so every
// component observes the same configuration.
//
// A .env file in the working directory is loaded on first use. A missing
// file is not an error.
//
// Example:
//
//	type DatabaseConfig struct {
//		URI     string `env:"MONGODB_URI,required"`
//		DBName  string `env:"MONGODB_DB_NAME" envDefault:"subscriptions"`
//	}
//
//	var cfg DatabaseConfig
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dotenvOnce.Do(func() {
		// The .env file is a development convenience, absence is fine.
		_ = godotenv.Load()
	})

	key := typeName[T]()

	mu.RLock()
	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		mu.RUnlock()
		return nil
	}
	mu.RUnlock()

	mu.Lock()
	once, ok := onces[key]
	if !ok {
		once = new(sync.Once)
		onces[key] = once
	}
	mu.Unlock()

	var parseErr error
	once.Do(func() {
		if err := env.Parse(v); err != nil {
			parseErr = errors.Join(ErrParsingConfig, err)
			return
		}
		mu.Lock()
		loaded[key] = *v // store a copy so callers cannot mutate the cache
		mu.Unlock()
	})
	if parseErr != nil {
		return parseErr
	}

	mu.RLock()
	defer mu.RUnlock()
	if cached, ok := loaded[key]; ok {
		*v = cached.(T)
		return nil
	}
	// The once ran in another goroutine and failed there.
	return ErrConfigNotLoaded
}

// MustLoad works like Load but panics on failure. Use for configuration the
// process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("failed to load required configuration: %v", err))
	}
}

func typeName[T any]() string {
	var zero T
	if t := reflect.TypeOf(zero); t != nil {
		return t.String()
	}
	return fmt.Sprintf("%T", *new(T))
}
