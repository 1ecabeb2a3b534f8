// Package timeouts provides the deadlines used for database work.
//
// Handlers wrap each service call in context.WithTimeout using one of these
// values; the service itself imposes none. Values start at the defaults and
// may be tuned once at startup with Configure.
//
//   - Ping: health checks
//   - Read: single lookups and list queries
//   - Write: one read-modify-write of a matching
//   - Apply: an apply, including the per-student fan-out
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultPing  = 2 * time.Second
	DefaultRead  = 5 * time.Second
	DefaultWrite = 10 * time.Second
	DefaultApply = 60 * time.Second
)

// Config holds timeout values. Zero fields are ignored by Configure.
type Config struct {
	Ping  time.Duration
	Read  time.Duration
	Write time.Duration
	Apply time.Duration
}

func defaults() Config {
	return Config{Ping: DefaultPing, Read: DefaultRead, Write: DefaultWrite, Apply: DefaultApply}
}

var (
	mu  sync.RWMutex
	cur = defaults()
)

func get(f func(Config) time.Duration) time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return f(cur)
}

func Ping() time.Duration  { return get(func(c Config) time.Duration { return c.Ping }) }
func Read() time.Duration  { return get(func(c Config) time.Duration { return c.Read }) }
func Write() time.Duration { return get(func(c Config) time.Duration { return c.Write }) }
func Apply() time.Duration { return get(func(c Config) time.Duration { return c.Apply }) }

// Current returns a snapshot of the active values.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cur
}

// Configure overrides the non-zero fields of cfg.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	merge(&cur, cfg)
}

// Reset restores the defaults. Tests use it to undo Configure.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	cur = defaults()
}

func merge(dst *Config, src Config) {
	if src.Ping > 0 {
		dst.Ping = src.Ping
	}
	if src.Read > 0 {
		dst.Read = src.Read
	}
	if src.Write > 0 {
		dst.Write = src.Write
	}
	if src.Apply > 0 {
		dst.Apply = src.Apply
	}
}

// WithTimeout is context.WithTimeout whose cancel func logs a warning when
// the deadline was what ended the operation.
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Apply(), h.Log, "apply matching")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
