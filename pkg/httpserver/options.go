package httpserver

import (
	"log/slog"
	"time"
)

type options struct {
	addr            string
	readTimeout     time.Duration
	writeTimeout    time.Duration
	idleTimeout     time.Duration
	shutdownTimeout time.Duration
	log             *slog.Logger
	onStart         []func(*slog.Logger)
	onStop          []func(*slog.Logger)
}

func defaultOptions() options {
	return options{
		addr:            ":8080",
		readTimeout:     30 * time.Second,
		writeTimeout:    30 * time.Second,
		idleTimeout:     2 * time.Minute,
		shutdownTimeout: 5 * time.Second,
	}
}

// Option configures the Server.
type Option func(*options)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *options) {
		if addr != "" {
			o.addr = addr
		}
	}
}

// WithReadTimeout bounds reading the entire request, including the body.
func WithReadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.readTimeout = d
		}
	}
}

// WithWriteTimeout bounds writes of the response.
func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}

// WithIdleTimeout bounds keep-alive waits for the next request.
func WithIdleTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.idleTimeout = d
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithLogger supplies the logger. Defaults to a discard logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithStartHook registers a callback invoked when the server begins
// listening.
func WithStartHook(hook func(*slog.Logger)) Option {
	return func(o *options) {
		if hook != nil {
			o.onStart = append(o.onStart, hook)
		}
	}
}

// WithStopHook registers a callback invoked after the server shuts down.
func WithStopHook(hook func(*slog.Logger)) Option {
	return func(o *options) {
		if hook != nil {
			o.onStop = append(o.onStop, hook)
		}
	}
}
