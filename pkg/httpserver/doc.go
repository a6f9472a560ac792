// Package httpserver is a small wrapper around net/http adding graceful
// shutdown, environment-driven timeouts and probe handlers.
//
// Run starts the listener in its own goroutine and blocks until the context
// is cancelled or an interrupt/TERM signal arrives, then drains in-flight
// requests within the shutdown timeout. Listen failures are wrapped with
// ErrStart and shutdown failures with ErrShutdown so callers can distinguish
// them with errors.Is.
//
// # Usage
//
//	srv := httpserver.NewFromConfig(cfg,
//		httpserver.WithLogger(log),
//	)
//	if err := srv.Run(ctx, router); err != nil {
//		log.Error("server stopped", logger.Error(err))
//	}
package httpserver
