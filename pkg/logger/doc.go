// Package logger builds configured log/slog loggers with tier-aware
// defaults.
//
// Production and staging emit JSON at info level for log aggregation;
// development emits human-readable text at debug level. Static attributes
// such as the service name and deployment tier are attached once at
// construction so every record carries them.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.FromEnv(), "subtrackd"),
//	)
//	log.Info("starting", slog.String("addr", ":8080"))
package logger
