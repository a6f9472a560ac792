// Package mongo manages the MongoDB connection lifecycle for serverless and
// container deployments: one shared connection per target database, reused
// across concurrent requests, with classified failures and health reporting.
//
// The package is built around four cooperating pieces:
//
//   - URI normalization (Normalize, Sanitize, Validate) rewrites raw
//     connection strings into canonical form, enforces retryWrites and
//     majority write concern, and guarantees credentials never reach logs.
//   - Error classification (Classify, ClassifiedError) maps opaque driver
//     failures into a closed set of kinds with stable codes, so route
//     handlers pick HTTP statuses without touching driver types.
//   - The Manager owns the shared connections, one per target database.
//     Cold starts are deduplicated with single-flight so a burst of
//     concurrent requests opens at most one connection per database;
//     failed attempts are retried with
//     exponential backoff and jitter, and a circuit breaker fails fast once
//     the database is clearly down.
//   - Health reporting (CheckHealth, DatabaseHealth, HealthHandler) probes
//     the live connection under its own ceiling timeout and serves
//     structured JSON for readiness probes.
//
// Build pipelines, static exports and test runs never touch the network:
// the environment guard short-circuits acquisition to a synthetic connected
// handle.
//
// # Usage
//
//	var cfg mongo.Config
//	config.MustLoad(&cfg)
//
//	manager := mongo.New(cfg, environment.FromEnv(),
//		mongo.WithLogger(log),
//	)
//	defer manager.DisconnectAll(context.Background())
//
//	handle, err := manager.Acquire(ctx)
//	if err != nil {
//		var cerr *mongo.ClassifiedError
//		if errors.As(err, &cerr) {
//			http.Error(w, cerr.Message, cerr.HTTPStatus())
//		}
//		return
//	}
//	db := handle.Conn().Client().Database(handle.Database())
//
// # Error Handling
//
// No raw driver error escapes the Manager or the health reporter. Every
// failure path runs through Classify; retryable kinds are retried up to the
// policy bound before surfacing, non-retryable kinds surface immediately.
// Callers translate the Kind to a transport status; raw causes are logged,
// never returned to an external client.
//
// # See Also
//
// Documentation for the official driver: https://pkg.go.dev/go.mongodb.org/mongo-driver/v2.
package mongo
