// Package environment resolves the deployment tier the process runs in
// (development, staging, production, test) and detects non-serving execution
// contexts such as CI builds and static exports.
//
// The typed string Environment carries the tier. It is resolved once from
// APP_ENV via FromEnv, can be attached to a context.Context with WithContext
// and queried with the convenience predicates IsDevelopment, IsStaging,
// IsProduction and IsTest. Middleware sets the tier on every request context
// and LoggerExtractor injects it into slog records.
//
// The Guard type answers a different question: regardless of tier, is this
// process actually serving traffic? During build pipelines, static exports
// and test runs there is no database to connect to, and connection code must
// short-circuit instead of dialing out. ShouldSkipDatabaseConnection
// evaluates the default Guard against the real process state.
//
// # Usage
//
//	env := environment.FromEnv()
//	if environment.ShouldSkipDatabaseConnection() {
//	    // return synthetic results, no network I/O
//	}
//
// All helpers are side-effect-free and never return errors. Missing values
// result in the zero value.
package environment
