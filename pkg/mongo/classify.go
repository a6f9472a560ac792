package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Kind is a stable, closed classification of database failures. Callers
// choose control flow (HTTP status, retry decisions) purely from the Kind
// without inspecting driver-specific fields.
type Kind string

const (
	// KindConnectionFailed covers network and socket level failures,
	// including server selection timeouts.
	KindConnectionFailed Kind = "CONNECTION_FAILED"
	// KindConnectionTimeout covers operations that exceeded a configured
	// timeout.
	KindConnectionTimeout Kind = "CONNECTION_TIMEOUT"
	// KindDuplicateKey covers unique-index violations.
	KindDuplicateKey Kind = "DUPLICATE_KEY"
	// KindValidationFailed covers documents rejected by schema validation.
	KindValidationFailed Kind = "VALIDATION_FAILED"
	// KindServiceUnavailable covers a reachable but unhealthy deployment:
	// no primary, members shutting down or recovering.
	KindServiceUnavailable Kind = "SERVICE_UNAVAILABLE"
	// KindUnknown covers everything unrecognized. Not retryable: retrying
	// errors we do not understand hides bugs.
	KindUnknown Kind = "UNKNOWN"
)

// Retryable reports whether failures of this kind are worth retrying.
func (k Kind) Retryable() bool {
	switch k {
	case KindConnectionFailed, KindConnectionTimeout, KindServiceUnavailable:
		return true
	default:
		return false
	}
}

// HTTPStatus maps the kind to a transport-level status code.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindConnectionFailed, KindConnectionTimeout, KindServiceUnavailable:
		return http.StatusServiceUnavailable
	case KindDuplicateKey:
		return http.StatusConflict
	case KindValidationFailed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ClassifiedError is a normalized error wrapper carrying a stable Kind.
// Message is safe to return to external clients; Cause is retained for logs
// only. A ClassifiedError is never mutated after creation.
type ClassifiedError struct {
	Kind      Kind
	Message   string
	Cause     error
	Retryable bool
}

func (e *ClassifiedError) Error() string {
	return e.Message
}

// Unwrap exposes the original driver error to errors.Is/As chains.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the transport status for this error's kind.
func (e *ClassifiedError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

// LogValue renders the error for structured logs, including the raw cause
// that must never reach an external client.
func (e *ClassifiedError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("kind", string(e.Kind)),
		slog.String("message", e.Message),
		slog.Bool("retryable", e.Retryable),
	}
	if e.Cause != nil {
		attrs = append(attrs, slog.String("cause", e.Cause.Error()))
	}
	return slog.GroupValue(attrs...)
}

func newClassified(kind Kind, message string, cause error) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: message, Cause: cause, Retryable: kind.Retryable()}
}

// Narrow capability surfaces the classifier understands. Driver errors are
// adapted to these at the boundary; application error types may implement
// them directly instead of teaching the classifier new shapes.
type (
	// ErrorCoder exposes a numeric server error code.
	ErrorCoder interface{ ErrorCode() int }
	// KeyValueCarrier exposes the conflicting index key of a duplicate-key
	// violation.
	KeyValueCarrier interface{ KeyValue() map[string]any }
	// FieldErrorCarrier exposes per-field validation failures.
	FieldErrorCarrier interface{ FieldErrors() map[string]string }
)

// Classify maps any error into a ClassifiedError. It is total: nil input,
// wrapped chains and unrecognized values all produce a result with a Kind
// from the closed set, and it never panics. Already-classified errors pass
// through unchanged.
func Classify(err error) *ClassifiedError {
	if err == nil {
		return newClassified(KindUnknown, "unknown database error", nil)
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return newClassified(KindConnectionTimeout, "database operation timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return newClassified(KindConnectionTimeout, "database operation cancelled", err)
	}

	var fieldErrs FieldErrorCarrier
	if errors.As(err, &fieldErrs) {
		return newClassified(KindValidationFailed, joinFieldErrors(fieldErrs.FieldErrors()), err)
	}

	var keyValue KeyValueCarrier
	if errors.As(err, &keyValue) {
		return duplicateKeyError(fieldNames(keyValue.KeyValue()), err)
	}

	var coder ErrorCoder
	if errors.As(err, &coder) {
		if ce := classifyCode(coder.ErrorCode(), err); ce != nil {
			return ce
		}
	}

	if mongo.IsDuplicateKeyError(err) {
		return duplicateKeyError(duplicateKeyFields(err), err)
	}

	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		if ce := classifyCode(int(cmdErr.Code), err); ce != nil {
			return ce
		}
	}

	if mongo.IsTimeout(err) {
		return newClassified(KindConnectionTimeout, "database operation timed out", err)
	}
	if mongo.IsNetworkError(err) {
		return newClassified(KindConnectionFailed, "database is unreachable", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newClassified(KindConnectionTimeout, "database operation timed out", err)
		}
		return newClassified(KindConnectionFailed, "database is unreachable", err)
	}

	return classifyMessage(err)
}

// Server error codes the classifier recognizes directly.
func classifyCode(code int, cause error) *ClassifiedError {
	switch code {
	case 11000, 11001, 12582: // DuplicateKey and legacy aliases
		return duplicateKeyError(duplicateKeyFields(cause), cause)
	case 121: // DocumentValidationFailure
		return newClassified(KindValidationFailed, "document failed validation", cause)
	case 50: // MaxTimeMSExpired
		return newClassified(KindConnectionTimeout, "database operation timed out", cause)
	case 6, 7, 89: // HostUnreachable, HostNotFound, NetworkTimeout
		return newClassified(KindConnectionFailed, "database is unreachable", cause)
	case 10107, 13435, 13436, 11600, 11602, 189: // NotWritablePrimary family, shutdown, stepdown
		return newClassified(KindServiceUnavailable, "database has no healthy primary", cause)
	default:
		return nil
	}
}

// classifyMessage is the last resort: lowercased substring checks against
// error strings the driver does not expose as typed values.
func classifyMessage(err error) *ClassifiedError {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "duplicate key"):
		return duplicateKeyError(duplicateKeyFields(err), err)
	case strings.Contains(msg, "document failed validation"):
		return newClassified(KindValidationFailed, "document failed validation", err)
	case strings.Contains(msg, "server selection"),
		strings.Contains(msg, "no reachable servers"),
		strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "connection reset"):
		return newClassified(KindConnectionFailed, "database is unreachable", err)
	case strings.Contains(msg, "deadline exceeded"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "timeout"):
		return newClassified(KindConnectionTimeout, "database operation timed out", err)
	case strings.Contains(msg, "not primary"),
		strings.Contains(msg, "no primary"),
		strings.Contains(msg, "node is recovering"),
		strings.Contains(msg, "topology is closed"):
		return newClassified(KindServiceUnavailable, "database has no healthy primary", err)
	default:
		return newClassified(KindUnknown, "unexpected database error", err)
	}
}

func duplicateKeyError(fields []string, cause error) *ClassifiedError {
	msg := "duplicate value for unique field"
	if len(fields) > 0 {
		msg = fmt.Sprintf("duplicate value for field(s): %s", strings.Join(fields, ", "))
	}
	return newClassified(KindDuplicateKey, msg, cause)
}

var (
	dupKeyValuePattern = regexp.MustCompile(`dup key: \{\s*([^:{}]+?)\s*:`)
	dupIndexPattern    = regexp.MustCompile(`index: ([A-Za-z0-9_.]+?)_-?\d+`)
)

// duplicateKeyFields extracts the offending field names from a duplicate-key
// error. Typed write errors carry the keyValue document; everything else
// falls back to parsing the server message.
func duplicateKeyFields(err error) []string {
	var fields []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			fields = append(fields, name)
		}
	}

	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if doc, ok := we.Details.Lookup("keyValue").DocumentOK(); ok {
				if elems, elemErr := doc.Elements(); elemErr == nil {
					for _, el := range elems {
						add(el.Key())
					}
				}
			}
		}
	}
	if len(fields) > 0 {
		return fields
	}

	if err != nil {
		msg := err.Error()
		if m := dupKeyValuePattern.FindStringSubmatch(msg); len(m) == 2 {
			add(m[1])
		}
		if m := dupIndexPattern.FindStringSubmatch(msg); len(m) == 2 {
			add(m[1])
		}
	}
	return fields
}

func fieldNames(keyValue map[string]any) []string {
	fields := make([]string, 0, len(keyValue))
	for name := range keyValue {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// joinFieldErrors aggregates all field validation failures into one
// user-safe message, semicolon-joined in field order.
func joinFieldErrors(fieldErrors map[string]string) string {
	if len(fieldErrors) == 0 {
		return "document failed validation"
	}
	names := make([]string, 0, len(fieldErrors))
	for name := range fieldErrors {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, fieldErrors[name]))
	}
	return strings.Join(parts, "; ")
}
