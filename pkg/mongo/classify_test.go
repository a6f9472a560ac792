package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	driver "go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/subtrackapp/subtrack/pkg/mongo"
)

type validationErr struct{ fields map[string]string }

func (e validationErr) Error() string                  { return "validation failed" }
func (e validationErr) FieldErrors() map[string]string { return e.fields }

type dupKeyErr struct{ key map[string]any }

func (e dupKeyErr) Error() string            { return "unique index violation" }
func (e dupKeyErr) KeyValue() map[string]any { return e.key }

type codedErr struct {
	code int
	msg  string
}

func (e codedErr) Error() string  { return e.msg }
func (e codedErr) ErrorCode() int { return e.code }

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		kind      mongo.Kind
		message   string
		retryable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			kind:      mongo.KindUnknown,
			message:   "unknown database error",
			retryable: false,
		},
		{
			name:      "context deadline",
			err:       fmt.Errorf("ping: %w", context.DeadlineExceeded),
			kind:      mongo.KindConnectionTimeout,
			message:   "database operation timed out",
			retryable: true,
		},
		{
			name:      "context cancellation",
			err:       fmt.Errorf("ping: %w", context.Canceled),
			kind:      mongo.KindConnectionTimeout,
			message:   "database operation cancelled",
			retryable: true,
		},
		{
			name:      "field error carrier aggregates in field order",
			err:       validationErr{fields: map[string]string{"price": "must be positive", "name": "required"}},
			kind:      mongo.KindValidationFailed,
			message:   "name: required; price: must be positive",
			retryable: false,
		},
		{
			name:      "key value carrier names the field",
			err:       dupKeyErr{key: map[string]any{"email": "a@b.com"}},
			kind:      mongo.KindDuplicateKey,
			message:   "duplicate value for field(s): email",
			retryable: false,
		},
		{
			name:      "wrapped key value carrier",
			err:       fmt.Errorf("insert subscription: %w", dupKeyErr{key: map[string]any{"email": "a@b.com"}}),
			kind:      mongo.KindDuplicateKey,
			message:   "duplicate value for field(s): email",
			retryable: false,
		},
		{
			name:      "error code 121",
			err:       codedErr{code: 121, msg: "Document failed validation"},
			kind:      mongo.KindValidationFailed,
			message:   "document failed validation",
			retryable: false,
		},
		{
			name:      "error code 11600 shutdown in progress",
			err:       codedErr{code: 11600, msg: "interrupted at shutdown"},
			kind:      mongo.KindServiceUnavailable,
			message:   "database has no healthy primary",
			retryable: true,
		},
		{
			name:      "unrecognized error code falls through",
			err:       codedErr{code: 8000, msg: "quota exceeded"},
			kind:      mongo.KindUnknown,
			message:   "unexpected database error",
			retryable: false,
		},
		{
			name: "command error duplicate key parses field from message",
			err: driver.CommandError{
				Code:    11000,
				Message: `E11000 duplicate key error collection: app.subscriptions index: email_1 dup key: { email: "a@b.com" }`,
			},
			kind:      mongo.KindDuplicateKey,
			message:   "duplicate value for field(s): email",
			retryable: false,
		},
		{
			name:      "command error host unreachable",
			err:       driver.CommandError{Code: 6, Message: "host unreachable"},
			kind:      mongo.KindConnectionFailed,
			message:   "database is unreachable",
			retryable: true,
		},
		{
			name:      "command error not writable primary",
			err:       driver.CommandError{Code: 10107, Message: "not writable primary"},
			kind:      mongo.KindServiceUnavailable,
			message:   "database has no healthy primary",
			retryable: true,
		},
		{
			name:      "plain net error",
			err:       &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			kind:      mongo.KindConnectionFailed,
			message:   "database is unreachable",
			retryable: true,
		},
		{
			name:      "server selection message",
			err:       errors.New("server selection error: context deadline exceeded, current topology: ..."),
			kind:      mongo.KindConnectionFailed,
			message:   "database is unreachable",
			retryable: true,
		},
		{
			name:      "timeout message",
			err:       errors.New("operation timed out"),
			kind:      mongo.KindConnectionTimeout,
			message:   "database operation timed out",
			retryable: true,
		},
		{
			name:      "recovering node message",
			err:       errors.New("node is recovering"),
			kind:      mongo.KindServiceUnavailable,
			message:   "database has no healthy primary",
			retryable: true,
		},
		{
			name:      "unrecognized error",
			err:       errors.New("something inexplicable"),
			kind:      mongo.KindUnknown,
			message:   "unexpected database error",
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := mongo.Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, tt.message, got.Message)
			assert.Equal(t, tt.retryable, got.Retryable)
			if tt.err != nil {
				assert.Equal(t, tt.err, got.Unwrap())
			}
		})
	}
}

func TestClassifyPassthrough(t *testing.T) {
	t.Parallel()

	original := mongo.Classify(errors.New("connection refused"))
	again := mongo.Classify(fmt.Errorf("acquire: %w", original))
	assert.Same(t, original, again)
}

func TestClassifyWriteExceptionKeyValue(t *testing.T) {
	t.Parallel()

	details, err := bson.Marshal(bson.D{{Key: "keyValue", Value: bson.D{{Key: "email", Value: "a@b.com"}}}})
	require.NoError(t, err)

	got := mongo.Classify(driver.WriteException{
		WriteErrors: []driver.WriteError{{
			Code:    11000,
			Message: "E11000 duplicate key error",
			Details: bson.Raw(details),
		}},
	})

	assert.Equal(t, mongo.KindDuplicateKey, got.Kind)
	assert.Equal(t, "duplicate value for field(s): email", got.Message)
	assert.Equal(t, http.StatusConflict, got.HTTPStatus())
}

func TestKindHTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind mongo.Kind
		want int
	}{
		{mongo.KindConnectionFailed, http.StatusServiceUnavailable},
		{mongo.KindConnectionTimeout, http.StatusServiceUnavailable},
		{mongo.KindServiceUnavailable, http.StatusServiceUnavailable},
		{mongo.KindDuplicateKey, http.StatusConflict},
		{mongo.KindValidationFailed, http.StatusBadRequest},
		{mongo.KindUnknown, http.StatusInternalServerError},
		{mongo.Kind("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestKindRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, mongo.KindConnectionFailed.Retryable())
	assert.True(t, mongo.KindConnectionTimeout.Retryable())
	assert.True(t, mongo.KindServiceUnavailable.Retryable())
	assert.False(t, mongo.KindDuplicateKey.Retryable())
	assert.False(t, mongo.KindValidationFailed.Retryable())
	assert.False(t, mongo.KindUnknown.Retryable())
}
