package mongo

import "errors"

var (
	// ErrNotConnected is returned when an operation needs a live connection
	// and none has been established.
	ErrNotConnected = errors.New("no active mongo connection")

	// ErrHealthcheckTimeout is returned when a health probe exceeds its
	// ceiling before the server answers.
	ErrHealthcheckTimeout = errors.New("mongo healthcheck timed out")
)
