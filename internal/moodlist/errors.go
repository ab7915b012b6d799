package moodlist

import (
	"errors"
	"fmt"
)

// Caller mistakes. These come back wrapped in a ConfigurationError and are
// never retried.
var (
	ErrInvalidQuery     = errors.New("invalid query")
	ErrNoSession        = errors.New("no active user")
	ErrReadOnly         = errors.New("mood list is read-only")
	ErrUsernameMismatch = errors.New("event belongs to another user")
	ErrMissingID        = errors.New("event has no id")
	ErrNotInList        = errors.New("event is not in this list")
)

var (
	// ErrStore marks a failed read or subscription delivery.
	ErrStore = errors.New("store delivery failed")
	// ErrConsistencyViolation means the projection failed validation right
	// after this engine wrote it.
	ErrConsistencyViolation = errors.New("recent projection consistency violation")
	ErrClosed               = errors.New("mood list closed")
)

// ConfigurationError is returned synchronously for a bad query or a mutation
// the list does not allow.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("moodlist %s: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func configErr(op string, err error) error {
	return &ConfigurationError{Op: op, Err: err}
}

// IsConfigurationError reports whether err is a caller mistake.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
