package query

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned when a statement is executed on a session
// that has not been connected, or has already been disconnected.
var ErrNotConnected = errors.New("query engine session is not connected")

// ConfigurationError reports a missing or invalid engine setting. It is
// fatal and surfaces at startup, never at query time.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("missing required setting %q", e.Key)
	}
	return fmt.Sprintf("invalid setting %q: %s", e.Key, e.Reason)
}

// ConnectionError reports a failure to reach or authenticate against the
// query engine. The underlying cause is kept for logging only.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return "connection error: " + e.Op
	}
	return fmt.Sprintf("connection error: %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// QueryError reports a statement-level failure. Statement echoes the SQL
// text that failed.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// ValidationError reports caller input rejected before it could reach the
// query engine.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConnection reports whether err is, or wraps, a ConnectionError.
func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

// IsQuery reports whether err is, or wraps, a QueryError.
func IsQuery(err error) bool {
	var qe *QueryError
	return errors.As(err, &qe)
}
