// Package gwerrors defines the gateway's error taxonomy: a small family of
// typed errors that every layer (adapter, session, registry, tunnel) wraps
// underlying driver/IO errors into, so the HTTP and CLI layers can branch
// on error kind without inspecting driver-specific error strings.
package gwerrors

import (
	"errors"
	"fmt"
)

// CanceledByUser is the stable tag a canceled query's error carries.
// Callers use errors.Is(err, CanceledByUser) to detect cancellation.
var CanceledByUser = errors.New("CANCELED_BY_USER")

// QueryNotReady is returned when cancel() is called before a query handle
// has reached the executing state (no cancellation token registered yet).
var QueryNotReady = errors.New("query not ready for cancellation")

// ValidationError reports a single offending field on a server descriptor
// or similar validated input.
type ValidationError struct {
	Field     string
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %q (%s): %s", e.Field, e.Validator, e.Message)
}

// NewValidationError constructs a ValidationError.
func NewValidationError(field, validator, message string) *ValidationError {
	return &ValidationError{Field: field, Validator: validator, Message: message}
}

// ConnectError wraps a failure to establish a driver or tunnel connection.
type ConnectError struct {
	Dialect string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect (%s): %v", e.Dialect, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// NewConnectError wraps err as a ConnectError for the given dialect.
func NewConnectError(dialect string, err error) *ConnectError {
	return &ConnectError{Dialect: dialect, Err: err}
}

// QueryError wraps a driver-reported SQL error, preserving the original
// error and recording which statement (by index) in a batch failed.
type QueryError struct {
	StatementIndex int
	Err            error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query error at statement %d: %v", e.StatementIndex, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// NewQueryError wraps err as a QueryError for the given statement index.
func NewQueryError(index int, err error) *QueryError {
	return &QueryError{StatementIndex: index, Err: err}
}

// CanceledError is produced by the cancellation path. errors.Is against
// CanceledByUser succeeds for any CanceledError.
type CanceledError struct {
	Err error
}

func (e *CanceledError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", CanceledByUser, e.Err)
	}
	return CanceledByUser.Error()
}

func (e *CanceledError) Is(target error) bool { return target == CanceledByUser }
func (e *CanceledError) Unwrap() error         { return e.Err }

// NewCanceledError builds a CanceledError, optionally wrapping a driver error.
func NewCanceledError(err error) *CanceledError {
	return &CanceledError{Err: err}
}

// NotSupportedError reports that an operation is not implemented for a
// dialect (e.g. Cassandra query cancellation).
type NotSupportedError struct {
	Operation string
	Dialect   string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s is not supported on %s", e.Operation, e.Dialect)
}

// NewNotSupportedError builds a NotSupportedError.
func NewNotSupportedError(operation, dialect string) *NotSupportedError {
	return &NotSupportedError{Operation: operation, Dialect: dialect}
}

// AuthError reports a vault decrypt failure (unknown/incorrect secret).
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// NewAuthError wraps err as an AuthError.
func NewAuthError(err error) *AuthError {
	return &AuthError{Err: err}
}

// ErrNotFound mirrors config.ErrNotFound for registry-style lookups that
// live outside the SQLite-backed config store.
var ErrNotFound = errors.New("not found")
