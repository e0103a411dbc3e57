// Package errors provides custom error types and exit codes for rita.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Stage names a step of a download operation.
type Stage string

// Download stages, in the order they run.
const (
	StageValidate    Stage = "validate"
	StageWarmUp      Stage = "warm-up"
	StageSubmit      Stage = "submit"
	StageMaterialize Stage = "materialize"
	StageWrite       Stage = "write"
)

// RitaError is a custom error type that provides context about operations.
type RitaError struct {
	Op   string // Operation being performed (e.g., "load config", "update manifest")
	Path string // File/URI involved
	Err  error  // Underlying error
}

// Error implements the error interface.
func (e *RitaError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *RitaError) Unwrap() error {
	return e.Err
}

// ValidationError reports a year or month outside the range the data source serves.
// It is always returned before any network activity.
type ValidationError struct {
	Field string
	Value int
	Min   int
	Max   int
}

func (e *ValidationError) Error() string {
	switch {
	case e.Value < e.Min:
		return fmt.Sprintf("invalid %s %d: must be >= %d", e.Field, e.Value, e.Min)
	case e.Value > e.Max:
		return fmt.Sprintf("invalid %s %d: must be <= %d", e.Field, e.Value, e.Max)
	default:
		return fmt.Sprintf("invalid %s %d: must be between %d and %d", e.Field, e.Value, e.Min, e.Max)
	}
}

// ConnectivityError reports a transport-level failure (DNS, TLS, reset, ...).
type ConnectivityError struct {
	Stage Stage
	URL   string
	Err   error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s: request to %s failed: %v", e.Stage, e.URL, e.Err)
}

func (e *ConnectivityError) Unwrap() error {
	return e.Err
}

// TimeoutError reports a request that did not complete within its deadline.
type TimeoutError struct {
	Stage   Stage
	URL     string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s: request to %s timed out after %s", e.Stage, e.URL, e.Timeout)
	}
	return fmt.Sprintf("%s: request to %s timed out", e.Stage, e.URL)
}

func (e *TimeoutError) Unwrap() error {
	return e.Err
}

// UnexpectedStatusError reports a response whose status code the protocol does not allow.
type UnexpectedStatusError struct {
	Stage      Stage
	StatusCode int
	Status     string
	// Detail is optional server-provided context, such as an HTML page title.
	Detail string
}

func (e *UnexpectedStatusError) Error() string {
	msg := fmt.Sprintf("%s: unexpected status %d", e.Stage, e.StatusCode)
	if e.Status != "" {
		msg = fmt.Sprintf("%s: unexpected status %s", e.Stage, e.Status)
	}
	if e.Detail != "" {
		msg += fmt.Sprintf(" (%s)", e.Detail)
	}
	return msg
}

// ProtocolViolationError reports a response that broke the remote service's
// contract, e.g. a redirect without a Location header.
type ProtocolViolationError struct {
	Stage Stage
	Err   error
}

func (e *ProtocolViolationError) Error() string {
	return fmt.Sprintf("%s: protocol violation: %v", e.Stage, e.Err)
}

func (e *ProtocolViolationError) Unwrap() error {
	return e.Err
}

// SinkWriteError reports a destination that could not accept the artifact.
type SinkWriteError struct {
	Dest string
	Err  error
}

func (e *SinkWriteError) Error() string {
	return fmt.Sprintf("%s: write %s: %v", StageWrite, e.Dest, e.Err)
}

func (e *SinkWriteError) Unwrap() error {
	return e.Err
}

// Predefined errors for common scenarios.
var (
	ErrMissingLocation  = fmt.Errorf("redirect response has no Location header")
	ErrSessionState     = fmt.Errorf("session step called out of order")
	ErrSessionFailed    = fmt.Errorf("session already failed")
	ErrEmptyArtifact    = fmt.Errorf("downloaded artifact is empty")
	ErrUnsupportedSink  = fmt.Errorf("unsupported destination scheme")
	ErrManifestNotFound = fmt.Errorf("manifest not found")
	ErrInvalidConfig    = fmt.Errorf("invalid configuration")
)

// Exit codes - use these constants in CLI commands instead of hardcoding values.
const (
	ExitSuccess       = 0 // Success
	ExitGeneralError  = 1 // General error (file I/O, permissions)
	ExitConfigError   = 2 // Configuration or validation error (bad year/month, bad config)
	ExitProtocolError = 3 // Remote service answered outside its contract
	ExitNetworkError  = 4 // Network error (connectivity, timeout)
	ExitSinkError     = 5 // Destination could not be written
)

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		validationErr *ValidationError
		connErr       *ConnectivityError
		timeoutErr    *TimeoutError
		statusErr     *UnexpectedStatusError
		protocolErr   *ProtocolViolationError
		sinkErr       *SinkWriteError
	)

	switch {
	case errors.As(err, &validationErr), errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.As(err, &timeoutErr), errors.As(err, &connErr):
		return ExitNetworkError
	case errors.As(err, &statusErr), errors.As(err, &protocolErr):
		return ExitProtocolError
	case errors.As(err, &sinkErr):
		return ExitSinkError
	default:
		return ExitGeneralError
	}
}

// IsError checks if the given error matches the target error using errors.Is.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}
