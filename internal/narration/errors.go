package narration

import (
	"errors"
	"fmt"
)

// Narration failure modes. None of these is ever returned from Start or
// Stop; they are logged and the scheduler degrades instead.
var (
	// ErrEmptyInput indicates the text produced no playback units.
	ErrEmptyInput = errors.New("nothing to narrate")

	// ErrParseDegraded indicates the pause marker pattern could not be
	// compiled and the whole text is narrated as a single phrase.
	ErrParseDegraded = errors.New("pause markers unavailable, narrating without pauses")

	// ErrStaleCallback indicates an event arrived for a superseded session.
	ErrStaleCallback = errors.New("stale session callback")

	// ErrRedundantCompletion indicates a completion arrived after the
	// session had already drained.
	ErrRedundantCompletion = errors.New("redundant unit completion")

	// ErrBackendUnavailable indicates the requested voice or engine is
	// missing and a default is used.
	ErrBackendUnavailable = errors.New("speech backend unavailable")
)

// ErrorCode identifies a narration error category.
type ErrorCode string

const (
	ErrorCodeEmptyInput          ErrorCode = "EMPTY_INPUT"
	ErrorCodeParseDegraded       ErrorCode = "PARSE_DEGRADED"
	ErrorCodeStaleCallback       ErrorCode = "STALE_CALLBACK"
	ErrorCodeRedundantCompletion ErrorCode = "REDUNDANT_COMPLETION"
	ErrorCodeBackendUnavailable  ErrorCode = "BACKEND_UNAVAILABLE"
)

// Error carries a code and key/value context alongside the cause.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewError creates an Error with an empty context.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// Degrades reports whether the error reduces narration fidelity rather than
// being silently ignored.
func (e *Error) Degrades() bool {
	switch e.Code {
	case ErrorCodeParseDegraded, ErrorCodeBackendUnavailable:
		return true
	default:
		return false
	}
}
