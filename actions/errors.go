package actions

import (
	"errors"
	"fmt"
)

// Kind classifies an action failure. The transport layer maps kinds to HTTP
// status codes; nothing below the transport ever sees a status code.
type Kind string

const (
	// KindValidation covers malformed or missing input fields, detected
	// before a request is admitted to the queue.
	KindValidation Kind = "validation_error"

	// KindInvalidKey means a key combination could not be parsed.
	KindInvalidKey Kind = "invalid_key"

	// KindUnsupportedCharacter means text injection cannot represent one of
	// the requested characters.
	KindUnsupportedCharacter Kind = "unsupported_character"

	// KindOutOfBounds means a coordinate lies outside the display.
	KindOutOfBounds Kind = "out_of_bounds"

	// KindExecution means a native input call failed.
	KindExecution Kind = "execution_error"

	// KindCapture means the screenshot read or encode failed.
	KindCapture Kind = "capture_error"

	// KindTimeout means the action exceeded its execution budget.
	KindTimeout Kind = "timeout"

	// KindBusy means the queue rejected the submission for backpressure.
	KindBusy Kind = "busy"

	// KindUnavailable means the display connection is degraded and the
	// queue is refusing work.
	KindUnavailable Kind = "unavailable"
)

// Error is a classified action failure. The underlying cause, when present,
// is preserved for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError builds an Error preserving the underlying cause.
func WrapError(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the failure kind from an error chain. Unclassified errors
// report KindExecution.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindExecution
}

// MessageOf extracts the human-readable message from an error chain.
func MessageOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		if ae.Cause != nil {
			return fmt.Sprintf("%s: %v", ae.Message, ae.Cause)
		}
		return ae.Message
	}
	return err.Error()
}
