package camera

import (
	"errors"
	"fmt"
)

// Error represents a domain-specific camera error. Typed failures are
// always delivered through an operation's callback or return value,
// never thrown across the caller/worker boundary.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	ErrCodeOpenedAlready = "DEVICE_OPENED_ALREADY"
	ErrCodeOpenFailure   = "DEVICE_OPEN_FAILURE"
	ErrCodeDisabled      = "DEVICE_DISABLED"
	ErrCodeReconnection  = "RECONNECTION_FAILURE"
	ErrCodeTimeout       = "OPERATION_TIMEOUT"
	ErrCodeRuntimeFault  = "RUNTIME_FAULT"
	ErrCodeClosed        = "DEVICE_CLOSED"
)

// NewError creates a new camera error.
func NewError(code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// IsCode reports whether err is a camera Error carrying the given code.
func IsCode(err error, code string) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == code
}
