package pipeline

import (
	"errors"
	"fmt"
)

type ErrorType int

const (
	ErrMalformedInput ErrorType = iota
	ErrDependency
	ErrNetwork
	ErrUnknown
)

func (t ErrorType) String() string {
	switch t {
	case ErrMalformedInput:
		return "MalformedInput"
	case ErrDependency:
		return "Dependency"
	case ErrNetwork:
		return "Network"
	default:
		return "Unknown"
	}
}

// Error is a step-attributed pipeline failure. Step is the name of the step
// that raised it, which the runner records as the job's final current_step.
type Error struct {
	Step    string
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s/%s] %s", e.Step, e.Type, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(step string, errorType ErrorType, message string) *Error {
	return &Error{Step: step, Type: errorType, Message: message}
}

func WrapError(step string, errorType ErrorType, message string, cause error) *Error {
	return &Error{Step: step, Type: errorType, Message: message, Cause: cause}
}

// FailedStep extracts the step name from a pipeline error, or "" when err is
// not step-attributed.
func FailedStep(err error) string {
	var stepErr *Error
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}

// IsErrorType reports whether err carries a pipeline error of the given type.
func IsErrorType(err error, errorType ErrorType) bool {
	var stepErr *Error
	if errors.As(err, &stepErr) {
		return stepErr.Type == errorType
	}
	return false
}
