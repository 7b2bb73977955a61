package triggerflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for supervisor construction.
var (
	// ErrEmptyIdentity indicates a supervisor was built without a handler identity.
	ErrEmptyIdentity = errors.New("handler identity is empty")

	// ErrReservedIdentity indicates the identity collides with the bypass-all token.
	ErrReservedIdentity = errors.New("handler identity is reserved")

	// ErrNilUnitOfWork indicates a supervisor was built without a unit of work.
	ErrNilUnitOfWork = errors.New("unit of work cannot be nil")

	// ErrNilHandler indicates a supervisor was built without a handler.
	ErrNilHandler = errors.New("handler cannot be nil")

	// ErrInvalidSettings indicates a settings document could not be applied.
	ErrInvalidSettings = errors.New("invalid settings")
)

// Sentinel errors for Run.
var (
	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")

	// ErrNilEvent indicates Run() was called without an event context.
	ErrNilEvent = errors.New("event context cannot be nil")

	// ErrRecursionLimitExceeded indicates a handler re-entered more often than
	// its max loop count allows.
	ErrRecursionLimitExceeded = errors.New("maximum loop count exceeded")
)

// ConfigError reports a supervisor or settings misconfiguration.
type ConfigError struct {
	// Identity is the handler identity involved, possibly empty.
	Identity string
	// Field names the offending setting or argument.
	Field string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Identity == "" {
		return fmt.Sprintf("triggerflow config: %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("triggerflow config: handler %q: %s: %v", e.Identity, e.Field, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// RecursionLimitError is returned when a run would push a handler past its
// max loop count. It must not be swallowed: the unit of work is broken.
type RecursionLimitError struct {
	// Identity is the handler that re-entered too often.
	Identity string
	// Phase is the phase of the refused run.
	Phase Phase
	// Max is the configured limit.
	Max int
	// Count is the loop count including the refused run.
	Count int
}

// Error implements the error interface.
func (e *RecursionLimitError) Error() string {
	return fmt.Sprintf("handler %s: %s: maximum loop count of %d reached", e.Identity, e.Phase, e.Max)
}

// Unwrap returns ErrRecursionLimitExceeded for errors.Is support.
func (e *RecursionLimitError) Unwrap() error {
	return ErrRecursionLimitExceeded
}

// HandlerError wraps an error returned by a phase callback.
type HandlerError struct {
	// Identity is the handler whose callback failed.
	Identity string
	// Phase is the callback that failed.
	Phase Phase
	// Err is the error the callback returned.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %s: %s: %v", e.Identity, e.Phase, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *HandlerError) Unwrap() error {
	return e.Err
}

// PanicError captures a panic raised by a phase callback.
// It includes the stack trace for debugging.
type PanicError struct {
	// Identity is the handler that panicked.
	Identity string
	// Phase is the callback that panicked.
	Phase Phase
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s: %s panicked: %v", e.Identity, e.Phase, e.Value)
}

// Unwrap returns the panic value when it is an error, so a callback that
// panics with an error stays matchable.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
