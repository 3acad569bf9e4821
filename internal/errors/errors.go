package errors

import (
	"errors"
	"fmt"
	"syscall"
)

// Exit codes for fragile
const (
	ExitSuccess        = 0
	ExitUsage          = 1
	ExitInfrastructure = 2
	ExitSignalBase     = 128
)

// Kind classifies a FragileError.
type Kind int

const (
	KindUsage Kind = iota + 1
	KindCommandFailed
	KindIO
	KindControl
	KindInterrupted
	KindTestExit
)

func (k Kind) String() string {
	switch k {
	case KindUsage:
		return "usage"
	case KindCommandFailed:
		return "command-failed"
	case KindIO:
		return "io"
	case KindControl:
		return "control"
	case KindInterrupted:
		return "interrupted"
	case KindTestExit:
		return "test-exit"
	default:
		return "unknown"
	}
}

// FragileError is the base error type for fragile
type FragileError struct {
	Kind    Kind
	Code    int
	Message string
	Cause   error

	// Signal is set for KindInterrupted.
	Signal syscall.Signal
}

func (e *FragileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *FragileError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *FragileError) ExitCode() int {
	return e.Code
}

// New creates a new FragileError
func New(kind Kind, code int, message string) *FragileError {
	return &FragileError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a FragileError
func Wrap(kind Kind, code int, message string, cause error) *FragileError {
	return &FragileError{
		Kind:    kind,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Usage returns an error for a bad invocation
func Usage(message string) *FragileError {
	return New(KindUsage, ExitUsage, message)
}

// UsageWrap returns a usage error with an underlying cause
func UsageWrap(message string, cause error) *FragileError {
	return Wrap(KindUsage, ExitUsage, message, cause)
}

// CommandFailed returns an error for an infrastructure command that exited
// nonzero. A negative code means the command was killed by signal -code.
func CommandFailed(command string, code int) *FragileError {
	return New(KindCommandFailed, ExitInfrastructure, fmt.Sprintf("command %s failed with code %d", command, code))
}

// IOFailure returns an error for filesystem, lock, pipe or spawn failures
func IOFailure(message string, cause error) *FragileError {
	return Wrap(KindIO, ExitInfrastructure, message, cause)
}

// ControlError returns an error for violated expectations about collaborator output
func ControlError(message string) *FragileError {
	return New(KindControl, ExitInfrastructure, message)
}

// ErrResourceExhausted marks allocation failures caused by an empty pool.
var ErrResourceExhausted = errors.New("resource exhausted")

// ResourceExhausted returns a control error wrapping ErrResourceExhausted
func ResourceExhausted(message string) *FragileError {
	return Wrap(KindControl, ExitInfrastructure, message, ErrResourceExhausted)
}

// Interrupted returns an error for an external signal that preempted a step
func Interrupted(sig syscall.Signal) *FragileError {
	e := New(KindInterrupted, ExitSignalBase+int(sig), fmt.Sprintf("interrupted by signal %s", sigName(sig)))
	e.Signal = sig
	return e
}

// TestExit carries the test command's own nonzero exit status. It is the
// program's answer rather than a failure.
func TestExit(code int) *FragileError {
	return New(KindTestExit, code, fmt.Sprintf("test command exited with code %d", code))
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var fragileErr *FragileError
	if errors.As(err, &fragileErr) {
		return fragileErr.ExitCode()
	}
	return ExitInfrastructure
}

// KindOf returns the kind of the first FragileError in err's chain, or 0.
func KindOf(err error) Kind {
	var fragileErr *FragileError
	if errors.As(err, &fragileErr) {
		return fragileErr.Kind
	}
	return 0
}

// InterruptSignal reports the signal carried by an Interrupted error.
func InterruptSignal(err error) (syscall.Signal, bool) {
	var fragileErr *FragileError
	if errors.As(err, &fragileErr) && fragileErr.Kind == KindInterrupted {
		return fragileErr.Signal, true
	}
	return 0, false
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}

func sigName(sig syscall.Signal) string {
	return fmt.Sprintf("%d (%s)", int(sig), sig.String())
}
