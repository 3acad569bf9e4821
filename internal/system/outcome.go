package system

import (
	"fmt"
	"syscall"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
)

// OutcomeKind classifies how a command ended.
type OutcomeKind int

const (
	// Success means the command exited with status 0.
	Success OutcomeKind = iota
	// NonZeroExit means the command exited with a nonzero status.
	NonZeroExit
	// FatalSignal means the command was killed by a signal.
	FatalSignal
	// Interrupted means fragile itself received a trapped signal while the
	// command was running.
	Interrupted
)

func (k OutcomeKind) String() string {
	switch k {
	case Success:
		return "success"
	case NonZeroExit:
		return "nonzero-exit"
	case FatalSignal:
		return "fatal-signal"
	case Interrupted:
		return "interrupted"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// Outcome is the classified result of one command invocation.
//
// For FatalSignal, Code holds the negated signal number.
type Outcome struct {
	Kind    OutcomeKind
	Command string
	Code    int
	Signal  syscall.Signal
}

// Succeeded returns a Success outcome.
func Succeeded(command string) Outcome {
	return Outcome{Kind: Success, Command: command}
}

// Exited returns the outcome for a normal exit with the given status.
func Exited(command string, code int) Outcome {
	if code == 0 {
		return Succeeded(command)
	}
	return Outcome{Kind: NonZeroExit, Command: command, Code: code}
}

// Killed returns the outcome for a command terminated by sig.
func Killed(command string, sig syscall.Signal) Outcome {
	return Outcome{Kind: FatalSignal, Command: command, Code: -int(sig), Signal: sig}
}

// InterruptedBy returns the outcome for an external interruption.
func InterruptedBy(command string, sig syscall.Signal) Outcome {
	return Outcome{Kind: Interrupted, Command: command, Signal: sig}
}

// OK reports whether the command succeeded.
func (o Outcome) OK() bool {
	return o.Kind == Success
}

// Err converts a failed outcome into the matching error. It returns nil
// for Success.
func (o Outcome) Err() error {
	switch o.Kind {
	case Success:
		return nil
	case NonZeroExit, FatalSignal:
		return fraerrors.CommandFailed(o.Command, o.Code)
	case Interrupted:
		return fraerrors.Interrupted(o.Signal)
	default:
		return fraerrors.ControlError(fmt.Sprintf("unknown outcome %v for %s", o.Kind, o.Command))
	}
}

// ExitCode maps the outcome to a process exit status, using the shell
// convention of 128+n for signals.
func (o Outcome) ExitCode() int {
	switch o.Kind {
	case Success:
		return 0
	case NonZeroExit:
		return o.Code
	default:
		return fraerrors.ExitSignalBase + int(o.Signal)
	}
}

func (o Outcome) String() string {
	switch o.Kind {
	case Success:
		return o.Command + ": success"
	case NonZeroExit:
		return fmt.Sprintf("%s: exit %d", o.Command, o.Code)
	case FatalSignal:
		return fmt.Sprintf("%s: killed by %s", o.Command, o.Signal)
	default:
		return fmt.Sprintf("%s: interrupted by %s", o.Command, o.Signal)
	}
}
