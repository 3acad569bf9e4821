package system

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/signals"
)

// reapInterval bounds how long supervision waits without a SIGCHLD before
// checking on the child anyway. signal.Notify drops deliveries when a
// trap's channel is full.
var reapInterval = time.Second

// childTrap supplies the SIGCHLD trap supervision waits on.
var childTrap = signals.Child

// Runner implements CommandRunner with real processes.
type Runner struct {
	interrupts *signals.Trap
	forward    syscall.Signal
}

// NewRunner creates a Runner. Events on interrupts abort supervision of
// the running child, which then receives forward. A nil trap disables
// interrupt handling.
func NewRunner(interrupts *signals.Trap, forward syscall.Signal) *Runner {
	if forward == 0 {
		forward = syscall.SIGTERM
	}
	return &Runner{interrupts: interrupts, forward: forward}
}

// Run spawns cmd and supervises it until it exits or an interrupt arrives.
func (r *Runner) Run(ctx context.Context, cmd Command) (Outcome, error) {
	desc := cmd.String()

	child, err := childTrap()
	if err != nil {
		return Outcome{}, fraerrors.IOFailure("failed to trap SIGCHLD", err)
	}

	// Both cursors exist before the child does, so nothing delivered after
	// spawn can be missed.
	exits := child.Cursor()
	var interrupts *signals.Cursor
	if r.interrupts != nil {
		interrupts = r.interrupts.Cursor()
	}

	c := exec.Command(cmd.Path, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if cmd.Stdout != nil {
		c.Stdout = cmd.Stdout
	}
	if cmd.Stderr != nil {
		c.Stderr = cmd.Stderr
	}

	if err := c.Start(); err != nil {
		return Outcome{}, spawnError(cmd, err)
	}
	pid := c.Process.Pid
	defer func() { _ = c.Process.Release() }()

	logging.Debug("command started", "command", desc, "pid", pid)

	poll := time.NewTicker(reapInterval)
	defer poll.Stop()

	finish := func(out Outcome, err error) (Outcome, error) {
		if err == nil {
			logging.Debug("command finished", "command", desc, "outcome", out.Kind.String(), "code", out.Code)
		}
		return out, err
	}

	for {
		exitReady := exits.Ready()
		var interruptReady <-chan struct{}
		if interrupts != nil {
			interruptReady = interrupts.Ready()
		}

		ev, fromInterrupt, ok := nextEvent(exits, interrupts)
		if ok && fromInterrupt {
			r.interruptChild(cmd, pid, ev.Signal)
			return InterruptedBy(desc, ev.Signal), nil
		}
		if ok {
			out, done, err := reap(desc, pid)
			if err != nil || done {
				return finish(out, err)
			}
			continue
		}

		select {
		case <-exitReady:
		case <-interruptReady:
		case <-poll.C:
			out, done, err := reap(desc, pid)
			if err != nil || done {
				return finish(out, err)
			}
		case <-ctx.Done():
			_ = unix.Kill(pid, unix.SIGKILL)
			go reapLater(pid)
			return Outcome{}, ctx.Err()
		}
	}
}

// nextEvent consumes the oldest pending event across both cursors.
func nextEvent(exits, interrupts *signals.Cursor) (signals.Event, bool, bool) {
	exitEv, haveExit := exits.Peek()
	var intEv signals.Event
	var haveInt bool
	if interrupts != nil {
		intEv, haveInt = interrupts.Peek()
	}

	switch {
	case haveInt && (!haveExit || intEv.At.Before(exitEv.At)):
		interrupts.Poll()
		return intEv, true, true
	case haveExit:
		exits.Poll()
		return exitEv, false, true
	default:
		return signals.Event{}, false, false
	}
}

func (r *Runner) interruptChild(cmd Command, pid int, sig syscall.Signal) {
	logging.Warn("interrupted while running command", "command", cmd.String(), "signal", sig.String())
	if !cmd.DetachOnInterrupt {
		if err := unix.Kill(pid, r.forward); err != nil && !errors.Is(err, unix.ESRCH) {
			logging.Warn("failed to forward signal", "pid", pid, "signal", r.forward.String(), "error", err)
		}
	}
	go reapLater(pid)
}

// reap checks, without blocking, whether pid has terminated.
func reap(desc string, pid int) (Outcome, bool, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return Outcome{}, false, fraerrors.IOFailure("failed to wait for "+desc, err)
		}
		if wpid == 0 {
			return Outcome{}, false, nil
		}
		break
	}

	switch {
	case ws.Exited():
		return Exited(desc, ws.ExitStatus()), true, nil
	case ws.Signaled():
		return Killed(desc, ws.Signal()), true, nil
	default:
		// Stopped or continued; the child is still alive.
		return Outcome{}, false, nil
	}
}

func reapLater(pid int) {
	var ws unix.WaitStatus
	for {
		_, err := unix.Wait4(pid, &ws, 0, nil)
		if !errors.Is(err, unix.EINTR) {
			return
		}
	}
}

// Output runs cmd with stdout captured and stderr discarded.
func (r *Runner) Output(ctx context.Context, cmd Command) (string, Outcome, error) {
	desc := cmd.String()

	c := exec.CommandContext(ctx, cmd.Path, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir

	stdout, err := c.StdoutPipe()
	if err != nil {
		return "", Outcome{}, fraerrors.IOFailure("failed to create stdout pipe", err)
	}
	if err := c.Start(); err != nil {
		return "", Outcome{}, spawnError(cmd, err)
	}

	data, readErr := io.ReadAll(stdout)
	waitErr := c.Wait()
	if readErr != nil {
		return "", Outcome{}, fraerrors.IOFailure("failed to read output of "+desc, readErr)
	}
	if ctx.Err() != nil {
		return "", Outcome{}, ctx.Err()
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return "", Outcome{}, fraerrors.IOFailure("failed to wait for "+desc, waitErr)
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return string(data), Killed(desc, ws.Signal()), nil
		}
		return string(data), Exited(desc, exitErr.ExitCode()), nil
	}

	return string(data), Succeeded(desc), nil
}
