package sandbox

import (
	"context"
	"strings"
	"time"

	"github.com/firefly-engineering/fragile/internal/audit"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/runtime"
	"github.com/firefly-engineering/fragile/internal/signals"
	"github.com/firefly-engineering/fragile/internal/system"
)

// Runner starts sandboxes and runs commands inside them.
type Runner struct {
	Runtime runtime.Runtime
	Audit   *audit.Logger

	// Interrupts is consulted between steps, so a signal that arrived
	// while no supervised command was watching still aborts the run.
	// Events before Since are ignored; a zero Since accepts every event
	// the trap has recorded.
	Interrupts *signals.Trap
	Since      time.Time
}

// interrupted returns an Interrupted error for the first trapped signal
// since r.Since.
func (r *Runner) interrupted() error {
	if r.Interrupts == nil {
		return nil
	}
	if ev, ok := r.Interrupts.Since(r.Since); ok {
		return fraerrors.Interrupted(ev.Signal)
	}
	return nil
}

// Start launches the sandbox.
func (r *Runner) Start(ctx context.Context, id string) error {
	if err := r.interrupted(); err != nil {
		return err
	}
	if err := r.Runtime.Start(ctx, id); err != nil {
		return err
	}
	r.Audit.LogEvent(audit.EventStart, id, "")
	return nil
}

// Exec runs argv as root inside a started sandbox and returns its exit
// code. A nonzero code is a result, not an error; a command killed by a
// signal reports 128+signal. Only infrastructure failures and external
// interruption are returned as errors.
func (r *Runner) Exec(ctx context.Context, id string, argv []string) (int, error) {
	if err := r.interrupted(); err != nil {
		return 0, err
	}
	leader, err := r.Runtime.Leader(ctx, id)
	if err != nil {
		return 0, err
	}
	// The status query is not signal-aware.
	if err := r.interrupted(); err != nil {
		return 0, err
	}
	logging.Sandbox(id).Debug("entering sandbox", "leader", leader, "argv", argv)

	out, err := r.Runtime.Enter(ctx, leader, argv)
	if err != nil {
		return 0, err
	}
	if out.Kind == system.Interrupted {
		return 0, out.Err()
	}

	code := out.ExitCode()
	r.Audit.Record(audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventExec,
		Sandbox:   id,
		Details:   strings.Join(argv, " "),
		Code:      &code,
	})
	// Delivered after the last check but before nsenter was supervised.
	if err := r.interrupted(); err != nil {
		return code, err
	}
	return code, nil
}

// Run starts the sandbox and then executes argv in it.
func (r *Runner) Run(ctx context.Context, id string, argv []string) (int, error) {
	if err := r.Start(ctx, id); err != nil {
		return 0, err
	}
	return r.Exec(ctx, id, argv)
}
