package sandbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/fragile/internal/audit"
	"github.com/firefly-engineering/fragile/internal/config"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/runtime"
	"github.com/firefly-engineering/fragile/internal/system"
)

// Cleanup actions, in execution order.
const (
	ActionRemoveProfile    = "remove-profile"
	ActionRemoveGCRoot     = "remove-gcroot"
	ActionClearImmutable   = "clear-immutable"
	ActionRemoveRoot       = "remove-root"
	ActionRemoveDescriptor = "remove-descriptor"
)

// varEmpty carries the immutable attribute in NixOS container roots.
const varEmpty = "var/empty"

// StepResult is the result of one cleanup action.
type StepResult struct {
	Action string
	Target string
	Err    error
}

// CleanupReport aggregates the results of a Destroy call.
type CleanupReport struct {
	ID    string
	Steps []StepResult

	// Released is the descriptor found before removal, if it was readable.
	Released *config.Descriptor
}

// OK reports whether every step succeeded.
func (r *CleanupReport) OK() bool {
	return len(r.Failed()) == 0
}

// Failed returns the steps that failed.
func (r *CleanupReport) Failed() []StepResult {
	var failed []StepResult
	for _, s := range r.Steps {
		if s.Err != nil {
			failed = append(failed, s)
		}
	}
	return failed
}

func (r *CleanupReport) auditSteps() []audit.Step {
	steps := make([]audit.Step, len(r.Steps))
	for i, s := range r.Steps {
		steps[i] = audit.Step{Action: s.Action, Target: s.Target}
		if s.Err != nil {
			steps[i].Error = s.Err.Error()
		}
	}
	return steps
}

// Reaper stops and destroys sandboxes.
type Reaper struct {
	Paths   *config.Paths
	Runtime runtime.Runtime
	Runner  system.CommandRunner
	Tools   config.Tools
	Audit   *audit.Logger

	// FS inspects and removes files. Nil means system.DefaultFS.
	FS system.FileSystem
}

func (r *Reaper) fs() system.FileSystem {
	if r.FS != nil {
		return r.FS
	}
	return system.DefaultFS()
}

// Stop asks the sandbox to shut down. If the graceful stop is interrupted
// the container is killed instead.
func (r *Reaper) Stop(ctx context.Context, id string) error {
	err := r.Runtime.Stop(ctx, id)
	if fraerrors.KindOf(err) == fraerrors.KindInterrupted {
		logging.Sandbox(id).Debug("stop interrupted, killing container")
		err = r.Runtime.Kill(ctx, id)
	}
	if err != nil {
		return err
	}
	r.Audit.LogEvent(audit.EventStop, id, "")
	return nil
}

// Destroy removes every artifact of the sandbox. Each step runs even if an
// earlier one failed; failures are logged and collected in the report.
// Destroying an already destroyed sandbox succeeds. The error is non-nil
// only for an invalid identity.
func (r *Reaper) Destroy(ctx context.Context, id string) (*CleanupReport, error) {
	layout, err := r.Paths.For(id)
	if err != nil {
		return nil, fraerrors.UsageWrap("cannot destroy sandbox", err)
	}

	log := logging.Sandbox(id)
	report := &CleanupReport{ID: id}
	if d, err := config.LoadDescriptor(r.fs(), layout.Descriptor); err == nil {
		report.Released = &d
		log.Debug("releasing address block", "host", d.HostAddress, "local", d.LocalAddress)
	} else if !errors.Is(err, fs.ErrNotExist) {
		log.Debug("unreadable descriptor", "error", err)
	}

	run := func(action, target string, fn func() error) {
		err := fn()
		report.Steps = append(report.Steps, StepResult{Action: action, Target: target, Err: err})
		if err != nil {
			log.Warn("cleanup step failed", "action", action, "path", target, "error", err)
			return
		}
		log.Debug("cleanup step done", "action", action, "path", target)
	}

	run(ActionRemoveProfile, layout.Profile, func() error {
		return r.removeTree(ctx, layout.Profile)
	})
	run(ActionRemoveGCRoot, layout.GCRoot, func() error {
		return r.removeTree(ctx, layout.GCRoot)
	})
	emptyDir := filepath.Join(layout.Root, varEmpty)
	run(ActionClearImmutable, emptyDir, func() error {
		return r.clearVarEmpty(layout.Root)
	})
	run(ActionRemoveRoot, layout.Root, func() error {
		return r.removeTree(ctx, layout.Root)
	})
	run(ActionRemoveDescriptor, layout.Descriptor, func() error {
		if err := r.fs().Remove(layout.Descriptor); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fraerrors.IOFailure("failed to remove "+layout.Descriptor, err)
		}
		return nil
	})

	var details string
	if d := report.Released; d != nil {
		details = fmt.Sprintf("released host=%s local=%s", d.HostAddress, d.LocalAddress)
	}
	r.Audit.Record(audit.Event{
		Timestamp: time.Now(),
		Type:      audit.EventDestroy,
		Sandbox:   id,
		Details:   details,
		Steps:     report.auditSteps(),
	})
	return report, nil
}

// clearVarEmpty drops the immutable attribute from <root>/var/empty so the
// tree can be removed. The path is resolved inside root so a symlink
// planted by the guest cannot redirect the ioctl to a host file.
func (r *Reaper) clearVarEmpty(root string) error {
	fsys := r.fs()
	if _, err := fsys.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	path, err := securejoin.SecureJoin(root, varEmpty)
	if err != nil {
		return fraerrors.IOFailure("failed to resolve "+varEmpty, err)
	}
	info, err := fsys.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fraerrors.IOFailure("failed to stat "+path, err)
	}
	if !info.IsDir() {
		return nil
	}
	if err := clearImmutable(path); err != nil {
		return fraerrors.IOFailure("failed to clear immutable flag on "+path, err)
	}
	return nil
}
