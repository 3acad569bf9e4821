package cmd

import (
	"context"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/fragile/internal/app"
	"github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/sandbox"
	"github.com/firefly-engineering/fragile/internal/signals"
)

func runRoot(cmd *cobra.Command, args []string) error {
	if destroyID != "" {
		return runDestroy(cmd.Context(), destroyID)
	}
	return runTest(cmd.Context(), args[0], args[1:])
}

// runTest provisions a sandbox, runs the test command in it and tears the
// sandbox down again. A nonzero test exit is returned as a TestExit error.
func runTest(ctx context.Context, configArg string, testArgs []string) error {
	configFile, err := canonicalPath(configArg)
	if err != nil {
		return err
	}

	cfg, err := loadHostConfig()
	if err != nil {
		return err
	}
	if err := sandbox.InitHost(cfg.Paths()); err != nil {
		return err
	}

	trap, err := signals.New(syscall.SIGINT, syscall.SIGTERM)
	if err != nil {
		return errors.IOFailure("failed to trap signals", err)
	}
	defer trap.Close()

	a, err := app.New(cfg, app.WithInterrupts(trap))
	if err != nil {
		return err
	}

	sb, err := a.Provisioner().Create(ctx, configFile)
	if err != nil {
		return err
	}
	logging.Sandbox(sb.ID).Debug("sandbox provisioned", "block", sb.Block.String())

	code, runErr := a.SandboxRunner().Run(ctx, sb.ID, testArgs)

	cleanupCtx := context.WithoutCancel(ctx)
	reaper := a.Reaper()
	if err := reaper.Stop(cleanupCtx, sb.ID); err != nil {
		logging.Sandbox(sb.ID).Debug("failed to stop sandbox", "error", err)
	}
	if noDestroy {
		logInfo("Kept sandbox %s; remove it with --destroy %s", sb.ID, sb.ID)
	} else if err := destroy(cleanupCtx, reaper, sb.ID); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if code != 0 {
		return errors.TestExit(code)
	}
	return nil
}

// canonicalPath resolves the config file to an absolute, symlink-free path.
func canonicalPath(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.UsageWrap("for config file", err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", errors.UsageWrap("for config file", err)
	}
	return resolved, nil
}

// destroy runs the reaper and reports every failed cleanup step.
func destroy(ctx context.Context, reaper *sandbox.Reaper, id string) error {
	report, err := reaper.Destroy(ctx, id)
	if err != nil {
		return err
	}
	for _, step := range report.Failed() {
		logWarning("Cleanup of %s: %s failed for %s: %v", id, step.Action, step.Target, step.Err)
	}
	return nil
}
