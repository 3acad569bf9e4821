package runtime

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/firefly-engineering/fragile/internal/config"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
	"github.com/firefly-engineering/fragile/internal/system"
)

// NixosContainer implements Runtime with nix-env, systemd and nsenter, the
// same tools nixos-container uses.
type NixosContainer struct {
	Runner          system.CommandRunner
	Tools           config.Tools
	NixosExpression string // e.g. <nixpkgs/nixos>
	SuPath          string // privilege switch helper inside the container
}

// NewNixosContainer creates a runtime from the host configuration.
func NewNixosContainer(runner system.CommandRunner, cfg *config.HostConfig) *NixosContainer {
	return &NixosContainer{
		Runner:          runner,
		Tools:           cfg.Tools,
		NixosExpression: cfg.NixosExpression,
		SuPath:          cfg.SuPath,
	}
}

// Name returns the runtime identifier
func (r *NixosContainer) Name() string {
	return "nixos-container"
}

func unitName(id string) string {
	return "container@" + id
}

// Build runs nix-env to set the container's system profile.
func (r *NixosContainer) Build(ctx context.Context, profile, configFile string) error {
	logging.Debug("building container profile", "profile", profile, "config", configFile)

	cmd := system.NewCommand(r.Tools.NixEnv,
		"-p", profile,
		"-I", "nixos-config="+configFile,
		"-f", r.NixosExpression,
		"--set",
		"-A", "system",
		"--show-trace",
	)
	return system.Check(ctx, r.Runner, cmd)
}

// Start starts the container's systemd unit
func (r *NixosContainer) Start(ctx context.Context, id string) error {
	logging.Debug("starting container", "container", id)
	return system.Check(ctx, r.Runner, system.NewCommand(r.Tools.Systemctl, "start", unitName(id)))
}

// Stop stops the container's systemd unit
func (r *NixosContainer) Stop(ctx context.Context, id string) error {
	logging.Debug("stopping container", "container", id)
	return system.Check(ctx, r.Runner, system.NewCommand(r.Tools.Systemctl, "stop", unitName(id)))
}

// Kill sends SIGKILL to all processes of the container's unit
func (r *NixosContainer) Kill(ctx context.Context, id string) error {
	logging.Debug("killing container", "container", id)
	return system.Check(ctx, r.Runner, system.NewCommand(r.Tools.Systemctl, "kill", unitName(id)))
}

// Leader asks machinectl for the container's leader PID.
func (r *NixosContainer) Leader(ctx context.Context, id string) (int, error) {
	out, err := system.CheckOutput(ctx, r.Runner, system.NewCommand(r.Tools.Machinectl, "show", id, "-p", "Leader"))
	if err != nil {
		return 0, err
	}
	pid, err := ParseLeader(out)
	if err != nil {
		return 0, err
	}
	logging.Debug("container leader resolved", "container", id, "pid", pid)
	return pid, nil
}

// Enter runs argv inside the container via nsenter and a login shell.
func (r *NixosContainer) Enter(ctx context.Context, leader int, argv []string) (system.Outcome, error) {
	if len(argv) == 0 {
		return system.Outcome{}, fraerrors.Usage("no command to run")
	}

	cmd := system.NewCommand(r.Tools.Nsenter,
		"-t", strconv.Itoa(leader),
		"-m", "-u", "-i", "-n", "-p",
		"--",
		r.SuPath, "root", "-l", "-c", ShellCommand(argv),
	)
	// nsenter dies with the container; stopping it is the caller's job.
	cmd.DetachOnInterrupt = true
	return r.Runner.Run(ctx, cmd)
}

// ParseLeader parses machinectl's "Leader=<pid>" property line. Trailing
// whitespace is allowed; anything else is a control error.
func ParseLeader(out string) (int, error) {
	line := strings.TrimRight(out, " \t\r\n")

	digits, ok := strings.CutPrefix(line, "Leader=")
	if !ok || digits == "" {
		return 0, fraerrors.ControlError(fmt.Sprintf("bad machinectl output %q", out))
	}
	for _, c := range digits {
		if c < '0' || c > '9' {
			return 0, fraerrors.ControlError(fmt.Sprintf("bad machinectl output %q", out))
		}
	}

	pid, err := strconv.Atoi(digits)
	if err != nil || pid <= 0 {
		return 0, fraerrors.ControlError(fmt.Sprintf("bad machinectl output %q", out))
	}
	return pid, nil
}

// ShellQuote wraps s in single quotes for a POSIX shell.
func ShellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// ShellCommand renders argv as "exec 'a' 'b' ...", quoting every word.
func ShellCommand(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = ShellQuote(a)
	}
	return "exec " + strings.Join(quoted, " ")
}
