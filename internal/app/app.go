// Package app provides the application context for fragile.
// It allows dependency injection for testing.
package app

import (
	"fmt"

	"github.com/firefly-engineering/fragile/internal/address"
	"github.com/firefly-engineering/fragile/internal/audit"
	"github.com/firefly-engineering/fragile/internal/config"
	"github.com/firefly-engineering/fragile/internal/runtime"
	"github.com/firefly-engineering/fragile/internal/sandbox"
	"github.com/firefly-engineering/fragile/internal/signals"
	"github.com/firefly-engineering/fragile/internal/system"
)

// App holds the application dependencies
type App struct {
	// HostConfig is the loaded host configuration
	HostConfig *config.HostConfig

	// Paths holds the host directories derived from HostConfig
	Paths *config.Paths

	// Interrupts is the trap whose signals abort running commands
	Interrupts *signals.Trap

	// Runner executes collaborator commands
	Runner system.CommandRunner

	// Runtime is the container runtime
	Runtime runtime.Runtime

	// Audit records lifecycle events
	Audit *audit.Logger
}

// Option is a function that configures the App
type Option func(*App)

// WithInterrupts sets the trap consulted while commands run
func WithInterrupts(trap *signals.Trap) Option {
	return func(a *App) {
		a.Interrupts = trap
	}
}

// WithRunner sets a custom command runner
func WithRunner(r system.CommandRunner) Option {
	return func(a *App) {
		a.Runner = r
	}
}

// WithRuntime sets a custom runtime
func WithRuntime(r runtime.Runtime) Option {
	return func(a *App) {
		a.Runtime = r
	}
}

// WithAudit sets a custom audit logger
func WithAudit(l *audit.Logger) Option {
	return func(a *App) {
		a.Audit = l
	}
}

// New creates an App for cfg. Dependencies not provided through options
// are built from the configuration.
func New(cfg *config.HostConfig, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("host config is required")
	}

	app := &App{
		HostConfig: cfg,
		Paths:      cfg.Paths(),
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.Runner == nil {
		sig, err := cfg.Signal()
		if err != nil {
			return nil, err
		}
		app.Runner = system.NewRunner(app.Interrupts, sig)
	}
	if app.Runtime == nil {
		app.Runtime = runtime.NewNixosContainer(app.Runner, cfg)
	}
	if app.Audit == nil {
		app.Audit = audit.NewLogger(cfg.EventsDir)
	}

	return app, nil
}

// Allocator returns the address allocator for the descriptor directory.
func (a *App) Allocator() *address.Allocator {
	return &address.Allocator{
		DescriptorDir: a.Paths.DescriptorDir,
		LockFile:      a.HostConfig.LockFile,
		Prefix:        a.HostConfig.AddressPrefix,
	}
}

// Reaper returns a sandbox reaper.
func (a *App) Reaper() *sandbox.Reaper {
	return &sandbox.Reaper{
		Paths:   a.Paths,
		Runtime: a.Runtime,
		Runner:  a.Runner,
		Tools:   a.HostConfig.Tools,
		Audit:   a.Audit,
	}
}

// Provisioner returns a sandbox provisioner.
func (a *App) Provisioner() *sandbox.Provisioner {
	return &sandbox.Provisioner{
		Paths:      a.Paths,
		Allocator:  a.Allocator(),
		Runtime:    a.Runtime,
		Reaper:     a.Reaper(),
		Audit:      a.Audit,
		NamePrefix: a.HostConfig.NamePrefix,
	}
}

// SandboxRunner returns the runner for test commands.
func (a *App) SandboxRunner() *sandbox.Runner {
	return &sandbox.Runner{
		Runtime:    a.Runtime,
		Audit:      a.Audit,
		Interrupts: a.Interrupts,
	}
}
