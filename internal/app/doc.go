// Package app provides the application context for fragile.
//
// This package wires the driver's dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    HostConfig *config.HostConfig   // Host configuration
//	    Paths      *config.Paths        // Host directories
//	    Interrupts *signals.Trap        // SIGINT/SIGTERM trap
//	    Runner     system.CommandRunner // Collaborator command runner
//	    Runtime    runtime.Runtime      // Container runtime
//	    Audit      *audit.Logger        // Lifecycle event log
//	}
//
// # Creating an App
//
//	// Production usage
//	a, err := app.New(cfg, app.WithInterrupts(trap))
//
//	// Testing with custom dependencies
//	a, err := app.New(cfg,
//	    app.WithRunner(mockRunner),
//	    app.WithRuntime(mockRuntime),
//	)
//
// Provisioner, SandboxRunner and Reaper hand out sandbox components that
// share these dependencies.
package app
