package runtime

import (
	"context"

	"github.com/firefly-engineering/fragile/internal/system"
)

// Runtime is the interface container backends must implement.
type Runtime interface {
	// Name returns the runtime identifier.
	Name() string

	// Build materializes the system profile at profile from the NixOS
	// configuration file configFile.
	Build(ctx context.Context, profile, configFile string) error

	// Start launches a built container.
	Start(ctx context.Context, id string) error

	// Stop requests a graceful stop. An interruption is reported as an
	// error of kind KindInterrupted.
	Stop(ctx context.Context, id string) error

	// Kill forcefully terminates every process of the container.
	Kill(ctx context.Context, id string) error

	// Leader returns the host PID of the container's init process.
	Leader(ctx context.Context, id string) (int, error)

	// Enter runs argv as root inside the namespaces of leader. The
	// command's own exit status is reported through the Outcome.
	Enter(ctx context.Context, leader int, argv []string) (system.Outcome, error)
}
