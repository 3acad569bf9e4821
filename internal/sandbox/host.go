package sandbox

import (
	"os"

	"github.com/firefly-engineering/fragile/internal/config"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
)

// InitHost makes sure the shared host directories exist. The containers
// root stays private to root.
func InitHost(paths *config.Paths) error {
	if err := os.MkdirAll(paths.DescriptorDir, 0755); err != nil {
		return fraerrors.IOFailure("failed to create "+paths.DescriptorDir, err)
	}
	if err := os.MkdirAll(paths.ContainersRoot, 0700); err != nil {
		return fraerrors.IOFailure("failed to create "+paths.ContainersRoot, err)
	}
	return nil
}
