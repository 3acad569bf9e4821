package sandbox

import (
	"fmt"

	"github.com/firefly-engineering/fragile/internal/address"
	"github.com/firefly-engineering/fragile/internal/config"
)

// State is a provisioning state.
type State int

const (
	StateUnallocated State = iota
	StateDescriptorWritten
	StateFilesystemPopulated
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnallocated:
		return "unallocated"
	case StateDescriptorWritten:
		return "descriptor-written"
	case StateFilesystemPopulated:
		return "filesystem-populated"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Sandbox is a provisioned container.
type Sandbox struct {
	ID     string
	Block  address.Block
	Layout *config.Layout
	State  State
}
