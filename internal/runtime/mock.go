package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/firefly-engineering/fragile/internal/system"
)

// MockRuntime is a mock implementation of Runtime for testing
type MockRuntime struct {
	mu sync.RWMutex

	// LeaderPID is returned by Leader.
	LeaderPID int

	// EnterOutcome is returned by Enter.
	EnterOutcome system.Outcome

	// Errors allows injecting errors for specific operations
	Errors map[string]error

	// CallLog records all method calls for verification
	CallLog []MockCall

	// OnCall, if set, runs after a call is recorded and before it returns.
	OnCall func(method string)
}

// MockCall represents a recorded method call
type MockCall struct {
	Method string
	Args   []interface{}
}

// NewMockRuntime creates a new mock runtime
func NewMockRuntime() *MockRuntime {
	return &MockRuntime{
		LeaderPID:    4242,
		EnterOutcome: system.Succeeded("nsenter"),
		Errors:       make(map[string]error),
		CallLog:      make([]MockCall, 0),
	}
}

func (m *MockRuntime) record(method string, args ...interface{}) error {
	m.mu.Lock()
	m.CallLog = append(m.CallLog, MockCall{Method: method, Args: args})
	err := m.Errors[method]
	hook := m.OnCall
	m.mu.Unlock()

	if hook != nil {
		hook(method)
	}
	return err
}

// SetError sets an error to be returned for a specific operation
func (m *MockRuntime) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Errors[operation] = err
}

// GetCalls returns all recorded calls
func (m *MockRuntime) GetCalls() []MockCall {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]MockCall(nil), m.CallLog...)
}

// Methods returns the recorded method names in call order.
func (m *MockRuntime) Methods() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.CallLog))
	for i, c := range m.CallLog {
		names[i] = c.Method
	}
	return names
}

// Reset clears the call log
func (m *MockRuntime) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CallLog = make([]MockCall, 0)
}

func (m *MockRuntime) Name() string {
	return "mock"
}

func (m *MockRuntime) Build(ctx context.Context, profile, configFile string) error {
	return m.record("Build", profile, configFile)
}

func (m *MockRuntime) Start(ctx context.Context, id string) error {
	return m.record("Start", id)
}

func (m *MockRuntime) Stop(ctx context.Context, id string) error {
	return m.record("Stop", id)
}

func (m *MockRuntime) Kill(ctx context.Context, id string) error {
	return m.record("Kill", id)
}

func (m *MockRuntime) Leader(ctx context.Context, id string) (int, error) {
	if err := m.record("Leader", id); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.LeaderPID <= 0 {
		return 0, fmt.Errorf("container %s has no leader", id)
	}
	return m.LeaderPID, nil
}

func (m *MockRuntime) Enter(ctx context.Context, leader int, argv []string) (system.Outcome, error) {
	if err := m.record("Enter", leader, argv); err != nil {
		return system.Outcome{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.EnterOutcome, nil
}

// Verify interface compliance
var _ Runtime = (*MockRuntime)(nil)
var _ Runtime = (*NixosContainer)(nil)
