package system

import (
	"context"
	"io/fs"
	"strings"
	"sync"
	"syscall"
)

// MockRunner implements CommandRunner for testing.
type MockRunner struct {
	mu sync.Mutex

	// Commands records every command executed, in order.
	Commands []Command

	// Responses maps a command prefix to its scripted response.
	// Key format: "path arg1 arg2...", matched against the start of the
	// command line; the longest matching key wins.
	Responses map[string]MockResponse

	// DefaultResponse is used when no key matches.
	DefaultResponse MockResponse
}

// MockResponse scripts the result of a command.
type MockResponse struct {
	Kind   OutcomeKind
	Code   int
	Signal syscall.Signal
	Output string
	Err    error
}

// NewMockRunner creates a MockRunner where every command succeeds.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Commands:  make([]Command, 0),
		Responses: make(map[string]MockResponse),
	}
}

// AddResponse scripts the response for commands starting with pattern.
func (m *MockRunner) AddResponse(pattern string, resp MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses[pattern] = resp
}

// Fail scripts a nonzero exit for commands starting with pattern.
func (m *MockRunner) Fail(pattern string, code int) {
	m.AddResponse(pattern, MockResponse{Kind: NonZeroExit, Code: code})
}

// Interrupt scripts an external interruption for commands starting with
// pattern.
func (m *MockRunner) Interrupt(pattern string, sig syscall.Signal) {
	m.AddResponse(pattern, MockResponse{Kind: Interrupted, Signal: sig})
}

func (m *MockRunner) Run(ctx context.Context, cmd Command) (Outcome, error) {
	resp := m.record(cmd)
	if resp.Err != nil {
		return Outcome{}, resp.Err
	}
	return resp.outcome(cmd.String()), nil
}

func (m *MockRunner) Output(ctx context.Context, cmd Command) (string, Outcome, error) {
	resp := m.record(cmd)
	if resp.Err != nil {
		return "", Outcome{}, resp.Err
	}
	return resp.Output, resp.outcome(cmd.String()), nil
}

func (m *MockRunner) record(cmd Command) MockResponse {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Commands = append(m.Commands, cmd)

	line := strings.Join(append([]string{cmd.Path}, cmd.Args...), " ")
	best, found := "", false
	for pattern := range m.Responses {
		if matchesPrefix(line, pattern) && (!found || len(pattern) > len(best)) {
			best, found = pattern, true
		}
	}
	if found {
		return m.Responses[best]
	}
	return m.DefaultResponse
}

func matchesPrefix(line, pattern string) bool {
	if !strings.HasPrefix(line, pattern) {
		return false
	}
	return len(line) == len(pattern) || line[len(pattern)] == ' '
}

func (r MockResponse) outcome(desc string) Outcome {
	switch r.Kind {
	case NonZeroExit:
		return Exited(desc, r.Code)
	case FatalSignal:
		return Killed(desc, r.Signal)
	case Interrupted:
		return InterruptedBy(desc, r.Signal)
	default:
		return Succeeded(desc)
	}
}

// CommandLines returns the recorded commands as space-joined lines.
func (m *MockRunner) CommandLines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := make([]string, len(m.Commands))
	for i, c := range m.Commands {
		lines[i] = strings.Join(append([]string{c.Path}, c.Args...), " ")
	}
	return lines
}

// LastCommand returns the most recently executed command.
func (m *MockRunner) LastCommand() (Command, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Commands) == 0 {
		return Command{}, false
	}
	return m.Commands[len(m.Commands)-1], true
}

// Reset clears all recorded commands.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commands = make([]Command, 0)
}

// MockFS implements FileSystem on top of the real file system and fails
// scripted operations.
type MockFS struct {
	mu       sync.Mutex
	base     FileSystem
	failures map[string]mockFailure

	// Ops records every operation as "Method path", in order.
	Ops []string
}

type mockFailure struct {
	err     error
	partial bool
}

// NewMockFS creates a MockFS where every operation reaches the disk.
func NewMockFS() *MockFS {
	return &MockFS{
		base:     DefaultFS(),
		failures: make(map[string]mockFailure),
	}
}

// Fail makes the FileSystem method op return err for path.
func (m *MockFS) Fail(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op+" "+path] = mockFailure{err: err}
}

// FailAfterCreate makes CreateExclusive create path empty and then
// return err, as a failed write would.
func (m *MockFS) FailAfterCreate(path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures["CreateExclusive "+path] = mockFailure{err: err, partial: true}
}

func (m *MockFS) check(op, path string) (mockFailure, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := op + " " + path
	m.Ops = append(m.Ops, key)
	f, ok := m.failures[key]
	return f, ok
}

func (m *MockFS) ReadFile(path string) ([]byte, error) {
	if f, ok := m.check("ReadFile", path); ok {
		return nil, f.err
	}
	return m.base.ReadFile(path)
}

func (m *MockFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	if f, ok := m.check("WriteFile", path); ok {
		return f.err
	}
	return m.base.WriteFile(path, data, perm)
}

func (m *MockFS) CreateExclusive(path string, data []byte, perm fs.FileMode) error {
	f, ok := m.check("CreateExclusive", path)
	if !ok {
		return m.base.CreateExclusive(path, data, perm)
	}
	if f.partial {
		if err := m.base.CreateExclusive(path, nil, perm); err != nil {
			return err
		}
	}
	return f.err
}

func (m *MockFS) Remove(path string) error {
	if f, ok := m.check("Remove", path); ok {
		return f.err
	}
	return m.base.Remove(path)
}

func (m *MockFS) Stat(path string) (fs.FileInfo, error) {
	if f, ok := m.check("Stat", path); ok {
		return nil, f.err
	}
	return m.base.Stat(path)
}

func (m *MockFS) Lstat(path string) (fs.FileInfo, error) {
	if f, ok := m.check("Lstat", path); ok {
		return nil, f.err
	}
	return m.base.Lstat(path)
}

func (m *MockFS) Mkdir(path string, perm fs.FileMode) error {
	if f, ok := m.check("Mkdir", path); ok {
		return f.err
	}
	return m.base.Mkdir(path, perm)
}

func (m *MockFS) MkdirAll(path string, perm fs.FileMode) error {
	if f, ok := m.check("MkdirAll", path); ok {
		return f.err
	}
	return m.base.MkdirAll(path, perm)
}
