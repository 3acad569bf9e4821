// Package system runs the external tools fragile collaborates with.
package system

import (
	"context"
	"io/fs"
	"os"

	"github.com/kballard/go-shellquote"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
)

// FileSystem abstracts the file operations used to lay out and tear down
// sandboxes, so each step can be made to fail in tests.
type FileSystem interface {
	// ReadFile reads the named file and returns the contents.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// CreateExclusive writes data to a new file. It fails with an
	// fs.ErrExist error if path already exists. A write error after the
	// file was created leaves the file behind.
	CreateExclusive(path string, data []byte, perm fs.FileMode) error

	// Remove removes the named file or empty directory.
	Remove(path string) error

	// Stat returns file info for the named file.
	Stat(path string) (fs.FileInfo, error)

	// Lstat returns file info without following a final symlink.
	Lstat(path string) (fs.FileInfo, error)

	// Mkdir creates a single directory.
	Mkdir(path string, perm fs.FileMode) error

	// MkdirAll creates a directory named path, along with any necessary parents.
	MkdirAll(path string, perm fs.FileMode) error
}

var defaultFS FileSystem = &osFileSystem{}

// DefaultFS returns the FileSystem backed by the real OS.
func DefaultFS() FileSystem {
	return defaultFS
}

// osFileSystem implements FileSystem using real OS operations.
type osFileSystem struct{}

func (f *osFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (f *osFileSystem) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (f *osFileSystem) CreateExclusive(path string, data []byte, perm fs.FileMode) error {
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

func (f *osFileSystem) Remove(path string) error {
	return os.Remove(path)
}

func (f *osFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

func (f *osFileSystem) Lstat(path string) (fs.FileInfo, error) {
	return os.Lstat(path)
}

func (f *osFileSystem) Mkdir(path string, perm fs.FileMode) error {
	return os.Mkdir(path, perm)
}

func (f *osFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Command describes one external program invocation.
type Command struct {
	Path string
	Args []string
	Env  []string // nil inherits the current environment
	Dir  string

	// Stdout and Stderr default to the process's own streams. Capture mode
	// ignores both: stdout is collected and stderr is discarded.
	Stdout *os.File
	Stderr *os.File

	// DetachOnInterrupt stops the runner from forwarding a termination
	// signal to the child when an interrupt is observed.
	DetachOnInterrupt bool
}

// NewCommand builds a Command for path and args.
func NewCommand(path string, args ...string) Command {
	return Command{Path: path, Args: args}
}

// String renders the command as a shell-quoted line for diagnostics.
func (c Command) String() string {
	return shellquote.Join(append([]string{c.Path}, c.Args...)...)
}

// CommandRunner abstracts external command execution for testability.
type CommandRunner interface {
	// Run executes the command to completion, supervising it against the
	// runner's interrupt signals. A spawn failure is returned as an error;
	// everything after spawn is reported through the Outcome.
	Run(ctx context.Context, cmd Command) (Outcome, error)

	// Output executes the command with stdout captured as text and stderr
	// discarded. It is not signal-aware.
	Output(ctx context.Context, cmd Command) (string, Outcome, error)
}

// Check runs cmd and turns any unsuccessful outcome into an error.
func Check(ctx context.Context, r CommandRunner, cmd Command) error {
	out, err := r.Run(ctx, cmd)
	if err != nil {
		return err
	}
	return out.Err()
}

// CheckOutput runs cmd in capture mode and returns its stdout when it
// succeeds.
func CheckOutput(ctx context.Context, r CommandRunner, cmd Command) (string, error) {
	text, out, err := r.Output(ctx, cmd)
	if err != nil {
		return "", err
	}
	if err := out.Err(); err != nil {
		return "", err
	}
	return text, nil
}

func spawnError(cmd Command, err error) error {
	return fraerrors.IOFailure("failed to spawn "+cmd.String(), err)
}
