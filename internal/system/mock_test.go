package system

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"syscall"
	"testing"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
)

func TestMockRunner_DefaultSuccess(t *testing.T) {
	m := NewMockRunner()

	out, err := m.Run(context.Background(), NewCommand("systemctl", "start", "container@fr1"))
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if !out.OK() {
		t.Errorf("outcome = %v, want success", out)
	}

	cmd, ok := m.LastCommand()
	if !ok {
		t.Fatal("No command recorded")
	}
	if cmd.Path != "systemctl" {
		t.Errorf("Path = %q, want %q", cmd.Path, "systemctl")
	}
}

func TestMockRunner_LongestPrefixWins(t *testing.T) {
	m := NewMockRunner()
	m.Fail("systemctl", 1)
	m.Interrupt("systemctl stop", syscall.SIGINT)

	out, _ := m.Run(context.Background(), NewCommand("systemctl", "stop", "container@fr1"))
	if out.Kind != Interrupted {
		t.Errorf("stop Kind = %v, want %v", out.Kind, Interrupted)
	}

	out, _ = m.Run(context.Background(), NewCommand("systemctl", "kill", "container@fr1"))
	if out.Kind != NonZeroExit || out.Code != 1 {
		t.Errorf("kill outcome = %v, want exit 1", out)
	}
}

func TestMockRunner_PrefixRespectsWordBoundary(t *testing.T) {
	m := NewMockRunner()
	m.Fail("systemctl st", 1)

	out, _ := m.Run(context.Background(), NewCommand("systemctl", "start", "x"))
	if !out.OK() {
		t.Errorf("outcome = %v, want success", out)
	}
}

func TestMockRunner_Output(t *testing.T) {
	m := NewMockRunner()
	m.AddResponse("machinectl show", MockResponse{Output: "Leader=1234\n"})

	text, err := CheckOutput(context.Background(), m, NewCommand("machinectl", "show", "fr1", "-p", "Leader"))
	if err != nil {
		t.Fatalf("CheckOutput error: %v", err)
	}
	if text != "Leader=1234\n" {
		t.Errorf("text = %q", text)
	}
}

func TestMockRunner_Err(t *testing.T) {
	m := NewMockRunner()
	spawn := errors.New("no such file")
	m.AddResponse("nix-env", MockResponse{Err: spawn})

	err := Check(context.Background(), m, NewCommand("nix-env", "-p", "/x"))
	if !errors.Is(err, spawn) {
		t.Errorf("Check error = %v, want %v", err, spawn)
	}
}

func TestMockRunner_Reset(t *testing.T) {
	m := NewMockRunner()
	_, _ = m.Run(context.Background(), NewCommand("cmd1"))
	_, _ = m.Run(context.Background(), NewCommand("cmd2", "a"))

	lines := m.CommandLines()
	if len(lines) != 2 || lines[1] != "cmd2 a" {
		t.Errorf("CommandLines() = %q", lines)
	}

	m.Reset()

	if len(m.Commands) != 0 {
		t.Errorf("Commands length after reset = %d, want 0", len(m.Commands))
	}
}

func TestOutcome_ErrAndExitCode(t *testing.T) {
	tests := []struct {
		name     string
		out      Outcome
		wantKind fraerrors.Kind
		wantExit int
	}{
		{"success", Succeeded("true"), 0, 0},
		{"nonzero", Exited("false", 1), fraerrors.KindCommandFailed, 1},
		{"fatal signal", Killed("sleep 9", syscall.SIGKILL), fraerrors.KindCommandFailed, 128 + int(syscall.SIGKILL)},
		{"interrupted", InterruptedBy("sleep 9", syscall.SIGINT), fraerrors.KindInterrupted, 128 + int(syscall.SIGINT)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.out.Err()
			if tt.wantKind == 0 {
				if err != nil {
					t.Errorf("Err() = %v, want nil", err)
				}
			} else if got := fraerrors.KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(Err()) = %v, want %v", got, tt.wantKind)
			}
			if got := tt.out.ExitCode(); got != tt.wantExit {
				t.Errorf("ExitCode() = %d, want %d", got, tt.wantExit)
			}
		})
	}
}

func TestOutcome_FatalSignalMessage(t *testing.T) {
	err := Killed("nix-env -p /p", syscall.SIGKILL).Err()
	want := "command nix-env -p /p failed with code -9"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestExited_ZeroIsSuccess(t *testing.T) {
	if out := Exited("true", 0); out.Kind != Success {
		t.Errorf("Exited(0).Kind = %v, want %v", out.Kind, Success)
	}
}

func TestMockFS_Fail(t *testing.T) {
	dir := t.TempDir()
	m := NewMockFS()
	boom := errors.New("boom")
	blocked := filepath.Join(dir, "blocked")
	m.Fail("MkdirAll", blocked, boom)

	if err := m.MkdirAll(blocked, 0755); !errors.Is(err, boom) {
		t.Errorf("MkdirAll(blocked) = %v, want %v", err, boom)
	}
	if _, err := os.Stat(blocked); !os.IsNotExist(err) {
		t.Errorf("blocked dir should not exist (err = %v)", err)
	}

	other := filepath.Join(dir, "other")
	if err := m.MkdirAll(other, 0755); err != nil {
		t.Fatalf("MkdirAll(other) failed: %v", err)
	}
	if info, err := os.Stat(other); err != nil || !info.IsDir() {
		t.Errorf("other should be a directory (err = %v)", err)
	}

	want := []string{"MkdirAll " + blocked, "MkdirAll " + other}
	if !reflect.DeepEqual(m.Ops, want) {
		t.Errorf("Ops = %q, want %q", m.Ops, want)
	}
}

func TestMockFS_CreateExclusive(t *testing.T) {
	dir := t.TempDir()
	m := NewMockFS()

	path := filepath.Join(dir, "a.conf")
	if err := m.CreateExclusive(path, []byte("x"), 0644); err != nil {
		t.Fatalf("CreateExclusive failed: %v", err)
	}
	if err := m.CreateExclusive(path, []byte("y"), 0644); !errors.Is(err, fs.ErrExist) {
		t.Errorf("second CreateExclusive = %v, want ErrExist", err)
	}
	if data, _ := m.ReadFile(path); string(data) != "x" {
		t.Errorf("content = %q, want %q", data, "x")
	}

	partial := filepath.Join(dir, "b.conf")
	boom := errors.New("disk full")
	m.FailAfterCreate(partial, boom)
	if err := m.CreateExclusive(partial, []byte("z"), 0644); !errors.Is(err, boom) {
		t.Errorf("CreateExclusive(partial) = %v, want %v", err, boom)
	}
	info, err := os.Stat(partial)
	if err != nil {
		t.Fatalf("partial file should exist: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("partial file size = %d, want 0", info.Size())
	}
}
