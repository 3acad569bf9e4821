package runtime

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/fragile/internal/config"
	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/system"
)

func newTestRuntime() (*NixosContainer, *system.MockRunner) {
	runner := system.NewMockRunner()
	return NewNixosContainer(runner, config.Default()), runner
}

func TestNixosContainer_Name(t *testing.T) {
	rt, _ := newTestRuntime()
	if rt.Name() != "nixos-container" {
		t.Errorf("Name() = %q, want %q", rt.Name(), "nixos-container")
	}
}

func TestNixosContainer_Commands(t *testing.T) {
	tests := []struct {
		name string
		call func(rt *NixosContainer) error
		want string
	}{
		{
			name: "build",
			call: func(rt *NixosContainer) error {
				return rt.Build(context.Background(), "/nix/var/nix/profiles/per-container/fr1/system", "/var/lib/containers/fr1/etc/nixos/configuration.nix")
			},
			want: "nix-env -p /nix/var/nix/profiles/per-container/fr1/system -I nixos-config=/var/lib/containers/fr1/etc/nixos/configuration.nix -f <nixpkgs/nixos> --set -A system --show-trace",
		},
		{
			name: "start",
			call: func(rt *NixosContainer) error { return rt.Start(context.Background(), "fr1") },
			want: "systemctl start container@fr1",
		},
		{
			name: "stop",
			call: func(rt *NixosContainer) error { return rt.Stop(context.Background(), "fr1") },
			want: "systemctl stop container@fr1",
		},
		{
			name: "kill",
			call: func(rt *NixosContainer) error { return rt.Kill(context.Background(), "fr1") },
			want: "systemctl kill container@fr1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, runner := newTestRuntime()
			if err := tt.call(rt); err != nil {
				t.Fatalf("call failed: %v", err)
			}
			lines := runner.CommandLines()
			if len(lines) != 1 || lines[0] != tt.want {
				t.Errorf("commands = %q, want [%q]", lines, tt.want)
			}
		})
	}
}

func TestNixosContainer_StartFailure(t *testing.T) {
	rt, runner := newTestRuntime()
	runner.Fail("systemctl start", 1)

	err := rt.Start(context.Background(), "fr1")
	if fraerrors.KindOf(err) != fraerrors.KindCommandFailed {
		t.Fatalf("KindOf = %v, want %v", fraerrors.KindOf(err), fraerrors.KindCommandFailed)
	}
	if !strings.Contains(err.Error(), "container@fr1") || !strings.Contains(err.Error(), "code 1") {
		t.Errorf("error %q should name the command and code", err)
	}
}

func TestNixosContainer_StopInterrupted(t *testing.T) {
	rt, runner := newTestRuntime()
	runner.Interrupt("systemctl stop", 2)

	err := rt.Stop(context.Background(), "fr1")
	if fraerrors.KindOf(err) != fraerrors.KindInterrupted {
		t.Errorf("KindOf = %v, want %v", fraerrors.KindOf(err), fraerrors.KindInterrupted)
	}
}

func TestNixosContainer_Leader(t *testing.T) {
	rt, runner := newTestRuntime()
	runner.AddResponse("machinectl show", system.MockResponse{Output: "Leader=1234\n"})

	pid, err := rt.Leader(context.Background(), "fr1")
	if err != nil {
		t.Fatalf("Leader failed: %v", err)
	}
	if pid != 1234 {
		t.Errorf("pid = %d, want 1234", pid)
	}
	if lines := runner.CommandLines(); lines[0] != "machinectl show fr1 -p Leader" {
		t.Errorf("command = %q", lines[0])
	}
}

func TestNixosContainer_LeaderBadOutput(t *testing.T) {
	rt, runner := newTestRuntime()
	runner.AddResponse("machinectl show", system.MockResponse{Output: "Leader=\n"})

	_, err := rt.Leader(context.Background(), "fr1")
	if fraerrors.KindOf(err) != fraerrors.KindControl {
		t.Errorf("KindOf = %v, want %v", fraerrors.KindOf(err), fraerrors.KindControl)
	}
}

func TestNixosContainer_Enter(t *testing.T) {
	rt, runner := newTestRuntime()
	runner.AddResponse("nsenter", system.MockResponse{Kind: system.NonZeroExit, Code: 7})

	out, err := rt.Enter(context.Background(), 1234, []string{"sh", "-c", "echo it's ok"})
	if err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	if out.Kind != system.NonZeroExit || out.Code != 7 {
		t.Errorf("outcome = %v, want exit 7", out)
	}

	cmd, _ := runner.LastCommand()
	wantPrefix := []string{"-t", "1234", "-m", "-u", "-i", "-n", "-p", "--", "su", "root", "-l", "-c"}
	if cmd.Path != "nsenter" || !reflect.DeepEqual(cmd.Args[:len(wantPrefix)], wantPrefix) {
		t.Fatalf("command = %v", cmd)
	}
	if !cmd.DetachOnInterrupt {
		t.Error("nsenter should not receive forwarded interrupts")
	}
	shellLine := cmd.Args[len(wantPrefix)]
	if shellLine != `exec 'sh' '-c' 'echo it'\''s ok'` {
		t.Errorf("shell line = %q", shellLine)
	}
}

func TestNixosContainer_EnterRequiresCommand(t *testing.T) {
	rt, _ := newTestRuntime()
	_, err := rt.Enter(context.Background(), 1, nil)
	if fraerrors.KindOf(err) != fraerrors.KindUsage {
		t.Errorf("KindOf = %v, want %v", fraerrors.KindOf(err), fraerrors.KindUsage)
	}
}

func TestParseLeader(t *testing.T) {
	tests := []struct {
		out     string
		want    int
		wantErr bool
	}{
		{"Leader=1234\n", 1234, false},
		{"Leader=1\n  \n", 1, false},
		{"Leader=99", 99, false},
		{"", 0, true},
		{"Leader=\n", 0, true},
		{"Leader=0\n", 0, true},
		{"Leader=12a\n", 0, true},
		{"leader=12\n", 0, true},
		{" Leader=12\n", 0, true},
		{"Leader=12\nLeader=13\n", 0, true},
		{"Leader=-5\n", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.out, func(t *testing.T) {
			got, err := ParseLeader(tt.out)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLeader(%q) error = %v, wantErr %v", tt.out, err, tt.wantErr)
			}
			if err != nil && fraerrors.KindOf(err) != fraerrors.KindControl {
				t.Errorf("KindOf = %v, want %v", fraerrors.KindOf(err), fraerrors.KindControl)
			}
			if got != tt.want {
				t.Errorf("ParseLeader(%q) = %d, want %d", tt.out, got, tt.want)
			}
		})
	}
}

func TestShellCommand_RoundTrip(t *testing.T) {
	cases := [][]string{
		{"true"},
		{"echo", "hello world"},
		{"sh", "-c", "exit 3"},
		{"printf", "%s\n", "it's", `"double"`, "$HOME", "`cmd`", ""},
		{"a'b'c", "'", "''"},
	}

	for _, argv := range cases {
		line := ShellCommand(argv)
		if !strings.HasPrefix(line, "exec ") {
			t.Fatalf("ShellCommand(%q) = %q, missing exec prefix", argv, line)
		}
		words, err := shellquote.Split(strings.TrimPrefix(line, "exec "))
		if err != nil {
			t.Fatalf("Split(%q): %v", line, err)
		}
		if !reflect.DeepEqual(words, argv) {
			t.Errorf("round trip of %q = %q", argv, words)
		}
	}
}
