// Package testutil provides test utilities for integration tests
package testutil

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/fragile/internal/config"
	"github.com/firefly-engineering/fragile/internal/system"
)

// TestEnv is a host layout under a temp directory with fake collaborator
// tools. The fakes log every invocation and exit with a scripted code;
// nsenter and su really execute the test command, so exit codes flow
// end to end.
type TestEnv struct {
	T          *testing.T
	TmpDir     string
	BinDir     string
	StateDir   string
	HostConfig *config.HostConfig

	// HostConfigPath is HostConfig written as TOML.
	HostConfigPath string

	// ContainerConfig is an (empty) NixOS module to pass as <config-file>.
	ContainerConfig string

	callLog string
}

// Fake tool names.
const (
	ToolNixEnv     = "nix-env"
	ToolSystemctl  = "systemctl"
	ToolMachinectl = "machinectl"
	ToolNsenter    = "nsenter"
	ToolSu         = "su"
)

// NewTestEnv creates a new test environment with fake tools
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	tmpDir := t.TempDir()
	env := &TestEnv{
		T:        t,
		TmpDir:   tmpDir,
		BinDir:   filepath.Join(tmpDir, "bin"),
		StateDir: filepath.Join(tmpDir, "tool-state"),
		callLog:  filepath.Join(tmpDir, "calls.log"),
	}

	for _, dir := range []string{env.BinDir, env.StateDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}

	env.writeTool(ToolNixEnv, "")
	env.writeTool(ToolSystemctl, "")
	env.writeTool(ToolMachinectl, `echo "Leader=$$"`)
	// Skip nsenter's own options and run the wrapped command.
	env.writeTool(ToolNsenter, `while [ "$#" -gt 0 ] && [ "$1" != "--" ]; do shift; done
shift
exec "$@"`)
	// su root -l -c LINE
	env.writeTool(ToolSu, `shift 3
exec /bin/sh -c "$1"`)

	cfg := config.Default()
	cfg.DescriptorDir = filepath.Join(tmpDir, "etc", "containers")
	cfg.LockFile = filepath.Join(tmpDir, "run", "lock", "nixos-container")
	cfg.ContainersRoot = filepath.Join(tmpDir, "var", "lib", "containers")
	cfg.ProfilesDir = filepath.Join(tmpDir, "nix", "profiles", "per-container")
	cfg.GCRootsDir = filepath.Join(tmpDir, "nix", "gcroots", "per-container")
	cfg.EventsDir = filepath.Join(tmpDir, "events")
	cfg.SuPath = env.Tool(ToolSu)
	cfg.Tools.NixEnv = env.Tool(ToolNixEnv)
	cfg.Tools.Systemctl = env.Tool(ToolSystemctl)
	cfg.Tools.Machinectl = env.Tool(ToolMachinectl)
	cfg.Tools.Nsenter = env.Tool(ToolNsenter)
	env.HostConfig = cfg

	if err := os.MkdirAll(filepath.Dir(cfg.LockFile), 0755); err != nil {
		t.Fatalf("Failed to create lock directory: %v", err)
	}

	env.HostConfigPath = filepath.Join(tmpDir, "config.toml")
	env.WriteHostConfig()

	env.ContainerConfig = filepath.Join(tmpDir, "test.nix")
	if err := os.WriteFile(env.ContainerConfig, []byte("{ ... }: { }\n"), 0644); err != nil {
		t.Fatalf("Failed to write container config: %v", err)
	}

	return env
}

// Tool returns the path of a fake tool.
func (e *TestEnv) Tool(name string) string {
	return filepath.Join(e.BinDir, name)
}

func (e *TestEnv) writeTool(name, body string) {
	e.T.Helper()

	q := func(s string) string { return shellquote.Join(s) }
	script := fmt.Sprintf(`#!/bin/sh
printf '%%s\n' %s" $*" >> %s
for f in %s-"$1".exit %s.exit; do
  if [ -f "$f" ]; then exit "$(cat "$f")"; fi
done
%s
`, q(name), q(e.callLog),
		q(filepath.Join(e.StateDir, name)), q(filepath.Join(e.StateDir, name)),
		body)

	if err := os.WriteFile(e.Tool(name), []byte(script), 0755); err != nil {
		e.T.Fatalf("Failed to write fake %s: %v", name, err)
	}
}

// ScriptTool replaces what a fake tool does after logging the call and
// honouring scripted exit codes. body is a shell fragment.
func (e *TestEnv) ScriptTool(name, body string) {
	e.T.Helper()
	e.writeTool(name, body)
}

// WriteHostConfig writes HostConfig to HostConfigPath.
func (e *TestEnv) WriteHostConfig() {
	e.T.Helper()

	f, err := os.Create(e.HostConfigPath)
	if err != nil {
		e.T.Fatalf("Failed to create host config: %v", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(e.HostConfig); err != nil {
		e.T.Fatalf("Failed to encode host config: %v", err)
	}
}

// FailTool makes the fake tool exit with code. A non-empty subcommand
// restricts the failure to invocations whose first argument matches.
func (e *TestEnv) FailTool(name, subcommand string, code int) {
	e.T.Helper()

	file := name + ".exit"
	if subcommand != "" {
		file = name + "-" + subcommand + ".exit"
	}
	if err := os.WriteFile(filepath.Join(e.StateDir, file), []byte(strconv.Itoa(code)), 0644); err != nil {
		e.T.Fatalf("Failed to script %s: %v", name, err)
	}
}

// Calls returns the logged fake tool invocations, one "tool args..." line
// each.
func (e *TestEnv) Calls() []string {
	e.T.Helper()

	f, err := os.Open(e.callLog)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		e.T.Fatalf("Failed to read call log: %v", err)
	}
	defer f.Close()

	var calls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		calls = append(calls, scanner.Text())
	}
	return calls
}

// CallsTo returns the logged invocations of one tool, without the tool name.
func (e *TestEnv) CallsTo(name string) []string {
	var calls []string
	for _, c := range e.Calls() {
		if rest, ok := strings.CutPrefix(c, name+" "); ok {
			calls = append(calls, rest)
		}
	}
	return calls
}

// Descriptors returns the identities that have a descriptor file.
func (e *TestEnv) Descriptors() []string {
	return e.listDir(e.HostConfig.DescriptorDir, ".conf")
}

// Roots returns the identities that have a container root.
func (e *TestEnv) Roots() []string {
	return e.listDir(e.HostConfig.ContainersRoot, "")
}

func (e *TestEnv) listDir(dir, suffix string) []string {
	e.T.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		e.T.Fatalf("Failed to list %s: %v", dir, err)
	}
	var names []string
	for _, entry := range entries {
		if name, ok := strings.CutSuffix(entry.Name(), suffix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FillAddresses writes descriptors claiming third octets from..to.
func (e *TestEnv) FillAddresses(from, to int) {
	e.T.Helper()

	if err := os.MkdirAll(e.HostConfig.DescriptorDir, 0755); err != nil {
		e.T.Fatalf("Failed to create descriptor dir: %v", err)
	}
	prefix := e.HostConfig.AddressPrefix
	for n := from; n <= to; n++ {
		d := config.Descriptor{
			PrivateNetwork: true,
			HostAddress:    fmt.Sprintf("%s.%d.1", prefix, n),
			LocalAddress:   fmt.Sprintf("%s.%d.2", prefix, n),
		}
		path := filepath.Join(e.HostConfig.DescriptorDir, fmt.Sprintf("taken%d.conf", n))
		if err := config.CreateDescriptor(system.DefaultFS(), path, d); err != nil {
			e.T.Fatalf("Failed to write descriptor: %v", err)
		}
	}
}
