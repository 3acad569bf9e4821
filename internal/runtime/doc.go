// Package runtime drives nixos-container style sandboxes.
//
// NixosContainer implements Runtime on top of the host tools:
//
//	Build   nix-env -p <profile>/system -I nixos-config=<file> -f <nixpkgs/nixos> --set -A system --show-trace
//	Start   systemctl start container@<id>
//	Stop    systemctl stop container@<id>
//	Kill    systemctl kill container@<id>
//	Leader  machinectl show <id> -p Leader
//	Enter   nsenter -t <pid> -m -u -i -n -p -- su root -l -c "exec '<arg>' ..."
//
// Every invocation goes through a system.CommandRunner, so lifecycle calls
// observe the same interrupt handling as the test command itself.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to record lifecycle calls and script
// their results.
package runtime
