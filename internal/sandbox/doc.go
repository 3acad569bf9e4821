// Package sandbox provides the lifecycle of a single-use container.
//
// # Provisioner
//
// Provisioner.Create takes a sandbox through
//
//	unallocated -> descriptor written -> filesystem populated -> ready
//
//  1. Generates a fresh identity
//  2. Reserves an address block and creates the descriptor under the
//     allocation lock (an existing descriptor aborts without cleanup)
//  3. Creates the private profile directory and the container root
//  4. Writes etc/nixos/configuration.nix importing the caller's config
//  5. Builds the system profile
//
// Any failure after the descriptor exists stops and destroys the sandbox
// before the error is returned.
//
// # Runner
//
// Runner.Run starts the container and runs the test command inside it.
// The command's exit code is returned as a value.
//
// # Reaper
//
// Reaper.Stop falls back to killing the container when a graceful stop is
// interrupted. Reaper.Destroy runs independent cleanup steps:
//
//  1. Remove the profile tree
//  2. Remove the GC root tree
//  3. Clear the immutable flag on <root>/var/empty
//  4. Remove the container root tree
//  5. Remove the descriptor
//
// Trees are removed mount-aware: nested mounts are unmounted first and rm
// is restricted to one filesystem.
package sandbox
