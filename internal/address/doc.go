// Package address allocates private network blocks for sandboxes.
//
// Each sandbox gets a /24 block under a fixed two-octet prefix (10.233 by
// default). The host side of the link is <prefix>.<n>.1 and the sandbox
// side is <prefix>.<n>.2.
//
// # Allocation Strategy
//
// Availability is derived fresh on every call: under an exclusive lock on
// the well-known lock file, every file in the descriptor directory is
// scanned for HOST_ADDRESS and LOCAL_ADDRESS lines, and the lowest third
// octet in 0..254 that no line references is chosen. Unreadable files are
// skipped.
//
//	alloc := &address.Allocator{
//	    DescriptorDir: "/etc/containers",
//	    LockFile:      "/run/lock/nixos-container",
//	    Prefix:        "10.233",
//	}
//	err := alloc.Reserve(ctx, func(b address.Block) error {
//	    return writeDescriptor(b) // still under the lock
//	})
//
// The lock file is shared with nixos-container itself, so fragile and the
// stock tooling never pick the same block.
package address
