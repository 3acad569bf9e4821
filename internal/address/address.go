package address

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	fraerrors "github.com/firefly-engineering/fragile/internal/errors"
	"github.com/firefly-engineering/fragile/internal/logging"
)

// Third-octet range scanned for a free block.
const (
	OctetMin = 0
	OctetMax = 254
)

// Block is a /24 private network block: <prefix>.<octet>.0/24.
type Block struct {
	Prefix string
	Octet  int
}

func (b Block) String() string {
	return fmt.Sprintf("%s.%d", b.Prefix, b.Octet)
}

// HostAddress is the host side of the point-to-point link.
func (b Block) HostAddress() string {
	return b.String() + ".1"
}

// LocalAddress is the sandbox side of the point-to-point link.
func (b Block) LocalAddress() string {
	return b.String() + ".2"
}

// Allocator hands out unused blocks by scanning the descriptor directory.
// It keeps no state between calls.
type Allocator struct {
	DescriptorDir string
	LockFile      string
	Prefix        string
}

// Allocate returns the lowest free block. The lock is released before
// returning, so a concurrent caller may pick the same block until the
// descriptor is written; use Reserve to avoid that.
func (a *Allocator) Allocate(ctx context.Context) (Block, error) {
	var picked Block
	err := a.Reserve(ctx, func(b Block) error {
		picked = b
		return nil
	})
	return picked, err
}

// Reserve picks the lowest free block and calls fn with it while the
// allocation lock is still held. fn is expected to persist the block (by
// writing a descriptor) before returning.
func (a *Allocator) Reserve(ctx context.Context, fn func(Block) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lock := flock.New(a.LockFile)
	if err := lockExclusive(ctx, lock); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fraerrors.IOFailure("failed to lock "+a.LockFile, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logging.Warn("failed to release allocation lock", "path", a.LockFile, "error", err)
		}
	}()

	used, err := a.scan()
	if err != nil {
		return err
	}

	for octet := OctetMin; octet <= OctetMax; octet++ {
		if used[octet] {
			continue
		}
		b := Block{Prefix: a.Prefix, Octet: octet}
		logging.Debug("address block chosen", "block", b.String(), "in_use", len(used))
		return fn(b)
	}

	return fraerrors.ResourceExhausted("out of IP addresses")
}

// lockExclusive takes lock with a blocking flock(LOCK_EX). If ctx ends
// first the pending acquisition is released as soon as it completes.
func lockExclusive(ctx context.Context, lock *flock.Flock) error {
	acquired := make(chan error, 1)
	go func() { acquired <- lock.Lock() }()

	select {
	case err := <-acquired:
		return err
	case <-ctx.Done():
		go func() {
			if err := <-acquired; err == nil {
				_ = lock.Unlock()
			}
		}()
		return ctx.Err()
	}
}

// scan collects the third octets referenced by descriptor address lines.
func (a *Allocator) scan() (map[int]bool, error) {
	entries, err := os.ReadDir(a.DescriptorDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]bool{}, nil
		}
		return nil, fraerrors.IOFailure("failed to read "+a.DescriptorDir, err)
	}

	used := make(map[int]bool)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(a.DescriptorDir, entry.Name())
		if err := collect(path, a.Prefix, used); err != nil {
			logging.Debug("skipping unreadable descriptor", "path", path, "error", err)
		}
	}
	return used, nil
}

func collect(path, prefix string, used map[int]bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if octet, ok := ParseAddressLine(scanner.Text(), prefix); ok {
			used[octet] = true
		}
	}
	return scanner.Err()
}

// ParseAddressLine extracts the third octet from a descriptor line of the
// form HOST_ADDRESS=<prefix>.<n>.<m> or LOCAL_ADDRESS=<prefix>.<n>.<m>.
// The whole line must match; anything else reports false.
func ParseAddressLine(line, prefix string) (int, bool) {
	line = strings.TrimRight(line, "\r")

	key, value, ok := strings.Cut(line, "=")
	if !ok || (key != "HOST_ADDRESS" && key != "LOCAL_ADDRESS") {
		return 0, false
	}

	rest, ok := strings.CutPrefix(value, prefix+".")
	if !ok {
		return 0, false
	}

	third, fourth, ok := strings.Cut(rest, ".")
	if !ok {
		return 0, false
	}

	octet, ok := parseOctet(third)
	if !ok {
		return 0, false
	}
	if _, ok := parseOctet(fourth); !ok {
		return 0, false
	}
	return octet, true
}

func parseOctet(s string) (int, bool) {
	if s == "" || len(s) > 3 {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > 255 {
		return 0, false
	}
	return n, true
}
