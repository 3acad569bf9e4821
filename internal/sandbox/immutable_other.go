//go:build !linux

package sandbox

// Inode flags only exist on Linux.
func clearImmutable(path string) error {
	return nil
}
