package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// safePath validates that a constructed path stays within the base directory.
// This prevents path traversal where a name like "../../../etc/passwd"
// could escape the intended directory.
func safePath(baseDir, name, suffix string) (string, error) {
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("name cannot be an absolute path")
	}
	if filepath.Dir(name) != "." || name == "." || name == ".." {
		return "", fmt.Errorf("name cannot contain path separators")
	}

	path := filepath.Join(baseDir, name+suffix)

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return "", fmt.Errorf("invalid base directory: %w", err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	// The separator stops /etc/containers from matching /etc/containers-evil.
	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes base directory")
	}

	return path, nil
}

// Paths holds the host directories sandbox artifacts live under.
type Paths struct {
	DescriptorDir  string
	ContainersRoot string
	ProfilesDir    string
	GCRootsDir     string
}

// Layout is the set of host paths owned by one sandbox.
type Layout struct {
	ID            string
	Descriptor    string // <descriptor_dir>/<id>.conf
	Profile       string // <profiles_dir>/<id>
	SystemProfile string // <profiles_dir>/<id>/system
	Root          string // <containers_root>/<id>
	GCRoot        string // <gcroots_dir>/<id>
	ConfigNix     string // <root>/etc/nixos/configuration.nix
}

// For returns the layout of the sandbox with the given identity.
func (p *Paths) For(id string) (*Layout, error) {
	descriptor, err := safePath(p.DescriptorDir, id, ".conf")
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox identity %q: %w", id, err)
	}
	profile, err := safePath(p.ProfilesDir, id, "")
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox identity %q: %w", id, err)
	}
	root, err := safePath(p.ContainersRoot, id, "")
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox identity %q: %w", id, err)
	}
	gcroot, err := safePath(p.GCRootsDir, id, "")
	if err != nil {
		return nil, fmt.Errorf("invalid sandbox identity %q: %w", id, err)
	}

	return &Layout{
		ID:            id,
		Descriptor:    descriptor,
		Profile:       profile,
		SystemProfile: filepath.Join(profile, "system"),
		Root:          root,
		GCRoot:        gcroot,
		ConfigNix:     filepath.Join(root, "etc", "nixos", "configuration.nix"),
	}, nil
}
