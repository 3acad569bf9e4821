package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/moby/sys/signal"
)

const (
	DefaultConfigFile      = "/etc/fragile/config.toml"
	DefaultDescriptorDir   = "/etc/containers"
	DefaultLockFile        = "/run/lock/nixos-container"
	DefaultContainersRoot  = "/var/lib/containers"
	DefaultProfilesDir     = "/nix/var/nix/profiles/per-container"
	DefaultGCRootsDir      = "/nix/var/nix/gcroots/per-container"
	DefaultEventsDir       = "/var/lib/fragile/events"
	DefaultAddressPrefix   = "10.233"
	DefaultNamePrefix      = "fr"
	DefaultNixosExpression = "<nixpkgs/nixos>"
	DefaultSuPath          = "su"
	DefaultForwardSignal   = "TERM"
)

// Tools names the collaborator programs. Bare names are resolved via PATH.
type Tools struct {
	NixEnv     string `toml:"nix_env"`
	Systemctl  string `toml:"systemctl"`
	Machinectl string `toml:"machinectl"`
	Nsenter    string `toml:"nsenter"`
	Umount     string `toml:"umount"`
	Rm         string `toml:"rm"`
}

// HostConfig is the host-wide configuration read from config.toml.
type HostConfig struct {
	DescriptorDir   string `toml:"descriptor_dir"`
	LockFile        string `toml:"lock_file"`
	ContainersRoot  string `toml:"containers_root"`
	ProfilesDir     string `toml:"profiles_dir"`
	GCRootsDir      string `toml:"gcroots_dir"`
	EventsDir       string `toml:"events_dir"` // empty disables the audit log
	AddressPrefix   string `toml:"address_prefix"`
	NamePrefix      string `toml:"name_prefix"`
	NixosExpression string `toml:"nixos_expression"`
	SuPath          string `toml:"su_path"`
	ForwardSignal   string `toml:"forward_signal"`
	Tools           Tools  `toml:"tools"`
}

// Default returns the configuration used when no file is present.
func Default() *HostConfig {
	return &HostConfig{
		DescriptorDir:   DefaultDescriptorDir,
		LockFile:        DefaultLockFile,
		ContainersRoot:  DefaultContainersRoot,
		ProfilesDir:     DefaultProfilesDir,
		GCRootsDir:      DefaultGCRootsDir,
		EventsDir:       DefaultEventsDir,
		AddressPrefix:   DefaultAddressPrefix,
		NamePrefix:      DefaultNamePrefix,
		NixosExpression: DefaultNixosExpression,
		SuPath:          DefaultSuPath,
		ForwardSignal:   DefaultForwardSignal,
		Tools: Tools{
			NixEnv:     "nix-env",
			Systemctl:  "systemctl",
			Machinectl: "machinectl",
			Nsenter:    "nsenter",
			Umount:     "umount",
			Rm:         "rm",
		},
	}
}

// Load reads the host configuration at path on top of the defaults.
// A missing file yields the defaults.
func Load(path string) (*HostConfig, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to parse host config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown keys in host config %s: %s", path, strings.Join(keys, ", "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid host config %s: %w", path, err)
	}
	return cfg, nil
}

// Container names are limited to 11 characters (the host interface is
// named ve-<name>), leaving two for the prefix.
var namePrefixRegex = regexp.MustCompile(`^[a-z][a-z0-9]?$`)

// Validate checks that the HostConfig is usable.
func (c *HostConfig) Validate() error {
	dirs := []struct {
		key, value string
	}{
		{"descriptor_dir", c.DescriptorDir},
		{"lock_file", c.LockFile},
		{"containers_root", c.ContainersRoot},
		{"profiles_dir", c.ProfilesDir},
		{"gcroots_dir", c.GCRootsDir},
	}
	for _, d := range dirs {
		if !filepath.IsAbs(d.value) {
			return fmt.Errorf("%s must be an absolute path (got %q)", d.key, d.value)
		}
	}
	if c.EventsDir != "" && !filepath.IsAbs(c.EventsDir) {
		return fmt.Errorf("events_dir must be an absolute path (got %q)", c.EventsDir)
	}

	if err := validateAddressPrefix(c.AddressPrefix); err != nil {
		return err
	}

	if !namePrefixRegex.MatchString(c.NamePrefix) {
		return fmt.Errorf("name_prefix must be one lowercase letter optionally followed by a letter or digit (got %q)", c.NamePrefix)
	}

	if c.NixosExpression == "" {
		return fmt.Errorf("nixos_expression is required")
	}
	if c.SuPath == "" {
		return fmt.Errorf("su_path is required")
	}

	if _, err := c.Signal(); err != nil {
		return err
	}

	tools := map[string]string{
		"tools.nix_env":    c.Tools.NixEnv,
		"tools.systemctl":  c.Tools.Systemctl,
		"tools.machinectl": c.Tools.Machinectl,
		"tools.nsenter":    c.Tools.Nsenter,
		"tools.umount":     c.Tools.Umount,
		"tools.rm":         c.Tools.Rm,
	}
	for key, value := range tools {
		if value == "" {
			return fmt.Errorf("%s is required", key)
		}
	}

	return nil
}

func validateAddressPrefix(prefix string) error {
	parts := strings.Split(prefix, ".")
	if len(parts) != 2 {
		return fmt.Errorf("address_prefix must be two dotted octets (got %q)", prefix)
	}
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 || p != strconv.Itoa(n) {
			return fmt.Errorf("address_prefix must be two dotted octets (got %q)", prefix)
		}
	}
	return nil
}

// Signal returns the signal forwarded to a child when fragile is
// interrupted.
func (c *HostConfig) Signal() (syscall.Signal, error) {
	sig, err := signal.ParseSignal(c.ForwardSignal)
	if err != nil {
		return 0, fmt.Errorf("invalid forward_signal %q: %w", c.ForwardSignal, err)
	}
	return sig, nil
}

// Paths returns the path layout derived from this configuration.
func (c *HostConfig) Paths() *Paths {
	return &Paths{
		DescriptorDir:  c.DescriptorDir,
		ContainersRoot: c.ContainersRoot,
		ProfilesDir:    c.ProfilesDir,
		GCRootsDir:     c.GCRootsDir,
	}
}
