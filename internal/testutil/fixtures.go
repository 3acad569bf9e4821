package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/fragile/internal/config"
)

//go:embed fixtures/*.toml
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// WriteFixture copies a fixture into a temp directory and returns its path.
func WriteFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := LoadFixture(name)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture %s: %v", name, err)
	}
	return path
}

// LoadHostConfigFixture decodes a host config fixture on top of the
// defaults. It does not validate.
func LoadHostConfigFixture(name string) (*config.HostConfig, error) {
	data, err := LoadFixture(name)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	if _, err := toml.Decode(string(data), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ValidHostConfig returns the valid host config fixture.
func ValidHostConfig() (*config.HostConfig, error) {
	return LoadHostConfigFixture("valid_host_config.toml")
}

// InvalidHostConfig returns the invalid host config fixture.
func InvalidHostConfig() (*config.HostConfig, error) {
	return LoadHostConfigFixture("invalid_host_config.toml")
}
