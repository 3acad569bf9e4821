package generator

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/firefly-engineering/fragile/internal/system"
)

// ConfigurationFile is the path of the generated module inside the sandbox
// root.
const ConfigurationFile = "etc/nixos/configuration.nix"

// Configuration describes the container module wrapping a user config.
type Configuration struct {
	Hostname string
	Imports  []string
}

// Validate checks that the Configuration has all required fields.
func (c *Configuration) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("hostname is required")
	}
	if len(c.Imports) == 0 {
		return fmt.Errorf("at least one import is required")
	}
	for _, imp := range c.Imports {
		if !filepath.IsAbs(imp) {
			return fmt.Errorf("import must be an absolute path (got %q)", imp)
		}
	}
	return nil
}

// GenerateConfiguration renders configuration.nix.
func GenerateConfiguration(cfg *Configuration) (string, error) {
	if err := cfg.Validate(); err != nil {
		return "", fmt.Errorf("invalid configuration: %w", err)
	}

	data := TemplateData{
		Hostname: cfg.Hostname,
		Imports:  cfg.Imports,
	}

	var buf bytes.Buffer
	if err := configurationTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute configuration template: %w", err)
	}
	return buf.String(), nil
}

// WriteConfiguration renders cfg to path. The parent directory must exist.
func WriteConfiguration(fsys system.FileSystem, path string, cfg *Configuration) error {
	content, err := GenerateConfiguration(cfg)
	if err != nil {
		return err
	}
	if err := fsys.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
