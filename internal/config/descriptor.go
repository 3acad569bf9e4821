package config

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/firefly-engineering/fragile/internal/system"
)

// Descriptor is the per-sandbox KEY=VALUE file read by the container
// runtime. Its address lines are also how allocation discovers blocks in
// use.
type Descriptor struct {
	PrivateNetwork bool
	HostAddress    string
	LocalAddress   string
	AutoStart      bool
}

func boolValue(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Marshal renders the descriptor in the runtime's line format.
func (d Descriptor) Marshal() []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "PRIVATE_NETWORK=%s\n", boolValue(d.PrivateNetwork))
	fmt.Fprintf(&buf, "HOST_ADDRESS=%s\n", d.HostAddress)
	fmt.Fprintf(&buf, "LOCAL_ADDRESS=%s\n", d.LocalAddress)
	fmt.Fprintf(&buf, "AUTO_START=%s\n", boolValue(d.AutoStart))
	return buf.Bytes()
}

// ParseDescriptor reads the keys fragile writes. Other keys are ignored.
func ParseDescriptor(data []byte) (Descriptor, error) {
	var d Descriptor
	scanner := bufio.NewScanner(bytes.NewReader(data))
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return Descriptor{}, fmt.Errorf("line %d: expected KEY=VALUE", line)
		}
		switch key {
		case "PRIVATE_NETWORK":
			d.PrivateNetwork = value == "1"
		case "HOST_ADDRESS":
			d.HostAddress = value
		case "LOCAL_ADDRESS":
			d.LocalAddress = value
		case "AUTO_START":
			d.AutoStart = value == "1"
		}
	}
	if err := scanner.Err(); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// CreateDescriptor writes d to path, failing with an fs.ErrExist error if
// the file is already present.
func CreateDescriptor(fsys system.FileSystem, path string, d Descriptor) error {
	return fsys.CreateExclusive(path, d.Marshal(), 0644)
}

// LoadDescriptor reads and parses the descriptor at path.
func LoadDescriptor(fsys system.FileSystem, path string) (Descriptor, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return Descriptor{}, err
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return Descriptor{}, fmt.Errorf("failed to parse descriptor %s: %w", path, err)
	}
	return d, nil
}
