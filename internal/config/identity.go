package config

import (
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

const (
	identityAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

	// IdentitySuffixLength is the number of random symbols after the prefix.
	IdentitySuffixLength = 9
)

// NewIdentity returns prefix followed by IdentitySuffixLength symbols drawn
// uniformly from [0-9a-z].
func NewIdentity(prefix string) string {
	var b strings.Builder
	b.Grow(len(prefix) + IdentitySuffixLength)
	b.WriteString(prefix)
	for i := 0; i < IdentitySuffixLength; i++ {
		b.WriteByte(identityAlphabet[rand.Intn(len(identityAlphabet))])
	}
	return b.String()
}

var identitySuffixRegex = regexp.MustCompile(`^[0-9a-z]{9}$`)

// ValidateIdentity checks that id has the shape NewIdentity produces.
func ValidateIdentity(prefix, id string) error {
	if id == "" {
		return fmt.Errorf("sandbox identity cannot be empty")
	}
	suffix, ok := strings.CutPrefix(id, prefix)
	if !ok || !identitySuffixRegex.MatchString(suffix) {
		return fmt.Errorf("invalid sandbox identity %q: must be %q followed by %d lowercase letters or digits", id, prefix, IdentitySuffixLength)
	}
	return nil
}
