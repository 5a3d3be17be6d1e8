package work

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims and NFC-normalizes a worker name so visually identical
// names compare equal in the roster and in contributor sets.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}
