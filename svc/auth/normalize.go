package auth

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail trims and lower-cases an address before it is sent to the provider.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizeName returns the NFC form of name with runs of whitespace collapsed.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.Join(strings.Fields(name), " "))
}
