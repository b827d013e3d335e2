package fingerprint

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/pkg/clientip"
)

// Mode selects the request attributes that make up a fingerprint.
type Mode int

const (
	// Browser uses headers that stay the same across navigations and
	// Datastar fetches of one browser.
	Browser Mode = iota
	// Strict also binds the fingerprint to the client IP.
	Strict
)

// Generate returns a 32-character hex fingerprint of the device behind r.
func Generate(r *http.Request, mode Mode) string {
	parts := []string{
		r.UserAgent(),
		r.Header.Get("Accept-Language"),
	}
	if mode == Strict {
		parts = append(parts, clientip.GetIP(r))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:16])
}

// Match reports whether r comes from the device that produced stored.
func Match(r *http.Request, mode Mode, stored string) bool {
	return subtle.ConstantTimeCompare([]byte(Generate(r, mode)), []byte(stored)) == 1
}
