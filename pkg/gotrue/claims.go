package gotrue

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// ErrInvalidToken is returned when an access token cannot be decoded.
var ErrInvalidToken = errors.New("gotrue: invalid access token")

// AMREntry is one authentication method reference from the token.
type AMREntry struct {
	Method    string `json:"method"`
	Timestamp int64  `json:"timestamp"`
}

// Claims is the subset of access-token claims the front end reads.
type Claims struct {
	jwt.RegisteredClaims
	Email string     `json:"email,omitempty"`
	AMR   []AMREntry `json:"amr,omitempty"`
}

// HasMethod reports whether the session was established by method,
// e.g. "recovery", "otp", "oauth" or "password".
func (c *Claims) HasMethod(method string) bool {
	return slices.ContainsFunc(c.AMR, func(e AMREntry) bool { return e.Method == method })
}

// Expiry returns the exp claim or the zero time.
func (c *Claims) Expiry() time.Time {
	if c.RegisteredClaims.ExpiresAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.ExpiresAt.Time
}

// ParseClaims decodes an access token without verifying its signature.
// The result must only drive UX decisions; authority stays with the service.
func ParseClaims(accessToken string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	return claims, nil
}

// NewVerifier returns a fresh PKCE code verifier.
func NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// Challenge returns the S256 challenge for a PKCE verifier.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
