package auth

import "errors"

var (
	// ErrNotInRecovery is returned by UpdatePasswordWithToken outside a recovery session.
	ErrNotInRecovery = errors.New("auth: no password recovery in progress")
	// ErrNoSession is returned when an action needs tokens the store does not hold.
	ErrNoSession = errors.New("auth: no active session")
	// ErrNoVerifier is returned by ExchangeCode when the PKCE verifier is missing.
	ErrNoVerifier = errors.New("auth: missing code verifier")
	// ErrUnexpected wraps recovered panics from the provider client.
	ErrUnexpected = errors.New("auth: unexpected provider fault")
	// ErrUnsupportedProvider is returned for OAuth providers that are not enabled.
	ErrUnsupportedProvider = errors.New("auth: unsupported oauth provider")
	// ErrProfileNotFound is returned by ProfileRepository.Get.
	ErrProfileNotFound = errors.New("auth: profile not found")
)
