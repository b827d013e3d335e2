package cookie

import "errors"

// Errors returned while configuring the cookie cipher or reading a cookie.
var (
	ErrNoSecret         = errors.New("cookie: no encryption secret configured")
	ErrSecretTooShort   = errors.New("cookie: encryption secret is too short")
	ErrDecryptionFailed = errors.New("cookie: value was not sealed by any configured secret")
	ErrCookieNotFound   = errors.New("cookie: not present in request")
	ErrInvalidFormat    = errors.New("cookie: value is not base64 sealed data")
)
