// Package authform drives the sign-in and sign-up screens.
//
// A Form is created when a screen is mounted and owns the draft, the
// per-field errors, the password/magic-link toggle and the magic-link
// resend countdown. It validates in a fixed order (email, password, name),
// calls the session store, classifies failures and dispatches exactly one
// toast per submitted action.
package authform
