// Package gotrue is a client for GoTrue-compatible hosted auth services
// (Supabase Auth and forks).
//
// The client covers the endpoints a server-rendered front end needs:
// password sign-up and sign-in, magic links, OAuth authorize URLs, PKCE
// code exchange, refresh, sign-out, password recovery and user updates.
// Every request carries the project's anon key in the apikey header.
// Calls that act on behalf of a user take that user's access token.
//
// PKCE verifiers are generated by the caller with oauth2.GenerateVerifier
// and stored alongside the browser session; this package only forwards the
// S256 challenge and, on exchange, the verifier.
//
// Provider failures are returned as *Error carrying the HTTP status, the
// machine-readable code and the human message. Transport failures wrap
// ErrNetwork.
package gotrue
