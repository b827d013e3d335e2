// Package auth holds the per-browser session state of the front end and the
// policies built on it.
//
// A Store is the single writer of one browser's authentication state. It
// moves through uninitialized, loading, authenticated and unauthenticated,
// proxies every action (sign-up, sign-in, magic link, OAuth, sign-out,
// password reset and update) to the hosted provider and reports expected
// failures in a Result instead of returning them. Readers only ever see an
// immutable Snapshot.
//
// Classify maps provider failures to a closed set of kinds with display
// messages, Decide and Guard implement the route policy, and Registry keeps
// one Store per session, persisting its tokens into the session values.
package auth
