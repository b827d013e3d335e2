// Package session keeps server-side web sessions addressed by an encrypted
// cookie.
//
// Each browser gets a Session with a stable ID and a rotating token. The
// token travels in the cookie and keys the Store; the ID keys per-browser
// state held elsewhere in the process (auth stores, forms, toast queues).
// Rotate issues a new token on privilege changes to prevent fixation.
//
// Two stores ship with the package: MemoryStore for single-instance
// deployments and tests, RedisStore for anything that runs more than one
// replica.
//
//	mgr := session.New(store, cookies, session.WithConfig(cfg))
//	r.Use(mgr.Middleware)
//	...
//	sess := session.FromContext(r.Context())
//	sess.Set("auth.refresh_token", token)
package session
