// Package toast implements a bounded, per-session queue of transient
// notifications.
//
// A Queue holds at most Limit entries, newest first. Each dispatched entry
// closes after its duration and is removed RemoveDelay later so the UI can
// animate it out. Timers are driven by a Clock, which tests replace with a
// fake.
//
//	q := toast.NewQueue()
//	defer q.Close()
//	q.Success("Welcome Back", "Logged in successfully!")
package toast
