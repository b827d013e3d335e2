// Package fingerprint derives a stable device identifier from request
// headers. Sessions store it on creation and are dropped when a later
// request presents a different one.
//
//	fp := fingerprint.Generate(r, fingerprint.Browser)
//	if !fingerprint.Match(r, fingerprint.Browser, stored) {
//		// treat the cookie as stolen
//	}
package fingerprint
