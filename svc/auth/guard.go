package auth

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/handler"
)

// Action is the outcome of a route decision.
type Action int

const (
	ActionAllow Action = iota
	ActionRedirect
	ActionLoading
)

// Decision is what the guard does with a request.
type Decision struct {
	Action   Action
	Redirect string
}

var (
	allow = Decision{Action: ActionAllow}

	publicOnlyPaths = []string{PathSignIn, PathSignUp, PathForgotPassword}
	publicPaths     = []string{PathHome, PathSignIn, PathSignUp, PathForgotPassword}
	infraPrefixes   = []string{PathCallback, "/auth/oauth/", "/toasts", "/healthz", "/static/"}
)

func redirectTo(path string) Decision {
	return Decision{Action: ActionRedirect, Redirect: path}
}

// IsInfrastructurePath reports paths the guard never intercepts.
func IsInfrastructurePath(path string) bool {
	for _, p := range infraPrefixes {
		if path == p || strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// under reports whether path is screen or one of its sub-routes.
func under(path, screen string) bool {
	if path == screen {
		return true
	}
	return screen != PathHome && strings.HasPrefix(path, screen+"/")
}

// IsPublicPath reports paths reachable without a session.
func IsPublicPath(path string) bool {
	for _, p := range publicPaths {
		if under(path, p) {
			return true
		}
	}
	return false
}

// IsPublicOnlyPath reports paths signed-in users are sent away from.
func IsPublicOnlyPath(path string) bool {
	for _, p := range publicOnlyPaths {
		if under(path, p) {
			return true
		}
	}
	return false
}

// Decide applies the route policy to path. recoveryMarker is the
// type=recovery query marker of the request.
func Decide(snap Snapshot, path string, recoveryMarker bool) Decision {
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if IsInfrastructurePath(path) {
		return allow
	}
	if snap.Loading() {
		return Decision{Action: ActionLoading}
	}

	if under(path, PathResetPassword) {
		if snap.Recovery || recoveryMarker {
			return allow
		}
		return redirectTo(PathForgotPassword)
	}

	if snap.Authenticated() {
		if IsPublicOnlyPath(path) {
			// A recovery grant only reaches the reset screen.
			if snap.Recovery {
				return redirectTo(PathResetPassword)
			}
			return redirectTo(PathDashboard)
		}
		return allow
	}

	if IsPublicPath(path) {
		return allow
	}
	return redirectTo(PathSignIn)
}

// Guard returns middleware enforcing Decide on every request. loading is
// rendered while the store is still resolving its initial session.
// It must run inside Registry.Middleware.
func Guard(loading http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var snap Snapshot
			if st := StoreFromContext(r.Context()); st != nil {
				snap = st.Snapshot()
			} else {
				snap = Snapshot{State: StateUnauthenticated}
			}

			d := Decide(snap, r.URL.Path, r.URL.Query().Get("type") == "recovery")
			switch d.Action {
			case ActionLoading:
				w.Header().Set("Cache-Control", "no-store")
				loading.ServeHTTP(w, r)
			case ActionRedirect:
				if handler.IsDataStar(r) {
					_ = handler.NewSSE(w, r).Redirect(d.Redirect)
					return
				}
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
