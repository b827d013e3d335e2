package auth

import (
	"net/http"

	"github.com/dmitrymomot/authkit/pkg/session"
)

// Middleware binds the session's Store to the request context. The first
// request of a session initializes the store; later requests refresh
// tokens that are about to expire. Token changes are written back into
// the session after the handler returns.
//
// It must run inside session.Manager.Middleware.
func (r *Registry) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sess := session.FromContext(req.Context())
		if sess == nil {
			next.ServeHTTP(w, req)
			return
		}

		st := r.Get(sess)
		ctx := WithStore(req.Context(), st)

		if st.Snapshot().State == StateUninitialized {
			st.Initialize(ctx)
		} else {
			st.Refresh(ctx)
		}
		SaveTokens(sess, st.Tokens())

		next.ServeHTTP(w, req.WithContext(ctx))

		SaveTokens(sess, st.Tokens())
	})
}
