package account

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// Mountable is implemented by services that expose an http.Handler.
type Mountable interface {
	Handle() http.Handler
}

var _ Mountable = (*Service)(nil)

// Handle returns the router of every account screen. Requests pass
// through the session middleware, the store middleware and the route
// guard, in that order.
//
// Example:
//
//	svc := account.New(cfg, sessions, stores, account.WithLogger(log))
//
//	r := chi.NewRouter()
//	r.Get("/healthz", health)
//	r.Mount("/", svc.Handle())
func (s *Service) Handle() http.Handler {
	return s.Router()
}

// Router is Handle with a chi.Router for mounting extra routes behind the
// same middleware chain.
func (s *Service) Router(extra ...func(chi.Router)) chi.Router {
	r := chi.NewRouter()
	r.Use(
		s.sessions.Middleware,
		s.stores.Middleware,
		auth.Guard(templ.Handler(s.views.LoadingPage())),
	)

	r.Get(auth.PathHome, wrap(s, s.home))
	r.Get(auth.PathDashboard, wrap(s, s.dashboard))
	r.Post("/sign-out", wrap(s, s.signOut))

	for _, mode := range []authform.Mode{authform.ModeSignIn, authform.ModeSignUp} {
		path := screenPath(mode)
		r.Route(path, func(r chi.Router) {
			r.Get("/", wrap(s, s.showAuth(mode)))
			r.Post("/", wrap(s, s.submitAuth(mode)))
			r.Post("/validate", wrap(s, s.validateAuth(mode)))
			r.Post("/method", wrap(s, s.toggleMethod(mode)))
			r.Post("/resend", wrap(s, s.resendLink(mode)))
			r.Get("/countdown", wrap(s, s.countdown(mode)))
		})
	}

	r.HandleFunc(auth.PathForgotPassword, wrap(s, s.forgotPassword))
	r.HandleFunc(auth.PathResetPassword, wrap(s, s.resetPassword))
	r.Post(auth.PathResetPassword+"/validate", wrap(s, s.validateReset))

	r.Get(auth.PathCallback, wrap(s, s.callback))
	r.Get("/auth/oauth/{provider}", wrap(s, s.oauth))

	r.Get("/toasts", wrap(s, s.toastStream))
	r.Post("/toasts/{id}/dismiss", wrap(s, s.dismissToast))

	for _, fn := range extra {
		fn(r)
	}
	return r
}
