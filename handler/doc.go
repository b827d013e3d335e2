// Package handler adapts typed request handlers to net/http.
//
// A HandlerFunc receives a Context and a bound request value and returns a
// Response. Responses render either as plain HTML (first page load, no
// JavaScript) or as Datastar server-sent events when the request came from
// the Datastar client, so the same handler serves both.
//
//	type signInRequest struct {
//		Email    string `form:"email"`
//		Password string `form:"password"`
//	}
//
//	r.Post("/sign-in", handler.Wrap(h.submitSignIn,
//		handler.WithBinders[handler.Context, signInRequest](binder.Form()),
//		handler.WithErrorHandler[handler.Context, signInRequest](errHandler),
//	))
//
// Response constructors: Templ, TemplPartial and TemplMulti for views,
// Redirect for navigation, SSE for long-lived streams, Empty for bodiless
// replies.
//
// Binding and rendering failures go to the configured ErrorHandler.
// NewErrorHandler renders an error page for regular requests and a toast
// patch for Datastar requests. HTTPError and ValidationError carry the
// status code and field messages respectively.
package handler
