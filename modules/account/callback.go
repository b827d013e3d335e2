package account

import (
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// CallbackRequest is the query of the provider redirect.
type CallbackRequest struct {
	Code             string `query:"code"`
	SignUp           bool   `query:"signup"`
	Type             string `query:"type"`
	Error            string `query:"error"`
	ErrorDescription string `query:"error_description"`
}

// callback completes OAuth, magic-link and recovery redirects.
func (s *Service) callback(ctx handler.Context, req CallbackRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}
	q := s.queue(sess)

	if req.ErrorDescription != "" || req.Error != "" {
		msg := req.ErrorDescription
		if msg == "" {
			msg = req.Error
		}
		c := auth.ClassifyText(msg, auth.FlowSocial)
		s.logger.WarnContext(ctx, "provider returned an error",
			logger.Component("account"), logger.Event("callback"), logger.Error(errors.New(msg)))
		q.Error("Authentication Failed", c.Message)
		return handler.Redirect(auth.PathSignIn)
	}

	if req.Code == "" {
		q.Error("Authentication Failed", auth.ClassifyText("", auth.FlowSocial).Message)
		return handler.Redirect(auth.PathSignIn)
	}

	res := st.ExchangeCode(ctx, auth.CallbackParams{
		Code:     req.Code,
		SignUp:   req.SignUp,
		Recovery: req.Type == "recovery",
	})
	if res.Err != nil {
		q.Error("Authentication Failed", auth.Classify(res.Err, auth.FlowSocial).Message)
		if req.Type == "recovery" {
			return handler.Redirect(auth.PathForgotPassword)
		}
		return handler.Redirect(auth.PathSignIn)
	}

	if err := s.persist(ctx, sess, st, true); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session after callback",
			logger.Component("account"), logger.Error(err))
		return handler.Error(err)
	}
	s.discardForms(sess)

	target := res.Redirect
	if target == "" {
		target = auth.PathDashboard
	}
	return handler.Redirect(target)
}

// OAuthRequest selects the screen that started a social sign-in.
type OAuthRequest struct {
	Mode string `query:"mode"`
}

// oauth redirects to the consent screen of a social provider.
func (s *Service) oauth(ctx handler.Context, req OAuthRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}

	mode := authform.ModeSignIn
	if authform.Mode(req.Mode) == authform.ModeSignUp {
		mode = authform.ModeSignUp
	}
	f := s.form(ctx.Request(), sess, st, mode, false)

	out := f.HandleSocial(ctx, chi.URLParam(ctx.Request(), "provider"))
	if out.Redirect == "" {
		return handler.Redirect(screenPath(mode))
	}
	// The verifier must be stored before the browser leaves.
	if err := s.persist(ctx, sess, st, false); err != nil {
		return handler.Error(err)
	}
	return handler.Redirect(out.Redirect)
}
