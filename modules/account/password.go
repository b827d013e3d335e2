package account

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/toast"
	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// ResetLinkSentMessage is shown for every forgot-password request, whether
// or not the address is registered.
const ResetLinkSentMessage = "If an account exists for that email, we've sent a password reset link."

// MsgPasswordMismatch is the confirm-password error.
const MsgPasswordMismatch = "Passwords do not match"

// ForgotPasswordRequest handles both GET and POST
type ForgotPasswordRequest struct {
	Email string `form:"email" query:"email"`
}

func (s *Service) forgotPassword(ctx handler.Context, req ForgotPasswordRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}

	form := ForgotPasswordFormParams{Email: req.Email}
	respond := func() handler.Response {
		return handler.TemplPartial(
			s.views.ForgotPasswordForm(form),
			s.views.ForgotPasswordPage(ForgotPasswordPageParams{Form: form, Toasts: s.entries(sess)}),
			handler.WithTarget(TargetForgotForm),
		)
	}

	if ctx.Request().Method != http.MethodPost {
		return respond()
	}

	switch {
	case req.Email == "":
		form.Error = authform.MsgRequired
		return respond()
	case !auth.IsValidEmail(req.Email):
		form.Error = authform.MsgInvalidEmail
		return respond()
	}

	// ResetPassword never reports whether the address exists.
	st.ResetPassword(ctx, req.Email)

	s.queue(sess).Success("Check Your Email", ResetLinkSentMessage)
	form.Sent = true
	form.Message = ResetLinkSentMessage
	return respond()
}

// ResetPasswordRequest handles both GET (query params) and POST (form data)
type ResetPasswordRequest struct {
	Password        string `form:"password"`
	ConfirmPassword string `form:"confirm_password"`
}

func (r ResetPasswordRequest) validate(confirm bool) map[string]string {
	errs := make(map[string]string)
	switch {
	case r.Password == "":
		errs["password"] = authform.MsgRequired
	case !auth.IsStrongPassword(r.Password):
		errs["password"] = authform.MsgWeakPassword
	}
	if !confirm {
		return errs
	}
	switch {
	case r.ConfirmPassword == "":
		errs["confirm_password"] = authform.MsgRequired
	case r.ConfirmPassword != r.Password:
		errs["confirm_password"] = MsgPasswordMismatch
	}
	return errs
}

func (s *Service) renderReset(ctx handler.Context, form ResetPasswordFormParams) handler.Response {
	sess, _, _ := current(ctx)
	return handler.TemplPartial(
		s.views.ResetPasswordForm(form),
		s.views.ResetPasswordPage(ResetPasswordPageParams{Form: form, Toasts: s.entries(sess)}),
		handler.WithTarget(TargetResetForm),
	)
}

func (s *Service) resetPassword(ctx handler.Context, req ResetPasswordRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}

	form := ResetPasswordFormParams{Checklist: auth.PasswordChecklist(req.Password)}
	if ctx.Request().Method != http.MethodPost {
		return s.renderReset(ctx, form)
	}

	if form.Errors = req.validate(true); len(form.Errors) > 0 {
		return s.renderReset(ctx, form)
	}

	res := st.UpdatePasswordWithToken(ctx, req.Password)
	q := s.queue(sess)
	switch {
	case errors.Is(res.Err, auth.ErrNotInRecovery), errors.Is(res.Err, auth.ErrNoSession):
		q.Error("Invalid Access", "Please use the password reset link from your email.")
		return handler.Redirect(auth.PathForgotPassword)
	case res.Err != nil:
		c := auth.Classify(res.Err, auth.FlowSignIn)
		msg := c.Message
		if c.Kind == auth.KindUnknown {
			msg = "Failed to update password. Please try again."
		}
		q.Dispatch(toast.Entry{Title: "Password Reset Failed", Description: msg, Variant: toast.VariantDestructive})
		return s.renderReset(ctx, form)
	}

	if err := s.persist(ctx, sess, st, true); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist session after password reset",
			logger.Component("account"), logger.Error(err))
		return handler.Error(err)
	}
	q.Success("Password Reset Successful", "Your password has been updated successfully.")
	return handler.Redirect(res.Redirect)
}

// validateReset refreshes the strength checklist on blur.
func (s *Service) validateReset(ctx handler.Context, req ResetPasswordRequest) handler.Response {
	return s.renderReset(ctx, ResetPasswordFormParams{
		Errors:    req.validate(false),
		Checklist: auth.PasswordChecklist(req.Password),
	})
}
