package account

import (
	"time"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// AuthRequest is the body of the sign-in and sign-up forms. Field selects
// the input validated on blur.
type AuthRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Name     string `form:"name"`
	Field    string `query:"field"`
}

func (r AuthRequest) draft() authform.Draft {
	return authform.Draft{Email: r.Email, Password: r.Password, Name: r.Name}
}

func screenPath(mode authform.Mode) string {
	if mode == authform.ModeSignUp {
		return auth.PathSignUp
	}
	return auth.PathSignIn
}

func (s *Service) formParams(f *authform.Form) AuthFormParams {
	d := f.Draft()
	errs := make(map[string]string)
	for field, msg := range f.Errors() {
		errs[string(field)] = msg
	}

	p := AuthFormParams{
		Mode:      f.Mode(),
		Action:    screenPath(f.Mode()),
		Email:     d.Email,
		Name:      d.Name,
		Errors:    errs,
		MagicLink: f.MagicLinkMode(),
		LinkSent:  f.MagicLinkSent(),
		Busy:      f.Busy(),
		Countdown: f.Countdown(),
		CanResend: f.CanResend(),
		Providers: s.providers,
	}
	if f.Mode() == authform.ModeSignUp && !p.MagicLink {
		p.Checklist = auth.PasswordChecklist(d.Password)
	}
	return p
}

func (s *Service) renderAuth(sess *session.Session, f *authform.Form) handler.Response {
	params := s.formParams(f)
	page := AuthPageParams{Form: params, Toasts: s.entries(sess)}

	full := s.views.SignInPage(page)
	if f.Mode() == authform.ModeSignUp {
		full = s.views.SignUpPage(page)
	}
	return handler.TemplPartial(s.views.AuthForm(params), full, handler.WithTarget(TargetAuthForm))
}

// showAuth mounts a fresh form and renders the screen.
func (s *Service) showAuth(mode authform.Mode) handler.HandlerFunc[handler.Context, EmptyRequest] {
	return func(ctx handler.Context, _ EmptyRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, true)
		return s.renderAuth(sess, f)
	}
}

// submitAuth signs in or up, or sends a magic link in magic-link mode.
func (s *Service) submitAuth(mode authform.Mode) handler.HandlerFunc[handler.Context, AuthRequest] {
	return func(ctx handler.Context, req AuthRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, false)
		f.Set(req.draft())

		out := f.HandleSubmit(ctx)
		if out.Redirect == "" && !out.SignedIn {
			return s.renderAuth(sess, f)
		}

		if err := s.persist(ctx, sess, st, true); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist signed-in session",
				logger.Component("account"), logger.Error(err))
			return handler.Error(err)
		}
		s.discardForms(sess)
		if out.Redirect == "" {
			// Reload the screen and let the guard pick the destination.
			return handler.Redirect(screenPath(mode))
		}
		return handler.Redirect(out.Redirect)
	}
}

// validateAuth validates one field on blur.
func (s *Service) validateAuth(mode authform.Mode) handler.HandlerFunc[handler.Context, AuthRequest] {
	return func(ctx handler.Context, req AuthRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, false)
		f.Set(req.draft())

		switch field := authform.Field(req.Field); field {
		case authform.FieldEmail, authform.FieldPassword, authform.FieldName:
			f.Blur(field)
		default:
			return handler.Error(handler.ErrBadRequest.WithMessage("Unknown field"))
		}
		return s.renderAuth(sess, f)
	}
}

// toggleMethod switches between password and magic-link submission.
func (s *Service) toggleMethod(mode authform.Mode) handler.HandlerFunc[handler.Context, AuthRequest] {
	return func(ctx handler.Context, req AuthRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, false)
		if req.Email != "" || req.Name != "" {
			d := f.Draft()
			d.Email, d.Name = req.Email, req.Name
			f.Set(d)
		}
		f.ToggleAuthMethod()
		return s.renderAuth(sess, f)
	}
}

// resendLink sends the magic link again once the countdown is over.
func (s *Service) resendLink(mode authform.Mode) handler.HandlerFunc[handler.Context, EmptyRequest] {
	return func(ctx handler.Context, _ EmptyRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, false)
		if _, fired := f.Resend(ctx); !fired {
			s.logger.DebugContext(ctx, "magic link resend suppressed",
				logger.Component("account"), logger.Flow(string(mode)))
		}
		return s.renderAuth(sess, f)
	}
}

// countdown streams the remaining seconds as the countdown signal, then
// patches the form once the resend is allowed.
func (s *Service) countdown(mode authform.Mode) handler.HandlerFunc[handler.Context, EmptyRequest] {
	return func(ctx handler.Context, _ EmptyRequest) handler.Response {
		sess, st, err := current(ctx)
		if err != nil {
			return handler.Error(err)
		}
		f := s.form(ctx.Request(), sess, st, mode, false)

		return handler.SSE(func(sc handler.StreamContext) error {
			ticker := time.NewTicker(s.cfg.CountdownTick)
			defer ticker.Stop()

			for {
				left := f.Countdown()
				if !f.MagicLinkSent() || left == 0 {
					return sc.SendComponent(s.views.AuthForm(s.formParams(f)), handler.WithTarget(TargetAuthForm))
				}
				if err := sc.SendSignals(map[string]any{"countdown": FormatCountdown(left)}); err != nil {
					return err
				}
				select {
				case <-sc.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
}
