package account

import (
	"errors"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/svc/auth"
)

func (s *Service) home(ctx handler.Context, _ EmptyRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}
	return handler.Templ(s.views.HomePage(HomePageParams{
		Authenticated: st.Snapshot().Authenticated(),
		Toasts:        s.entries(sess),
	}))
}

func (s *Service) dashboard(ctx handler.Context, _ EmptyRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}
	p := st.Snapshot().Principal
	if p == nil {
		return handler.Redirect(auth.PathSignIn)
	}

	params := DashboardPageParams{
		Email:  p.Email,
		Name:   p.DisplayName(),
		Toasts: s.entries(sess),
	}
	if !p.LastSignInAt.IsZero() {
		at := p.LastSignInAt
		params.LastSignInAt = &at
	}
	if s.profiles != nil {
		prof, err := s.profiles.Get(ctx, p.ID)
		switch {
		case err == nil && prof.FullName != "":
			params.Name = prof.FullName
		case err != nil && !errors.Is(err, auth.ErrProfileNotFound):
			s.logger.WarnContext(ctx, "failed to load profile",
				logger.Component("account"), logger.UserID(p.ID.String()), logger.Error(err))
		}
	}
	return handler.Templ(s.views.DashboardPage(params))
}

func (s *Service) signOut(ctx handler.Context, _ EmptyRequest) handler.Response {
	sess, st, err := current(ctx)
	if err != nil {
		return handler.Error(err)
	}

	res := st.SignOut(ctx)
	if err := s.persist(ctx, sess, st, true); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist signed-out session",
			logger.Component("account"), logger.Error(err))
		return handler.Error(err)
	}
	s.discardForms(sess)

	s.queue(sess).Success("Signed out", "You have been signed out successfully")
	return handler.Redirect(res.Redirect)
}
