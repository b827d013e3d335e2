package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/statemachine"
)

// Store is the authentication state of one browser session. All writes go
// through its action methods and OnSessionChange; reads go through Snapshot.
// Provider round-trips never run under the store lock.
type Store struct {
	provider Provider
	profiles ProfileRepository
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time

	sm      statemachine.StateMachine
	refresh singleflight.Group

	mu           sync.Mutex
	principal    *Principal
	recovery     bool
	tokens       Tokens
	version      uint64
	listeners    map[uint64]func(Snapshot)
	nextListener uint64
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) StoreOption {
	return func(s *Store) {
		s.cfg = cfg
	}
}

// WithProfiles sets the repository used for profile upserts.
func WithProfiles(r ProfileRepository) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.profiles = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns a store in the uninitialized state.
func NewStore(provider Provider, opts ...StoreOption) *Store {
	s := &Store{
		provider:  provider,
		profiles:  NewMemoryProfiles(),
		cfg:       DefaultConfig(),
		logger:    logger.Noop(),
		now:       time.Now,
		listeners: make(map[uint64]func(Snapshot)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.InitTimeout <= 0 {
		s.cfg.InitTimeout = 5 * time.Second
	}

	hasPrincipal := func(_ context.Context, _ statemachine.State, _ statemachine.Event, data any) bool {
		p, _ := data.(*Principal)
		return p != nil
	}
	anyState := []statemachine.State{statemachine.Any}

	s.sm = statemachine.MustNew(StateUninitialized,
		statemachine.WithTransition(StateUninitialized, StateLoading, eventInitialize),
		statemachine.WithTransition(StateLoading, StateAuthenticated, eventInitialSession, statemachine.WithGuard(hasPrincipal)),
		statemachine.WithTransition(StateLoading, StateUnauthenticated, eventInitialSession),
		statemachine.WithTransitionFrom(anyState, StateAuthenticated, EventSignedIn, statemachine.WithGuard(hasPrincipal)),
		statemachine.WithTransitionFrom(anyState, StateAuthenticated, EventPasswordRecovery, statemachine.WithGuard(hasPrincipal)),
		statemachine.WithTransitionFrom(anyState, StateAuthenticated, EventTokenRefreshed, statemachine.WithGuard(hasPrincipal)),
		statemachine.WithTransitionFrom(anyState, StateAuthenticated, EventUserUpdated, statemachine.WithGuard(hasPrincipal)),
		statemachine.WithTransition(statemachine.Any, StateUnauthenticated, EventSignedOut),
	)
	return s
}

// Snapshot returns the current read view.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	state, _ := s.sm.Current().(State)
	return Snapshot{
		State:     state,
		Principal: s.principal,
		Recovery:  s.recovery,
		Version:   s.version,
	}
}

// Subscribe registers fn to receive every new snapshot. The returned
// function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Tokens returns a copy of the persisted provider session.
func (s *Store) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.tokens
	t.Recovery = s.recovery
	return t
}

// Restore seeds an uninitialized store with persisted tokens. It is a
// no-op once the store has been initialized.
func (s *Store) Restore(t Tokens) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.sm.Is(StateUninitialized) {
		return
	}
	s.tokens = t
	s.tokens.Recovery = false
	s.recovery = t.Recovery
}

// apply fires event and, when the transition is accepted, runs update and
// publishes a new snapshot. Events are applied in arrival order.
func (s *Store) apply(ctx context.Context, event Event, p *Principal, update func()) (Snapshot, error) {
	s.mu.Lock()
	if err := s.sm.Fire(ctx, event, p); err != nil {
		s.mu.Unlock()
		return Snapshot{}, err
	}
	if update != nil {
		update()
	}
	s.version++
	snap := s.snapshotLocked()
	listeners := make([]func(Snapshot), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
	return snap, nil
}

// Initialize resolves the persisted session against the provider, moving
// the store from uninitialized through loading to authenticated or
// unauthenticated. A call that finds the store already past uninitialized
// returns the current snapshot immediately.
func (s *Store) Initialize(ctx context.Context) Snapshot {
	if _, err := s.apply(ctx, eventInitialize, nil, nil); err != nil {
		return s.Snapshot()
	}

	rctx, cancel := context.WithTimeout(ctx, s.cfg.InitTimeout)
	defer cancel()

	p, tokens, err := s.resolve(rctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to resolve initial session",
			logger.Component("auth"),
			logger.Event("initialize"),
			logger.Error(err),
		)
		p = nil
	}

	snap, err := s.apply(context.WithoutCancel(ctx), eventInitialSession, p, func() {
		if p == nil {
			verifier := s.tokens.Verifier
			s.principal = nil
			s.recovery = false
			s.tokens = Tokens{Verifier: verifier}
			return
		}
		s.principal = p
		tokens.Verifier = s.tokens.Verifier
		s.tokens = tokens
	})
	if err != nil {
		// An explicit event already moved the store out of loading.
		return s.Snapshot()
	}
	return snap
}

func (s *Store) resolve(ctx context.Context) (p *Principal, t Tokens, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrUnexpected, r)
		}
	}()

	s.mu.Lock()
	t = s.tokens
	s.mu.Unlock()

	if t.AccessToken == "" && t.RefreshToken == "" {
		return nil, t, nil
	}

	if t.AccessToken != "" && !s.expiring(t) {
		u, err := s.provider.GetUser(ctx, t.AccessToken)
		if err == nil {
			return principalFromUser(*u), t, nil
		}
		if t.RefreshToken == "" || errors.Is(err, gotrue.ErrNetwork) {
			return nil, t, err
		}
	}

	if t.RefreshToken == "" {
		return nil, t, ErrNoSession
	}
	sess, err := s.provider.RefreshSession(ctx, t.RefreshToken)
	if err != nil {
		return nil, t, err
	}
	return principalFromUser(sess.User), mergeTokens(t, sess), nil
}

func (s *Store) expiring(t Tokens) bool {
	return !t.ExpiresAt.IsZero() && !s.now().Add(s.cfg.RefreshMargin).Before(t.ExpiresAt)
}

func mergeTokens(prev Tokens, sess *gotrue.Session) Tokens {
	t := Tokens{Verifier: prev.Verifier}
	if sess == nil || sess.Token == nil {
		return t
	}
	t.AccessToken = sess.Token.AccessToken
	t.RefreshToken = sess.Token.RefreshToken
	t.ExpiresAt = sess.Token.Expiry
	return t
}

// OnSessionChange applies a provider session event and returns the
// navigation target it implies, if any. signed_in while a recovery is in
// progress never redirects to the protected area.
func (s *Store) OnSessionChange(ctx context.Context, event Event, sess *gotrue.Session) string {
	var p *Principal
	if sess != nil && event != EventSignedOut {
		p = principalFromUser(sess.User)
	}

	redirect := ""
	snap, err := s.apply(ctx, event, p, func() {
		switch event {
		case EventSignedOut:
			s.principal = nil
			s.recovery = false
			s.tokens = Tokens{}
			return
		case EventPasswordRecovery:
			s.recovery = true
			redirect = PathResetPassword
		case EventSignedIn:
			if !s.recovery {
				redirect = PathDashboard
			}
		}
		s.principal = p
		if sess != nil && sess.Token != nil {
			s.tokens = mergeTokens(s.tokens, sess)
		}
	})
	if err != nil {
		s.logger.WarnContext(ctx, "session event rejected",
			logger.Component("auth"),
			logger.Event(event.Name()),
			logger.Error(err),
		)
		return ""
	}

	attrs := []any{
		logger.Component("auth"),
		logger.Event(event.Name()),
		slog.Uint64("version", snap.Version),
	}
	if p != nil {
		attrs = append(attrs, logger.UserID(p.ID.String()))
	}
	s.logger.InfoContext(ctx, "auth session state changed", attrs...)
	return redirect
}

// run executes an action, converting provider panics into ErrUnexpected.
func (s *Store) run(ctx context.Context, action string, fn func() Result) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.ErrorContext(ctx, "auth action panicked",
				logger.Component("auth"),
				logger.Event(action),
				slog.Any("panic", r),
			)
			res = Result{Err: fmt.Errorf("%w: %v", ErrUnexpected, r)}
		}
	}()
	return fn()
}

func (s *Store) setVerifier(v string) {
	s.mu.Lock()
	s.tokens.Verifier = v
	s.mu.Unlock()
}

func (s *Store) callbackURL(q url.Values) string {
	u := strings.TrimRight(s.cfg.SiteURL, "/") + PathCallback
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// SignUp creates an account and upserts its profile. When the provider
// requires e-mail confirmation the result carries NeedsConfirmation and
// the store stays signed out.
func (s *Store) SignUp(ctx context.Context, email, password, displayName string) Result {
	return s.run(ctx, "sign_up", func() Result {
		email = NormalizeEmail(email)
		name := NormalizeName(displayName)
		verifier := gotrue.NewVerifier()

		s.logger.InfoContext(ctx, "attempting sign-up",
			logger.Component("auth"), logger.Flow("password"), logger.Email(email))

		out, err := s.provider.SignUp(ctx, gotrue.SignUpParams{
			Email:         email,
			Password:      password,
			Data:          map[string]any{"full_name": name},
			RedirectTo:    s.callbackURL(url.Values{"signup": {"true"}}),
			CodeChallenge: gotrue.Challenge(verifier),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "sign-up failed",
				logger.Component("auth"), logger.Flow("password"), logger.Error(err))
			return Result{Err: err}
		}
		s.setVerifier(verifier)

		p := principalFromUser(out.User)
		if err := s.profiles.Upsert(ctx, Profile{UserID: p.ID, FullName: name, UpdatedAt: s.now()}); err != nil {
			s.logger.ErrorContext(ctx, "failed to upsert profile",
				logger.Component("auth"), logger.UserID(p.ID.String()), logger.Error(err))
		}

		s.logger.InfoContext(ctx, "sign-up successful",
			logger.Component("auth"), logger.Flow("password"), logger.UserID(p.ID.String()))

		if out.Session == nil {
			return Result{Principal: p, NeedsConfirmation: true}
		}
		redirect := s.OnSessionChange(ctx, EventSignedIn, out.Session)
		return Result{Principal: p, Redirect: redirect}
	})
}

// SignIn authenticates with e-mail and password.
func (s *Store) SignIn(ctx context.Context, email, password string) Result {
	return s.run(ctx, "sign_in", func() Result {
		email = NormalizeEmail(email)
		s.logger.InfoContext(ctx, "attempting sign-in",
			logger.Component("auth"), logger.Flow("password"), logger.Email(email))

		sess, err := s.provider.SignInWithPassword(ctx, email, password)
		if err != nil {
			s.logger.WarnContext(ctx, "sign-in failed",
				logger.Component("auth"), logger.Flow("password"), logger.Error(err))
			return Result{Err: err}
		}

		redirect := s.OnSessionChange(ctx, EventSignedIn, sess)
		return Result{Principal: principalFromUser(sess.User), Redirect: redirect}
	})
}

// SignInWithMagicLink e-mails a one-time link. New accounts are only
// created when opts.IsSignUp is set, and metadata is only sent for them.
// The call is not retried.
func (s *Store) SignInWithMagicLink(ctx context.Context, email string, opts MagicLinkOptions) Result {
	return s.run(ctx, "magic_link", func() Result {
		email = NormalizeEmail(email)
		verifier := gotrue.NewVerifier()

		params := gotrue.OTPParams{
			Email:         email,
			CreateUser:    opts.IsSignUp,
			RedirectTo:    s.callbackURL(nil),
			CodeChallenge: gotrue.Challenge(verifier),
		}
		if opts.IsSignUp {
			params.Data = opts.Metadata
			params.RedirectTo = s.callbackURL(url.Values{"signup": {"true"}})
		}

		if err := s.provider.SignInWithOTP(ctx, params); err != nil {
			s.logger.WarnContext(ctx, "magic link error",
				logger.Component("auth"), logger.Flow("magic_link"), logger.Error(err))
			return Result{Err: err}
		}
		s.setVerifier(verifier)

		s.logger.InfoContext(ctx, "magic link sent",
			logger.Component("auth"), logger.Flow("magic_link"), logger.Email(email))
		return Result{}
	})
}

// SignInWithOAuth returns the hosted consent URL of provider in
// Result.Redirect. The store does not change until the callback.
func (s *Store) SignInWithOAuth(ctx context.Context, provider string) Result {
	return s.run(ctx, "oauth", func() Result {
		if !slices.Contains(s.cfg.OAuthProviders, provider) {
			return Result{Err: fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)}
		}
		verifier := gotrue.NewVerifier()
		target := s.provider.AuthorizeURL(provider, s.callbackURL(nil), gotrue.Challenge(verifier))
		s.setVerifier(verifier)

		s.logger.InfoContext(ctx, "redirecting to oauth provider",
			logger.Component("auth"), logger.Flow("oauth"), logger.Provider(provider))
		return Result{Redirect: target}
	})
}

// SignOut revokes the provider session and clears the principal. The local
// session is cleared even when the provider call fails.
func (s *Store) SignOut(ctx context.Context) Result {
	return s.run(ctx, "sign_out", func() Result {
		access := s.Tokens().AccessToken
		if access != "" {
			if err := s.provider.SignOut(ctx, access); err != nil {
				s.logger.WarnContext(ctx, "provider sign-out failed",
					logger.Component("auth"), logger.Error(err))
			}
		}
		s.OnSessionChange(ctx, EventSignedOut, nil)
		return Result{Redirect: PathHome}
	})
}

// ResetPassword requests a recovery e-mail. The result never reveals
// whether the address is registered; provider errors are only logged.
func (s *Store) ResetPassword(ctx context.Context, email string) Result {
	return s.run(ctx, "password_reset", func() Result {
		email = NormalizeEmail(email)
		verifier := gotrue.NewVerifier()

		s.logger.InfoContext(ctx, "password reset requested",
			logger.Component("auth"), logger.Email(email))

		err := s.provider.Recover(ctx, email, s.callbackURL(url.Values{"type": {"recovery"}}), gotrue.Challenge(verifier))
		if err != nil {
			s.logger.WarnContext(ctx, "password reset error",
				logger.Component("auth"), logger.Email(email), logger.Error(err))
			return Result{}
		}
		s.setVerifier(verifier)
		return Result{}
	})
}

// UpdatePasswordWithToken sets a new password for the recovering user and
// clears the recovery flag.
func (s *Store) UpdatePasswordWithToken(ctx context.Context, newPassword string) Result {
	return s.run(ctx, "password_update", func() Result {
		s.mu.Lock()
		recovery, access := s.recovery, s.tokens.AccessToken
		s.mu.Unlock()

		if !recovery {
			return Result{Err: ErrNotInRecovery}
		}
		if access == "" {
			return Result{Err: ErrNoSession}
		}

		u, err := s.provider.UpdateUser(ctx, access, gotrue.UserAttributes{Password: newPassword})
		if err != nil {
			s.logger.WarnContext(ctx, "password update error",
				logger.Component("auth"), logger.Error(err))
			return Result{Err: err}
		}

		p := principalFromUser(*u)
		if _, err := s.apply(ctx, EventUserUpdated, p, func() {
			s.principal = p
			s.recovery = false
		}); err != nil {
			return Result{Err: err}
		}

		s.logger.InfoContext(ctx, "password updated successfully",
			logger.Component("auth"), logger.UserID(p.ID.String()))
		return Result{Principal: p, Redirect: PathDashboard}
	})
}

// CallbackParams are the query parameters of the provider redirect.
type CallbackParams struct {
	Code string
	// SignUp marks callbacks of sign-up flows, which create a profile.
	SignUp bool
	// Recovery marks password recovery links.
	Recovery bool
}

// ExchangeCode completes an OAuth, magic-link or recovery redirect using
// the PKCE verifier stored when the flow started.
func (s *Store) ExchangeCode(ctx context.Context, params CallbackParams) Result {
	return s.run(ctx, "exchange_code", func() Result {
		verifier := s.Tokens().Verifier
		if verifier == "" {
			return Result{Err: ErrNoVerifier}
		}

		sess, err := s.provider.ExchangeCode(ctx, params.Code, verifier)
		if err != nil {
			s.logger.WarnContext(ctx, "code exchange failed",
				logger.Component("auth"), logger.Error(err))
			return Result{Err: err}
		}
		s.setVerifier("")

		recovery := params.Recovery
		if sess.Token != nil {
			if claims, err := gotrue.ParseClaims(sess.Token.AccessToken); err == nil && claims.HasMethod("recovery") {
				recovery = true
			}
		}

		p := principalFromUser(sess.User)
		if params.SignUp || isSignUpMeta(sess.User.AppMetadata) {
			s.ensureProfile(ctx, p)
		}

		event := EventSignedIn
		if recovery {
			event = EventPasswordRecovery
		}
		redirect := s.OnSessionChange(ctx, event, sess)
		return Result{Principal: p, Redirect: redirect}
	})
}

func isSignUpMeta(m map[string]any) bool {
	v, _ := m["isSignUp"].(bool)
	return v
}

func (s *Store) ensureProfile(ctx context.Context, p *Principal) {
	_, err := s.profiles.Get(ctx, p.ID)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrProfileNotFound) {
		s.logger.WarnContext(ctx, "failed to load profile",
			logger.Component("auth"), logger.UserID(p.ID.String()), logger.Error(err))
	}
	err = s.profiles.Upsert(ctx, Profile{
		UserID:    p.ID,
		FullName:  NormalizeName(p.DisplayName()),
		UpdatedAt: s.now(),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to upsert profile",
			logger.Component("auth"), logger.UserID(p.ID.String()), logger.Error(err))
	}
}

// Refresh renews the access token when it expires within the refresh
// margin. Concurrent calls share one provider round-trip. A failed
// refresh signs the store out.
func (s *Store) Refresh(ctx context.Context) Snapshot {
	s.mu.Lock()
	t := s.tokens
	authenticated := s.sm.Is(StateAuthenticated)
	s.mu.Unlock()

	if !authenticated || t.RefreshToken == "" || !s.expiring(t) {
		return s.Snapshot()
	}

	_, _, _ = s.refresh.Do("refresh", func() (any, error) {
		s.run(ctx, "refresh", func() Result {
			// Another caller may have refreshed between our read and Do.
			if s.Tokens().RefreshToken != t.RefreshToken {
				return Result{}
			}
			sess, err := s.provider.RefreshSession(ctx, t.RefreshToken)
			if err != nil {
				s.logger.WarnContext(ctx, "session refresh failed",
					logger.Component("auth"), logger.Error(err))
				s.OnSessionChange(ctx, EventSignedOut, nil)
				return Result{Err: err}
			}
			s.OnSessionChange(ctx, EventTokenRefreshed, sess)
			return Result{}
		})
		return nil, nil
	})
	return s.Snapshot()
}
