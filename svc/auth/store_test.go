package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/svc/auth"
)

var now = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newStore(p *MockProvider, opts ...auth.StoreOption) *auth.Store {
	cfg := auth.DefaultConfig()
	cfg.SiteURL = "http://localhost:8080"
	return auth.NewStore(p, append([]auth.StoreOption{
		auth.WithConfig(cfg),
		auth.WithClock(func() time.Time { return now }),
	}, opts...)...)
}

func testSession(id uuid.UUID, access string) *gotrue.Session {
	return &gotrue.Session{
		Token: &oauth2.Token{
			AccessToken:  access,
			RefreshToken: "refresh-" + access,
			Expiry:       now.Add(time.Hour),
		},
		User: gotrue.User{ID: id, Email: "a@b.com", UserMetadata: map[string]any{"full_name": "Jo"}},
	}
}

func signedToken(t *testing.T, methods ...string) string {
	t.Helper()
	amr := make([]map[string]any, 0, len(methods))
	for _, m := range methods {
		amr = append(amr, map[string]any{"method": m, "timestamp": now.Unix()})
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u",
		"exp": now.Add(time.Hour).Unix(),
		"amr": amr,
	}).SignedString([]byte("test"))
	require.NoError(t, err)
	return tok
}

func TestInitialize(t *testing.T) {
	t.Parallel()

	t.Run("no session resolves to unauthenticated", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		s := newStore(p)

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
		assert.Nil(t, snap.Principal)
		p.AssertExpectations(t)
	})

	t.Run("valid access token resolves user", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "access").Return(&gotrue.User{ID: id, Email: "a@b.com"}, nil)

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "access", RefreshToken: "refresh", ExpiresAt: now.Add(time.Hour)})

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateAuthenticated, snap.State)
		require.NotNil(t, snap.Principal)
		assert.Equal(t, id, snap.Principal.ID)
		p.AssertExpectations(t)
	})

	t.Run("expired access token is refreshed", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		p := &MockProvider{}
		p.On("RefreshSession", mock.Anything, "refresh").Return(testSession(id, "new"), nil)

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "old", RefreshToken: "refresh", ExpiresAt: now.Add(-time.Minute)})

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateAuthenticated, snap.State)
		assert.Equal(t, "new", s.Tokens().AccessToken)
		p.AssertNotCalled(t, "GetUser", mock.Anything, mock.Anything)
	})

	t.Run("provider error degrades to unauthenticated", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "access").Return(nil, gotrue.ErrNetwork)

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "access", ExpiresAt: now.Add(time.Hour)})

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
		assert.Empty(t, s.Tokens().AccessToken)
	})

	t.Run("timeout degrades to unauthenticated", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "access").
			Run(func(args mock.Arguments) {
				<-args.Get(0).(context.Context).Done()
			}).
			Return(nil, context.DeadlineExceeded)

		cfg := auth.DefaultConfig()
		cfg.InitTimeout = 20 * time.Millisecond
		s := newStore(p, auth.WithConfig(cfg))
		s.Restore(auth.Tokens{AccessToken: "access", ExpiresAt: now.Add(time.Hour)})

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
	})

	t.Run("panicking provider degrades to unauthenticated", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "access").Run(func(mock.Arguments) { panic("boom") })

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "access", ExpiresAt: now.Add(time.Hour)})

		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
	})

	t.Run("concurrent call while loading returns immediately", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		entered := make(chan struct{})
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "access").
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(&gotrue.User{ID: uuid.New()}, nil)

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "access", ExpiresAt: now.Add(time.Hour)})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Initialize(context.Background())
		}()

		<-entered
		snap := s.Initialize(context.Background())
		assert.Equal(t, auth.StateLoading, snap.State)
		assert.True(t, snap.Loading())

		close(release)
		wg.Wait()
		assert.Equal(t, auth.StateAuthenticated, s.Snapshot().State)
		p.AssertNumberOfCalls(t, "GetUser", 1)
	})

	t.Run("sign-in during loading is not overwritten", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		entered := make(chan struct{})
		p := &MockProvider{}
		p.On("GetUser", mock.Anything, "stale").
			Run(func(mock.Arguments) {
				close(entered)
				<-release
			}).
			Return(nil, errors.New("invalid jwt"))

		s := newStore(p)
		s.Restore(auth.Tokens{AccessToken: "stale", ExpiresAt: now.Add(time.Hour)})

		done := make(chan auth.Snapshot)
		go func() { done <- s.Initialize(context.Background()) }()

		<-entered
		s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "fresh"))
		close(release)

		snap := <-done
		assert.Equal(t, auth.StateAuthenticated, snap.State)
		assert.Equal(t, "fresh", s.Tokens().AccessToken)
	})
}

func TestOnSessionChange(t *testing.T) {
	t.Parallel()

	t.Run("signed in redirects to dashboard", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		redirect := s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))
		assert.Equal(t, auth.PathDashboard, redirect)
		assert.True(t, s.Snapshot().Authenticated())
	})

	t.Run("recovery takes precedence over signed in", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		redirect := s.OnSessionChange(context.Background(), auth.EventPasswordRecovery, testSession(uuid.New(), "a"))
		assert.Equal(t, auth.PathResetPassword, redirect)
		assert.True(t, s.Snapshot().Recovery)

		redirect = s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "b"))
		assert.Empty(t, redirect)
		assert.True(t, s.Snapshot().Recovery)
	})

	t.Run("signed out clears principal", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))
		s.OnSessionChange(context.Background(), auth.EventSignedOut, nil)

		snap := s.Snapshot()
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
		assert.Nil(t, snap.Principal)
		assert.Empty(t, s.Tokens().AccessToken)
	})

	t.Run("every write bumps version and notifies", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		var got []uint64
		unsubscribe := s.Subscribe(func(snap auth.Snapshot) { got = append(got, snap.Version) })

		s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))
		s.OnSessionChange(context.Background(), auth.EventTokenRefreshed, testSession(uuid.New(), "b"))
		unsubscribe()
		s.OnSessionChange(context.Background(), auth.EventSignedOut, nil)

		assert.Equal(t, []uint64{1, 2}, got)
		assert.Equal(t, uint64(3), s.Snapshot().Version)
	})

	t.Run("signed in without session is rejected", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		assert.Empty(t, s.OnSessionChange(context.Background(), auth.EventSignedIn, nil))
		assert.Equal(t, auth.StateUninitialized, s.Snapshot().State)
	})
}

func TestSignUp(t *testing.T) {
	t.Parallel()

	t.Run("creates profile with returned id", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		profiles := auth.NewMemoryProfiles()
		p := &MockProvider{}
		p.On("SignUp", mock.Anything, mock.MatchedBy(func(params gotrue.SignUpParams) bool {
			return params.Email == "a@b.com" &&
				params.Password == "Abcdefg1!" &&
				params.Data["full_name"] == "Jo" &&
				strings.HasPrefix(params.RedirectTo, "http://localhost:8080/auth/callback?signup=true") &&
				params.CodeChallenge != ""
		})).Return(&gotrue.SignUpResult{User: gotrue.User{ID: id, Email: "a@b.com"}}, nil)

		s := newStore(p, auth.WithProfiles(profiles))
		res := s.SignUp(context.Background(), " A@b.com", "Abcdefg1!", "Jo")

		require.True(t, res.OK())
		assert.True(t, res.NeedsConfirmation)
		assert.Equal(t, id, res.Principal.ID)

		prof, err := profiles.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Jo", prof.FullName)
		assert.Equal(t, now, prof.UpdatedAt)
		assert.NotEmpty(t, s.Tokens().Verifier)
		p.AssertExpectations(t)
	})

	t.Run("auto confirmed signs in", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		sess := testSession(id, "a")
		p := &MockProvider{}
		p.On("SignUp", mock.Anything, mock.Anything).Return(&gotrue.SignUpResult{User: sess.User, Session: sess}, nil)

		s := newStore(p)
		res := s.SignUp(context.Background(), "a@b.com", "Abcdefg1!", "Jo")
		require.True(t, res.OK())
		assert.False(t, res.NeedsConfirmation)
		assert.Equal(t, auth.PathDashboard, res.Redirect)
		assert.True(t, s.Snapshot().Authenticated())
	})

	t.Run("provider error is returned in result", func(t *testing.T) {
		t.Parallel()
		perr := &gotrue.Error{Status: 422, Code: "user_already_exists", Message: "User already registered"}
		p := &MockProvider{}
		p.On("SignUp", mock.Anything, mock.Anything).Return(nil, perr)

		s := newStore(p)
		res := s.SignUp(context.Background(), "a@b.com", "Abcdefg1!", "Jo")
		assert.ErrorIs(t, res.Err, perr)
		assert.Nil(t, res.Principal)
	})

	t.Run("profile failure is not returned", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("SignUp", mock.Anything, mock.Anything).Return(&gotrue.SignUpResult{User: gotrue.User{ID: uuid.New()}}, nil)

		s := newStore(p, auth.WithProfiles(failingProfiles{}))
		res := s.SignUp(context.Background(), "a@b.com", "Abcdefg1!", "Jo")
		assert.True(t, res.OK())
	})

	t.Run("panic becomes unexpected error", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("SignUp", mock.Anything, mock.Anything).Run(func(mock.Arguments) { panic("client bug") })

		s := newStore(p)
		res := s.SignUp(context.Background(), "a@b.com", "Abcdefg1!", "Jo")
		require.ErrorIs(t, res.Err, auth.ErrUnexpected)
		assert.Equal(t, auth.KindUnknown, auth.Classify(res.Err, auth.FlowSignUp).Kind)
	})
}

type failingProfiles struct{}

func (failingProfiles) Get(context.Context, uuid.UUID) (*auth.Profile, error) {
	return nil, errors.New("db down")
}

func (failingProfiles) Upsert(context.Context, auth.Profile) error {
	return errors.New("db down")
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	p := &MockProvider{}
	p.On("SignInWithPassword", mock.Anything, "a@b.com", "good").Return(testSession(id, "a"), nil)
	p.On("SignInWithPassword", mock.Anything, "a@b.com", "bad").
		Return(nil, &gotrue.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"})

	s := newStore(p)

	res := s.SignIn(context.Background(), "a@b.com", "bad")
	assert.Equal(t, auth.KindInvalidCredentials, auth.Classify(res.Err, auth.FlowSignIn).Kind)
	assert.False(t, s.Snapshot().Authenticated())

	res = s.SignIn(context.Background(), "a@b.com", "good")
	require.True(t, res.OK())
	assert.Equal(t, auth.PathDashboard, res.Redirect)
	assert.Equal(t, id, s.Snapshot().Principal.ID)
	assert.Equal(t, "Jo", s.Snapshot().Principal.DisplayName())
}

func TestSignInWithMagicLink(t *testing.T) {
	t.Parallel()

	t.Run("sign-up creates user and sends metadata", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("SignInWithOTP", mock.Anything, mock.MatchedBy(func(o gotrue.OTPParams) bool {
			return o.CreateUser && o.Data["full_name"] == "Jo" && strings.Contains(o.RedirectTo, "signup=true")
		})).Return(nil).Once()

		s := newStore(p)
		res := s.SignInWithMagicLink(context.Background(), "a@b.com", auth.MagicLinkOptions{
			IsSignUp: true,
			Metadata: map[string]any{"full_name": "Jo"},
		})
		assert.True(t, res.OK())
		p.AssertExpectations(t)
	})

	t.Run("sign-in never creates users or sends metadata", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("SignInWithOTP", mock.Anything, mock.MatchedBy(func(o gotrue.OTPParams) bool {
			return !o.CreateUser && o.Data == nil
		})).Return(nil).Once()

		s := newStore(p)
		res := s.SignInWithMagicLink(context.Background(), "a@b.com", auth.MagicLinkOptions{
			Metadata: map[string]any{"full_name": "ignored"},
		})
		assert.True(t, res.OK())
		p.AssertExpectations(t)
	})

	t.Run("failure is not retried", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("SignInWithOTP", mock.Anything, mock.Anything).Return(gotrue.ErrNetwork)

		s := newStore(p)
		res := s.SignInWithMagicLink(context.Background(), "a@b.com", auth.MagicLinkOptions{})
		assert.ErrorIs(t, res.Err, gotrue.ErrNetwork)
		p.AssertNumberOfCalls(t, "SignInWithOTP", 1)
	})
}

func TestSignInWithOAuth(t *testing.T) {
	t.Parallel()

	p := &MockProvider{}
	p.On("AuthorizeURL", "github", "http://localhost:8080/auth/callback", mock.AnythingOfType("string")).
		Return("https://provider/authorize?provider=github")

	s := newStore(p)
	res := s.SignInWithOAuth(context.Background(), "github")
	require.True(t, res.OK())
	assert.Equal(t, "https://provider/authorize?provider=github", res.Redirect)
	assert.Equal(t, auth.StateUninitialized, s.Snapshot().State)
	assert.NotEmpty(t, s.Tokens().Verifier)

	res = s.SignInWithOAuth(context.Background(), "myspace")
	assert.ErrorIs(t, res.Err, auth.ErrUnsupportedProvider)
}

func TestSignOut(t *testing.T) {
	t.Parallel()

	p := &MockProvider{}
	p.On("SignOut", mock.Anything, "a").Return(errors.New("token expired"))

	s := newStore(p)
	s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))

	res := s.SignOut(context.Background())
	assert.True(t, res.OK())
	assert.Equal(t, auth.PathHome, res.Redirect)
	assert.Nil(t, s.Snapshot().Principal)
	p.AssertExpectations(t)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()

	p := &MockProvider{}
	p.On("Recover", mock.Anything, "ghost@b.com", "http://localhost:8080/auth/callback?type=recovery", mock.Anything).
		Return(&gotrue.Error{Status: 404, Code: "user_not_found", Message: "User not found"})

	s := newStore(p)
	res := s.ResetPassword(context.Background(), "ghost@b.com")
	assert.True(t, res.OK())
	assert.Nil(t, res.Err)
	p.AssertExpectations(t)
}

func TestUpdatePasswordWithToken(t *testing.T) {
	t.Parallel()

	t.Run("requires recovery", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))
		res := s.UpdatePasswordWithToken(context.Background(), "Newpass1!")
		assert.ErrorIs(t, res.Err, auth.ErrNotInRecovery)
	})

	t.Run("success clears recovery", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		p := &MockProvider{}
		p.On("UpdateUser", mock.Anything, "a", gotrue.UserAttributes{Password: "Newpass1!"}).
			Return(&gotrue.User{ID: id, Email: "a@b.com"}, nil)

		s := newStore(p)
		s.OnSessionChange(context.Background(), auth.EventPasswordRecovery, testSession(id, "a"))
		require.True(t, s.Snapshot().Recovery)

		res := s.UpdatePasswordWithToken(context.Background(), "Newpass1!")
		require.True(t, res.OK())
		assert.Equal(t, auth.PathDashboard, res.Redirect)
		assert.False(t, s.Snapshot().Recovery)
	})

	t.Run("failure keeps recovery", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("UpdateUser", mock.Anything, "a", mock.Anything).Return(nil, &gotrue.Error{Status: 422, Code: "same_password"})

		s := newStore(p)
		s.OnSessionChange(context.Background(), auth.EventPasswordRecovery, testSession(uuid.New(), "a"))

		res := s.UpdatePasswordWithToken(context.Background(), "Newpass1!")
		require.Error(t, res.Err)
		assert.True(t, s.Snapshot().Recovery)
	})
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	t.Run("requires verifier", func(t *testing.T) {
		t.Parallel()
		s := newStore(&MockProvider{})
		res := s.ExchangeCode(context.Background(), auth.CallbackParams{Code: "c"})
		assert.ErrorIs(t, res.Err, auth.ErrNoVerifier)
	})

	t.Run("sign-up callback creates missing profile", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		sess := testSession(id, signedToken(t, "otp"))
		p := &MockProvider{}
		p.On("ExchangeCode", mock.Anything, "c", "v").Return(sess, nil)
		profiles := auth.NewMemoryProfiles()

		s := newStore(p, auth.WithProfiles(profiles))
		s.Restore(auth.Tokens{Verifier: "v"})

		res := s.ExchangeCode(context.Background(), auth.CallbackParams{Code: "c", SignUp: true})
		require.True(t, res.OK())
		assert.Equal(t, auth.PathDashboard, res.Redirect)
		assert.Empty(t, s.Tokens().Verifier)

		prof, err := profiles.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Jo", prof.FullName)
	})

	t.Run("existing profile is kept", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		profiles := auth.NewMemoryProfiles()
		require.NoError(t, profiles.Upsert(context.Background(), auth.Profile{UserID: id, FullName: "Original"}))

		p := &MockProvider{}
		p.On("ExchangeCode", mock.Anything, "c", "v").Return(testSession(id, "a"), nil)

		s := newStore(p, auth.WithProfiles(profiles))
		s.Restore(auth.Tokens{Verifier: "v"})
		s.ExchangeCode(context.Background(), auth.CallbackParams{Code: "c", SignUp: true})

		prof, err := profiles.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Original", prof.FullName)
	})

	t.Run("recovery amr claim enters recovery", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("ExchangeCode", mock.Anything, "c", "v").Return(testSession(uuid.New(), signedToken(t, "recovery")), nil)

		s := newStore(p)
		s.Restore(auth.Tokens{Verifier: "v"})

		res := s.ExchangeCode(context.Background(), auth.CallbackParams{Code: "c"})
		require.True(t, res.OK())
		assert.Equal(t, auth.PathResetPassword, res.Redirect)
		assert.True(t, s.Snapshot().Recovery)
		assert.True(t, s.Tokens().Recovery)
	})

	t.Run("recovery query marker enters recovery", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		p.On("ExchangeCode", mock.Anything, "c", "v").Return(testSession(uuid.New(), "opaque"), nil)

		s := newStore(p)
		s.Restore(auth.Tokens{Verifier: "v"})

		res := s.ExchangeCode(context.Background(), auth.CallbackParams{Code: "c", Recovery: true})
		assert.Equal(t, auth.PathResetPassword, res.Redirect)
	})
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	t.Run("fresh token is left alone", func(t *testing.T) {
		t.Parallel()
		p := &MockProvider{}
		s := newStore(p)
		s.OnSessionChange(context.Background(), auth.EventSignedIn, testSession(uuid.New(), "a"))

		s.Refresh(context.Background())
		p.AssertNotCalled(t, "RefreshSession", mock.Anything, mock.Anything)
	})

	t.Run("expiring token is refreshed once", func(t *testing.T) {
		t.Parallel()
		id := uuid.New()
		sess := testSession(id, "a")
		sess.Token.Expiry = now.Add(10 * time.Second)

		p := &MockProvider{}
		p.On("RefreshSession", mock.Anything, "refresh-a").Return(testSession(id, "b"), nil).Once()

		s := newStore(p)
		s.OnSessionChange(context.Background(), auth.EventSignedIn, sess)

		var wg sync.WaitGroup
		for range 5 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Refresh(context.Background())
			}()
		}
		wg.Wait()

		assert.Equal(t, "b", s.Tokens().AccessToken)
		p.AssertNumberOfCalls(t, "RefreshSession", 1)
	})

	t.Run("failed refresh signs out", func(t *testing.T) {
		t.Parallel()
		sess := testSession(uuid.New(), "a")
		sess.Token.Expiry = now.Add(-time.Second)

		p := &MockProvider{}
		p.On("RefreshSession", mock.Anything, "refresh-a").Return(nil, &gotrue.Error{Status: 400, Code: "refresh_token_not_found"})

		s := newStore(p)
		s.OnSessionChange(context.Background(), auth.EventSignedIn, sess)

		snap := s.Refresh(context.Background())
		assert.Equal(t, auth.StateUnauthenticated, snap.State)
	})
}
