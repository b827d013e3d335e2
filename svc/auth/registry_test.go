package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/svc/auth"
)

func TestTokensRoundTripThroughSession(t *testing.T) {
	t.Parallel()

	sess := &session.Session{ID: uuid.New()}
	in := auth.Tokens{
		AccessToken:  "a",
		RefreshToken: "r",
		ExpiresAt:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		Verifier:     "v",
		Recovery:     true,
	}
	auth.SaveTokens(sess, in)
	assert.True(t, sess.Dirty())
	assert.Equal(t, in, auth.LoadTokens(sess))

	auth.SaveTokens(sess, auth.Tokens{})
	assert.Empty(t, sess.Values)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	p := &MockProvider{}
	r := auth.NewRegistry(p, 2, nil)

	a := &session.Session{ID: uuid.New()}
	b := &session.Session{ID: uuid.New()}
	c := &session.Session{ID: uuid.New()}

	sa := r.Get(a)
	assert.Same(t, sa, r.Get(a))
	r.Get(b)
	r.Get(c)
	assert.Equal(t, 2, r.Len())
	assert.NotSame(t, sa, r.Get(a))

	r.Remove(a.ID)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryMiddleware(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	p := &MockProvider{}
	p.On("GetUser", mock.Anything, "access").Return(&gotrue.User{ID: id, Email: "a@b.com"}, nil).Once()

	r := auth.NewRegistry(p, 10, nil)
	sess := &session.Session{ID: uuid.New()}
	auth.SaveTokens(sess, auth.Tokens{AccessToken: "access", RefreshToken: "r", ExpiresAt: time.Now().Add(time.Hour)})

	var seen *auth.Principal
	h := r.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		seen = auth.PrincipalFromContext(req.Context())
	}))

	serve := func() {
		req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
		req = req.WithContext(session.WithContext(context.Background(), sess))
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	serve()
	require.NotNil(t, seen)
	assert.Equal(t, id, seen.ID)

	serve()
	p.AssertNumberOfCalls(t, "GetUser", 1)
	assert.Equal(t, "access", sess.Get("auth.access_token"))
}

func TestRegistryMiddlewareWithoutSession(t *testing.T) {
	t.Parallel()

	r := auth.NewRegistry(&MockProvider{}, 10, nil)
	called := false
	h := r.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, req *http.Request) {
		called = true
		assert.Nil(t, auth.StoreFromContext(req.Context()))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
