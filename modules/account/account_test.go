package account_test

import (
	"context"
	"encoding/json"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authkit/modules/account"
	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/svc/auth"
)

// fakeProvider is a minimal GoTrue-compatible server.
type fakeProvider struct {
	mu        sync.Mutex
	users     map[string]fakeUser // by e-mail
	tokens    map[string]string   // access token -> e-mail
	calls     map[string]int
	recovered string
}

type fakeUser struct {
	ID       uuid.UUID
	Password string
	Name     string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		users:  map[string]fakeUser{"jo@example.com": {ID: uuid.New(), Password: "Secret123!", Name: "Jo"}},
		tokens: map[string]string{},
		calls:  map[string]int{},
	}
}

func (p *fakeProvider) count(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[key]
}

func (p *fakeProvider) userJSON(email string) map[string]any {
	u := p.users[email]
	now := time.Now().UTC()
	return map[string]any{
		"id":              u.ID,
		"email":           email,
		"last_sign_in_at": now,
		"created_at":      now,
		"user_metadata":   map[string]any{"full_name": u.Name},
	}
}

func (p *fakeProvider) session(email string, amr ...string) map[string]any {
	methods := make([]map[string]any, 0, len(amr))
	for _, m := range amr {
		methods = append(methods, map[string]any{"method": m, "timestamp": time.Now().Unix()})
	}
	access, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   p.users[email].ID.String(),
		"email": email,
		"exp":   time.Now().Add(time.Hour).Unix(),
		"amr":   methods,
	}).SignedString([]byte("test-secret"))
	p.tokens[access] = email
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"refresh_token": "refresh-" + uuid.NewString(),
		"user":          p.userJSON(email),
	}
}

func (p *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	if g := r.URL.Query().Get("grant_type"); g != "" {
		key += "?" + g
	}
	p.calls[key]++

	var in map[string]any
	_ = json.NewDecoder(r.Body).Decode(&in)
	str := func(k string) string { s, _ := in[k].(string); return s }

	reply := func(status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if v != nil {
			_ = json.NewEncoder(w).Encode(v)
		}
	}
	bearer := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	switch key {
	case "POST /token?password":
		u, ok := p.users[str("email")]
		if !ok || u.Password != str("password") {
			reply(http.StatusBadRequest, map[string]any{"error_code": "invalid_credentials", "msg": "Invalid login credentials"})
			return
		}
		reply(http.StatusOK, p.session(str("email")))
	case "POST /token?pkce":
		switch str("auth_code") {
		case "recovery-code":
			reply(http.StatusOK, p.session(p.recovered, "recovery"))
		case "login-code":
			reply(http.StatusOK, p.session("jo@example.com", "oauth"))
		default:
			reply(http.StatusBadRequest, map[string]any{"error_code": "flow_state_not_found", "msg": "invalid flow state"})
		}
	case "POST /signup":
		email := str("email")
		data, _ := in["data"].(map[string]any)
		name, _ := data["full_name"].(string)
		p.users[email] = fakeUser{ID: uuid.New(), Password: str("password"), Name: name}
		reply(http.StatusOK, p.userJSON(email))
	case "POST /otp", "POST /logout":
		reply(http.StatusOK, nil)
	case "POST /recover":
		if _, ok := p.users[str("email")]; ok {
			p.recovered = str("email")
		}
		reply(http.StatusOK, nil)
	case "GET /user", "PUT /user":
		email, ok := p.tokens[bearer]
		if !ok {
			reply(http.StatusUnauthorized, map[string]any{"msg": "invalid JWT"})
			return
		}
		reply(http.StatusOK, p.userJSON(email))
	default:
		reply(http.StatusNotFound, map[string]any{"msg": "not found"})
	}
}

type app struct {
	srv      *httptest.Server
	client   *http.Client
	provider *fakeProvider
	profiles *auth.MemoryProfiles
}

func newApp(t *testing.T) *app {
	t.Helper()

	fp := newFakeProvider()
	providerSrv := httptest.NewServer(fp)
	t.Cleanup(providerSrv.Close)

	client, err := gotrue.New(providerSrv.URL, "anon-key")
	require.NoError(t, err)

	cookies, err := cookie.New([]string{"0123456789abcdef0123456789abcdef"})
	require.NoError(t, err)
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })
	sessions := session.New(store, cookies)

	profiles := auth.NewMemoryProfiles()
	cfg := auth.DefaultConfig()
	cfg.SiteURL = "http://app.test"
	stores := auth.NewRegistry(client, 100, nil, auth.WithConfig(cfg), auth.WithProfiles(profiles))

	svc := account.New(account.Config{}, sessions, stores,
		account.WithProfiles(profiles),
		account.WithProviders(auth.OAuthProviderGithub),
	)
	srv := httptest.NewServer(svc.Handle())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &app{
		srv: srv,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		provider: fp,
		profiles: profiles,
	}
}

func (a *app) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.Get(a.srv.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (a *app) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := a.client.PostForm(a.srv.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (a *app) signIn(t *testing.T) {
	t.Helper()
	a.get(t, "/sign-in")
	resp, _ := a.post(t, "/sign-in", url.Values{"email": {"jo@example.com"}, "password": {"Secret123!"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Header.Get("Location"))
}

func TestRouteGuard(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	resp, _ := a.get(t, "/dashboard")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/sign-in", resp.Header.Get("Location"))

	resp, _ = a.get(t, "/reset-password")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/forgot-password", resp.Header.Get("Location"))

	resp, body := a.get(t, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, `href="/sign-in"`)
}

func TestSignIn(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		resp, body := a.get(t, "/sign-in")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Welcome back")
		assert.Contains(t, body, `href="/auth/oauth/github?mode=signin"`)

		a.signIn(t)

		resp, body = a.get(t, "/dashboard")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "jo@example.com")
		assert.Contains(t, body, "Jo")
		assert.Contains(t, body, "Welcome Back")
		assert.Contains(t, body, "Last sign in")
		assert.NotContains(t, body, "<dd>Never</dd>")

		resp, _ = a.get(t, "/sign-in")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	t.Run("invalid credentials", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		a.get(t, "/sign-in")

		resp, body := a.post(t, "/sign-in", url.Values{"email": {"jo@example.com"}, "password": {"nope"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "Authentication Failed")
		assert.Contains(t, body, "Email or password is incorrect. Please try again.")
	})

	t.Run("field validation", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		a.get(t, "/sign-in")

		_, body := a.post(t, "/sign-in/validate?field=email", url.Values{"email": {"not-an-email"}})
		assert.Contains(t, body, "Please enter a valid email address")

		_, body = a.post(t, "/sign-in", url.Values{})
		assert.Contains(t, body, "This field is required")
		assert.Zero(t, a.provider.count("POST /token?password"))
	})

	t.Run("datastar submit streams a redirect", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		a.get(t, "/sign-in")

		req, err := http.NewRequest(http.MethodPost, a.srv.URL+"/sign-in",
			strings.NewReader(url.Values{"email": {"jo@example.com"}, "password": {"Secret123!"}}.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Datastar-Request", "true")

		resp, err := a.client.Do(req)
		require.NoError(t, err)
		body := readBody(t, resp)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")
		assert.Contains(t, body, "/dashboard")
	})
}

func TestSignUp(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	resp, body := a.get(t, "/sign-up")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "8 characters or more")

	resp, body = a.post(t, "/sign-up", url.Values{
		"email":    {"a@b.com"},
		"password": {"Abcdefg1!"},
		"name":     {"Jo"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Account Created")
	assert.Contains(t, body, "Please check your email to confirm your account.")

	assert.Equal(t, 1, a.provider.count("POST /signup"))
	assert.Equal(t, 1, a.profiles.Len())
}

func TestMagicLink(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.get(t, "/sign-in")

	_, body := a.post(t, "/sign-in/method", url.Values{})
	assert.Contains(t, body, "Send magic link")
	assert.NotContains(t, body, `name="password"`)

	_, body = a.post(t, "/sign-in", url.Values{"email": {"jo@example.com"}})
	assert.Contains(t, body, "Check your email")
	assert.Contains(t, body, "We've sent a magic link to:")
	assert.Contains(t, body, "1:00")
	assert.Contains(t, body, "Magic Link Sent")

	_, _ = a.post(t, "/sign-in/resend", url.Values{})
	assert.Equal(t, 1, a.provider.count("POST /otp"))
}

func TestForgotPassword(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	for _, email := range []string{"jo@example.com", "nobody@example.com"} {
		resp, body := a.post(t, "/forgot-password", url.Values{"email": {email}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, html.EscapeString(account.ResetLinkSentMessage), email)
	}
	assert.Equal(t, 2, a.provider.count("POST /recover"))

	_, body := a.post(t, "/forgot-password", url.Values{"email": {"bad"}})
	assert.Contains(t, body, "Please enter a valid email address")
}

func TestPasswordRecovery(t *testing.T) {
	t.Parallel()
	a := newApp(t)

	a.post(t, "/forgot-password", url.Values{"email": {"jo@example.com"}})

	resp, _ := a.get(t, "/auth/callback?code=recovery-code&type=recovery")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/reset-password", resp.Header.Get("Location"))

	resp, body := a.get(t, "/reset-password")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Reset your password")

	for _, path := range []string{"/sign-in", "/forgot-password"} {
		resp, _ = a.get(t, path)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		assert.Equal(t, "/reset-password", resp.Header.Get("Location"), path)
	}

	_, body = a.post(t, "/reset-password", url.Values{"password": {"Abcdefg1!"}, "confirm_password": {"Abcdefg1?"}})
	assert.Contains(t, body, account.MsgPasswordMismatch)
	assert.Zero(t, a.provider.count("PUT /user"))

	resp, _ = a.post(t, "/reset-password", url.Values{"password": {"Abcdefg1!"}, "confirm_password": {"Abcdefg1!"}})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	assert.Equal(t, 1, a.provider.count("PUT /user"))

	_, body = a.get(t, "/dashboard")
	assert.Contains(t, body, "Password Reset Successful")

	resp, _ = a.get(t, "/reset-password")
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/forgot-password", resp.Header.Get("Location"))
}

func TestCallback(t *testing.T) {
	t.Parallel()

	t.Run("cancelled consent", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		resp, _ := a.get(t, "/auth/callback?error=access_denied&error_description=access_denied")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/sign-in", resp.Header.Get("Location"))

		_, body := a.get(t, "/sign-in")
		assert.Contains(t, body, "Authentication was cancelled.")
	})

	t.Run("oauth round trip", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		resp, _ := a.get(t, "/auth/oauth/github")
		require.Equal(t, http.StatusSeeOther, resp.StatusCode)
		consent, err := url.Parse(resp.Header.Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/authorize", consent.Path)
		assert.Equal(t, "github", consent.Query().Get("provider"))
		assert.NotEmpty(t, consent.Query().Get("code_challenge"))

		resp, _ = a.get(t, "/auth/callback?code=login-code")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	})

	t.Run("unsupported provider", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		resp, _ := a.get(t, "/auth/oauth/myspace")
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
	})

	t.Run("exchange without verifier", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		resp, _ := a.get(t, "/auth/callback?code=login-code")
		assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
		assert.Zero(t, a.provider.count("POST /token?pkce"))
	})
}

func TestSignOut(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.signIn(t)

	resp, _ := a.post(t, "/sign-out", url.Values{})
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, 1, a.provider.count("POST /logout"))

	_, body := a.get(t, "/")
	assert.Contains(t, body, "Signed out")

	resp, _ = a.get(t, "/dashboard")
	assert.Equal(t, "/sign-in", resp.Header.Get("Location"))
}

func TestToasts(t *testing.T) {
	t.Parallel()
	a := newApp(t)
	a.signIn(t)

	resp, _ := a.post(t, "/toasts/999/dismiss", url.Values{})
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = a.get(t, "/toasts")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.srv.URL+"/toasts", nil)
	require.NoError(t, err)
	req.Header.Set("Datastar-Request", "true")
	resp, err = a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// The stream stays open until the deadline cuts it.
	data, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(data), "toast-list")
	assert.Contains(t, string(data), "Welcome Back")
}
