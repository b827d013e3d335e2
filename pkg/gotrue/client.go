package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

const maxBodySize = 1 << 20

// Config is the env-driven client configuration.
type Config struct {
	URL     string        `env:"AUTH_PROVIDER_URL,required"`
	AnonKey string        `env:"AUTH_PROVIDER_ANON_KEY,required"`
	Timeout time.Duration `env:"AUTH_PROVIDER_TIMEOUT" envDefault:"10s"`
}

// Client talks to a GoTrue-compatible auth service. It is safe for
// concurrent use.
type Client struct {
	baseURL *url.URL
	anonKey string
	http    *http.Client
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithClock overrides the time source used to compute token expiry.
func WithClock(now func() time.Time) Option {
	return func(cl *Client) {
		if now != nil {
			cl.now = now
		}
	}
}

// New creates a Client for the service at baseURL, e.g.
// "https://xyz.supabase.co/auth/v1".
func New(baseURL, anonKey string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: base url %q", ErrInvalidConfig, baseURL)
	}
	if anonKey == "" {
		return nil, fmt.Errorf("%w: empty anon key", ErrInvalidConfig)
	}

	c := &Client{
		baseURL: u,
		anonKey: anonKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.Noop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewFromConfig creates a Client from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Client, error) {
	base := []Option{}
	if cfg.Timeout > 0 {
		base = append(base, WithHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return New(cfg.URL, cfg.AnonKey, append(base, opts...)...)
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, accessToken string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	start := c.now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.Join(ErrNetwork, ctxErr)
		}
		return errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Join(ErrNetwork, err)
	}

	c.logger.DebugContext(ctx, "auth provider call",
		logger.Component("gotrue"),
		slog.String("method", method),
		logger.Path(path),
		slog.Int("status", resp.StatusCode),
		logger.Duration(c.now().Sub(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Join(ErrUnexpectedResponse, err)
	}
	return nil
}

func redirectQuery(redirectTo string) url.Values {
	q := url.Values{}
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return q
}

// SignUp registers a new e-mail/password account.
func (c *Client) SignUp(ctx context.Context, p SignUpParams) (*SignUpResult, error) {
	in := map[string]any{
		"email":    p.Email,
		"password": p.Password,
	}
	if len(p.Data) > 0 {
		in["data"] = p.Data
	}
	if p.CodeChallenge != "" {
		in["code_challenge"] = p.CodeChallenge
		in["code_challenge_method"] = "s256"
	}

	// Auto-confirming projects answer with a session, the rest with the bare user.
	var out struct {
		tokenResponse
		User
	}
	if err := c.do(ctx, http.MethodPost, "/signup", redirectQuery(p.RedirectTo), "", in, &out); err != nil {
		return nil, err
	}

	if out.AccessToken != "" {
		s := out.tokenResponse.session(c.now())
		return &SignUpResult{User: s.User, Session: s}, nil
	}
	return &SignUpResult{User: out.User}, nil
}

// SignInWithPassword exchanges e-mail and password for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]any{"email": email, "password": password})
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	return c.token(ctx, "refresh_token", map[string]any{"refresh_token": refreshToken})
}

// ExchangeCode completes a PKCE flow (OAuth, magic link, recovery).
func (c *Client) ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*Session, error) {
	return c.token(ctx, "pkce", map[string]any{"auth_code": authCode, "code_verifier": codeVerifier})
}

func (c *Client) token(ctx context.Context, grant string, in map[string]any) (*Session, error) {
	var out tokenResponse
	if err := c.do(ctx, http.MethodPost, "/token", url.Values{"grant_type": {grant}}, "", in, &out); err != nil {
		return nil, err
	}
	if out.AccessToken == "" {
		return nil, fmt.Errorf("%w: token response without access token", ErrUnexpectedResponse)
	}
	return out.session(c.now()), nil
}

// SignInWithOTP e-mails a magic link.
func (c *Client) SignInWithOTP(ctx context.Context, p OTPParams) error {
	in := map[string]any{
		"email":       p.Email,
		"create_user": p.CreateUser,
	}
	if len(p.Data) > 0 {
		in["data"] = p.Data
	}
	if p.CodeChallenge != "" {
		in["code_challenge"] = p.CodeChallenge
		in["code_challenge_method"] = "s256"
	}
	return c.do(ctx, http.MethodPost, "/otp", redirectQuery(p.RedirectTo), "", in, nil)
}

// AuthorizeURL returns the hosted consent URL for an OAuth provider.
func (c *Client) AuthorizeURL(provider, redirectTo, codeChallenge string) string {
	q := redirectQuery(redirectTo)
	q.Set("provider", provider)
	if codeChallenge != "" {
		q.Set("code_challenge", codeChallenge)
		q.Set("code_challenge_method", "s256")
	}
	return c.endpoint("/authorize", q)
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user", nil, accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser changes the password or metadata of the user owning accessToken.
func (c *Client) UpdateUser(ctx context.Context, accessToken string, attrs UserAttributes) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPut, "/user", nil, accessToken, attrs, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Recover e-mails a password reset link.
func (c *Client) Recover(ctx context.Context, email, redirectTo, codeChallenge string) error {
	in := map[string]any{"email": email}
	if codeChallenge != "" {
		in["code_challenge"] = codeChallenge
		in["code_challenge_method"] = "s256"
	}
	return c.do(ctx, http.MethodPost, "/recover", redirectQuery(redirectTo), "", in, nil)
}

// SignOut revokes the refresh tokens of the session owning accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", url.Values{"scope": {"local"}}, accessToken, nil, nil)
}
