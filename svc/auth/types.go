package auth

import (
	"context"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/pkg/statemachine"
)

// State is the authentication state of one browser session.
type State = statemachine.StringState

const (
	StateUninitialized   State = "uninitialized"
	StateLoading         State = "loading"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// Event is a session change reported to OnSessionChange.
type Event = statemachine.StringEvent

const (
	EventSignedIn         Event = "signed_in"
	EventSignedOut        Event = "signed_out"
	EventPasswordRecovery Event = "password_recovery"
	EventTokenRefreshed   Event = "token_refreshed"
	EventUserUpdated      Event = "user_updated"

	eventInitialize     Event = "initialize"
	eventInitialSession Event = "initial_session"
)

// Navigation targets.
const (
	PathHome           = "/"
	PathSignIn         = "/sign-in"
	PathSignUp         = "/sign-up"
	PathForgotPassword = "/forgot-password"
	PathResetPassword  = "/reset-password"
	PathDashboard      = "/dashboard"
	PathCallback       = "/auth/callback"
)

// Principal is the authenticated identity. Values are never mutated after
// they are published in a Snapshot.
type Principal struct {
	ID           uuid.UUID
	Email        string
	LastSignInAt time.Time
	Metadata     map[string]any
}

// DisplayName returns the full_name metadata or "".
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	name, _ := p.Metadata["full_name"].(string)
	return name
}

func principalFromUser(u gotrue.User) *Principal {
	p := &Principal{
		ID:       u.ID,
		Email:    u.Email,
		Metadata: maps.Clone(u.UserMetadata),
	}
	if u.LastSignInAt != nil {
		p.LastSignInAt = *u.LastSignInAt
	}
	return p
}

// Snapshot is an immutable read view of a Store.
type Snapshot struct {
	State     State
	Principal *Principal
	Recovery  bool
	// Version increases with every write to the store.
	Version uint64
}

// Authenticated reports whether a principal is signed in.
func (s Snapshot) Authenticated() bool {
	return s.State == StateAuthenticated && s.Principal != nil
}

// Loading reports whether the initial provider round-trip is still pending.
// The zero Snapshot is uninitialized.
func (s Snapshot) Loading() bool {
	switch s.State {
	case StateLoading, StateUninitialized, "":
		return true
	}
	return false
}

// Result is the normalized outcome of a Store action.
type Result struct {
	Principal *Principal
	// Err carries expected provider failures; pass it to Classify.
	Err error
	// Redirect is the navigation target chosen by the action, if any.
	Redirect string
	// NeedsConfirmation is set by SignUp when the provider returned no session.
	NeedsConfirmation bool
}

// OK reports whether the action succeeded.
func (r Result) OK() bool { return r.Err == nil }

// MagicLinkOptions tune SignInWithMagicLink.
type MagicLinkOptions struct {
	// IsSignUp allows the provider to create the account.
	IsSignUp bool
	// Metadata is attached to new accounts only.
	Metadata map[string]any
}

// Tokens is the persisted provider session of one browser.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	// Verifier is the PKCE verifier of a pending redirect flow.
	Verifier string
	Recovery bool
}

// Provider is the hosted auth service as seen by the Store.
type Provider interface {
	GetUser(ctx context.Context, accessToken string) (*gotrue.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*gotrue.Session, error)
	SignUp(ctx context.Context, p gotrue.SignUpParams) (*gotrue.SignUpResult, error)
	SignInWithPassword(ctx context.Context, email, password string) (*gotrue.Session, error)
	SignInWithOTP(ctx context.Context, p gotrue.OTPParams) error
	AuthorizeURL(provider, redirectTo, codeChallenge string) string
	ExchangeCode(ctx context.Context, authCode, codeVerifier string) (*gotrue.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	Recover(ctx context.Context, email, redirectTo, codeChallenge string) error
	UpdateUser(ctx context.Context, accessToken string, attrs gotrue.UserAttributes) (*gotrue.User, error)
}

var _ Provider = (*gotrue.Client)(nil)

// OAuth provider identifiers offered on the sign-in and sign-up screens.
const (
	OAuthProviderGoogle = "google"
	OAuthProviderGithub = "github"
)
