package gotrue

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// User is the account record returned by the auth service.
type User struct {
	ID               uuid.UUID      `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at,omitempty"`
	LastSignInAt     *time.Time     `json:"last_sign_in_at,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata,omitempty"`
	AppMetadata      map[string]any `json:"app_metadata,omitempty"`
}

// Session is an issued token pair with its user.
type Session struct {
	Token *oauth2.Token
	User  User
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

func (t tokenResponse) session(now time.Time) *Session {
	tok := &oauth2.Token{
		AccessToken:  t.AccessToken,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshToken,
		ExpiresIn:    t.ExpiresIn,
	}
	switch {
	case t.ExpiresAt > 0:
		tok.Expiry = time.Unix(t.ExpiresAt, 0)
	case t.ExpiresIn > 0:
		tok.Expiry = now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	s := &Session{Token: tok}
	if t.User != nil {
		s.User = *t.User
	}
	return s
}

// SignUpParams are the inputs to SignUp.
type SignUpParams struct {
	Email    string
	Password string
	// Data is stored as user metadata, e.g. {"full_name": "Jo"}.
	Data map[string]any
	// RedirectTo is where the confirmation link lands.
	RedirectTo    string
	CodeChallenge string
}

// SignUpResult holds the created user and, when the project auto-confirms
// e-mail addresses, a session.
type SignUpResult struct {
	User    User
	Session *Session
}

// OTPParams are the inputs to SignInWithOTP.
type OTPParams struct {
	Email string
	// CreateUser lets the link create the account when it does not exist.
	CreateUser    bool
	Data          map[string]any
	RedirectTo    string
	CodeChallenge string
}

// UserAttributes are the fields UpdateUser may change.
type UserAttributes struct {
	Password string         `json:"password,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}
