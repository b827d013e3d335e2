package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/authkit/pkg/gotrue"
)

// Flow is the screen action an error came from; it selects fallback wording.
type Flow string

const (
	FlowSignIn    Flow = "signin"
	FlowSignUp    Flow = "signup"
	FlowMagicLink Flow = "magic_link"
	FlowSocial    Flow = "social"
)

// Kind is the closed taxonomy of auth failures.
type Kind string

const (
	KindInvalidCredentials Kind = "invalid_credentials"
	KindUnverifiedEmail    Kind = "unverified_email"
	KindRateLimited        Kind = "rate_limited"
	KindNetworkError       Kind = "network_error"
	KindUserCancelled      Kind = "user_cancelled"
	KindAccountConflict    Kind = "account_conflict"
	KindNotFound           Kind = "not_found"
	KindUnknown            Kind = "unknown"
)

// Classification is the display form of an auth failure.
type Classification struct {
	Kind    Kind
	Message string
}

type classRule struct {
	kind     Kind
	patterns []string
	message  func(Flow) string
}

func fixed(msg string) func(Flow) string {
	return func(Flow) string { return msg }
}

// Order matters: the first rule with a matching pattern wins.
var classRules = []classRule{
	{
		kind:     KindInvalidCredentials,
		patterns: []string{"invalid_credentials", "invalid login"},
		message:  fixed("Email or password is incorrect. Please try again."),
	},
	{
		kind:     KindUnverifiedEmail,
		patterns: []string{"not verified", "confirm your email", "email_not_confirmed"},
		message:  fixed("Please verify your email before signing in."),
	},
	{
		kind:     KindRateLimited,
		patterns: []string{"too many requests", "rate limit", "rate_limit"},
		message:  fixed("Too many attempts. Please try again later."),
	},
	{
		kind:     KindNetworkError,
		patterns: []string{"network"},
		message:  fixed("Network error. Please check your connection and try again."),
	},
	{
		kind:     KindUserCancelled,
		patterns: []string{"popup_closed_by_user", "cancelled", "access_denied"},
		message:  fixed("Authentication was cancelled."),
	},
	{
		kind:     KindAccountConflict,
		patterns: []string{"account_exists"},
		message:  fixed("An account with this email already exists using a different sign-in method."),
	},
	{
		kind:     KindNotFound,
		patterns: []string{"does not exist", "not found"},
		message: func(f Flow) string {
			if f == FlowSignUp {
				return "Unable to create account with this email."
			}
			return "No account found with this email address."
		},
	},
}

func unknownMessage(f Flow) string {
	switch f {
	case FlowSignUp:
		return "An unexpected error occurred during sign up."
	case FlowMagicLink:
		return "Failed to send magic link. Please try again."
	case FlowSocial:
		return "Failed to authenticate. Please try again."
	default:
		return "An unexpected error occurred during sign in."
	}
}

// Classify maps err to a Kind and a message safe to show to the user.
// It is total: a nil or unrecognised error yields KindUnknown.
func Classify(err error, flow Flow) Classification {
	h := haystack(err)
	if h != "" {
		for _, r := range classRules {
			for _, p := range r.patterns {
				if strings.Contains(h, p) {
					return Classification{Kind: r.kind, Message: r.message(flow)}
				}
			}
		}
	}
	return Classification{Kind: KindUnknown, Message: unknownMessage(flow)}
}

// ClassifyText classifies a bare provider message, e.g. an OAuth
// error_description passed back on the callback URL.
func ClassifyText(msg string, flow Flow) Classification {
	if msg == "" {
		return Classify(nil, flow)
	}
	return Classify(errors.New(msg), flow)
}

func haystack(err error) string {
	if err == nil {
		return ""
	}
	var perr *gotrue.Error
	if errors.As(err, &perr) {
		h := perr.Code + " " + perr.Message
		if perr.Status == http.StatusTooManyRequests {
			h += " too many requests"
		}
		return strings.ToLower(h)
	}
	return strings.ToLower(err.Error())
}
