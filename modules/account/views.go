package account

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/toast"
	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// Element IDs patched by Datastar responses.
const (
	TargetAuthForm   = "#auth-form"
	TargetForgotForm = "#forgot-password-form"
	TargetResetForm  = "#reset-password-form"
	TargetToasts     = "#toast-list"
)

// AuthFormParams is the state of a sign-in or sign-up form.
type AuthFormParams struct {
	Mode      authform.Mode
	Action    string
	Email     string
	Name      string
	Errors    map[string]string
	MagicLink bool
	LinkSent  bool
	Busy      bool
	Countdown int
	CanResend bool
	Checklist []auth.CriterionStatus
	Providers []string
}

// AuthPageParams contains data for rendering the sign-in or sign-up page.
type AuthPageParams struct {
	Form   AuthFormParams
	Toasts []toast.Entry
}

// ForgotPasswordFormParams contains data for rendering the forgot password form.
type ForgotPasswordFormParams struct {
	Email string
	Error string
	// Sent replaces the form with the confirmation message.
	Sent    bool
	Message string
}

// ForgotPasswordPageParams contains data for rendering the forgot password page.
type ForgotPasswordPageParams struct {
	Form   ForgotPasswordFormParams
	Toasts []toast.Entry
}

// ResetPasswordFormParams contains data for rendering the reset password form.
type ResetPasswordFormParams struct {
	Errors    map[string]string
	Checklist []auth.CriterionStatus
}

// ResetPasswordPageParams contains data for rendering the reset password page.
type ResetPasswordPageParams struct {
	Form   ResetPasswordFormParams
	Toasts []toast.Entry
}

// DashboardPageParams contains data for rendering the dashboard.
type DashboardPageParams struct {
	Email        string
	Name         string
	LastSignInAt *time.Time
	Toasts       []toast.Entry
}

// HomePageParams contains data for rendering the landing page.
type HomePageParams struct {
	Authenticated bool
	Toasts        []toast.Entry
}

// Views renders every screen of the module. Any nil field falls back to
// the built-in view.
type Views struct {
	SignInPage func(AuthPageParams) templ.Component
	SignUpPage func(AuthPageParams) templ.Component
	AuthForm   func(AuthFormParams) templ.Component

	ForgotPasswordPage func(ForgotPasswordPageParams) templ.Component
	ForgotPasswordForm func(ForgotPasswordFormParams) templ.Component

	ResetPasswordPage func(ResetPasswordPageParams) templ.Component
	ResetPasswordForm func(ResetPasswordFormParams) templ.Component

	DashboardPage func(DashboardPageParams) templ.Component
	HomePage      func(HomePageParams) templ.Component
	LoadingPage   func() templ.Component
	Toasts        func([]toast.Entry) templ.Component

	ErrorPage  func(handler.ErrorPageParams) templ.Component
	ErrorToast func(handler.ErrorToastParams) templ.Component
}

// DefaultViews returns the built-in html/template views.
func DefaultViews() *Views {
	return &Views{
		SignInPage: func(p AuthPageParams) templ.Component { return render("signin_page", p) },
		SignUpPage: func(p AuthPageParams) templ.Component { return render("signup_page", p) },
		AuthForm:   func(p AuthFormParams) templ.Component { return render("auth_form", p) },

		ForgotPasswordPage: func(p ForgotPasswordPageParams) templ.Component { return render("forgot_page", p) },
		ForgotPasswordForm: func(p ForgotPasswordFormParams) templ.Component { return render("forgot_form", p) },

		ResetPasswordPage: func(p ResetPasswordPageParams) templ.Component { return render("reset_page", p) },
		ResetPasswordForm: func(p ResetPasswordFormParams) templ.Component { return render("reset_form", p) },

		DashboardPage: func(p DashboardPageParams) templ.Component { return render("dashboard_page", p) },
		HomePage:      func(p HomePageParams) templ.Component { return render("home_page", p) },
		LoadingPage:   func() templ.Component { return render("loading_page", nil) },
		Toasts:        func(e []toast.Entry) templ.Component { return render("toast_list", e) },

		ErrorPage:  func(p handler.ErrorPageParams) templ.Component { return render("error_page", p) },
		ErrorToast: func(p handler.ErrorToastParams) templ.Component { return render("error_toast", p) },
	}
}

func (v *Views) withDefaults() *Views {
	d := DefaultViews()
	if v == nil {
		return d
	}
	out := *v
	if out.SignInPage == nil {
		out.SignInPage = d.SignInPage
	}
	if out.SignUpPage == nil {
		out.SignUpPage = d.SignUpPage
	}
	if out.AuthForm == nil {
		out.AuthForm = d.AuthForm
	}
	if out.ForgotPasswordPage == nil {
		out.ForgotPasswordPage = d.ForgotPasswordPage
	}
	if out.ForgotPasswordForm == nil {
		out.ForgotPasswordForm = d.ForgotPasswordForm
	}
	if out.ResetPasswordPage == nil {
		out.ResetPasswordPage = d.ResetPasswordPage
	}
	if out.ResetPasswordForm == nil {
		out.ResetPasswordForm = d.ResetPasswordForm
	}
	if out.DashboardPage == nil {
		out.DashboardPage = d.DashboardPage
	}
	if out.HomePage == nil {
		out.HomePage = d.HomePage
	}
	if out.LoadingPage == nil {
		out.LoadingPage = d.LoadingPage
	}
	if out.Toasts == nil {
		out.Toasts = d.Toasts
	}
	if out.ErrorPage == nil {
		out.ErrorPage = d.ErrorPage
	}
	if out.ErrorToast == nil {
		out.ErrorToast = d.ErrorToast
	}
	return &out
}

func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		return pages.ExecuteTemplate(w, name, data)
	})
}

// FormatCountdown renders seconds as m:ss.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

var pages = template.Must(template.New("account").Funcs(template.FuncMap{
	"countdown": FormatCountdown,
	"since": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "Never"
		}
		return t.UTC().Format("Jan 2, 2006 15:04 MST")
	},
	"providerLabel": func(p string) string {
		switch p {
		case auth.OAuthProviderGoogle:
			return "Google"
		case auth.OAuthProviderGithub:
			return "GitHub"
		}
		return p
	},
}).Parse(layoutTemplates + authTemplates + passwordTemplates + miscTemplates))

const layoutTemplates = `
{{define "head"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
</head>
<body>
{{end}}

{{define "foot"}}
</body>
</html>
{{end}}

{{define "toasts"}}<div id="toasts" data-init="@get('/toasts')" aria-live="polite">
{{template "toast_list" .}}
</div>{{end}}

{{define "toast_list"}}<div id="toast-list">
{{range .}}<div class="toast toast-{{.Variant}}" data-open="{{.Open}}" role="status">
<strong>{{.Title}}</strong>{{if .Description}}<p>{{.Description}}</p>{{end}}
<button type="button" aria-label="Dismiss" data-on:click="@post('/toasts/{{.ID}}/dismiss')">&times;</button>
</div>{{end}}
</div>{{end}}
`

const authTemplates = `
{{define "signin_page"}}{{template "head" "Sign in"}}
<main>
<h1>Welcome back</h1>
<p>Sign in to your account</p>
{{template "auth_form" .Form}}
<p>Don't have an account? <a href="/sign-up">Sign up</a></p>
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "signup_page"}}{{template "head" "Create an account"}}
<main>
<h1>Create an account</h1>
<p>Enter your details to get started</p>
{{template "auth_form" .Form}}
<p>Already have an account? <a href="/sign-in">Sign in</a></p>
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "auth_form"}}<div id="auth-form">
{{if .LinkSent}}
<section class="magic-link-sent">
<h2>Check your email</h2>
<p>We've sent a magic link to:</p>
<p><strong>{{.Email}}</strong></p>
<p>The link will expire in 24 hours</p>
{{if .CanResend}}
<form method="post" action="{{.Action}}/resend" data-on:submit__prevent="@post('{{.Action}}/resend', {contentType: 'form'})">
<button type="submit">Resend magic link</button>
</form>
{{else}}
<p data-signals:countdown="'{{countdown .Countdown}}'" data-init="@get('{{.Action}}/countdown')">Resend available in <span id="countdown" data-text="$countdown">{{countdown .Countdown}}</span></p>
{{end}}
<form method="post" action="{{.Action}}/method" data-on:submit__prevent="@post('{{.Action}}/method', {contentType: 'form'})">
<button type="submit">Use password instead</button>
</form>
</section>
{{else}}
<form method="post" action="{{.Action}}" novalidate data-on:submit__prevent="@post('{{.Action}}', {contentType: 'form'})">
{{if eq .Mode "signup"}}
<label for="name">Full name</label>
<input id="name" name="name" type="text" autocomplete="name" value="{{.Name}}"
 data-on:blur="@post('{{.Action}}/validate?field=name', {contentType: 'form'})">
{{with index .Errors "name"}}<p class="field-error">{{.}}</p>{{end}}
{{end}}
<label for="email">Email</label>
<input id="email" name="email" type="email" autocomplete="email" value="{{.Email}}"
 data-on:blur="@post('{{.Action}}/validate?field=email', {contentType: 'form'})">
{{with index .Errors "email"}}<p class="field-error">{{.}}</p>{{end}}
{{if not .MagicLink}}
<label for="password">Password</label>
<input id="password" name="password" type="password" autocomplete="{{if eq .Mode "signup"}}new-password{{else}}current-password{{end}}"
 data-on:blur="@post('{{.Action}}/validate?field=password', {contentType: 'form'})">
{{with index .Errors "password"}}<p class="field-error">{{.}}</p>{{end}}
{{if .Checklist}}<ul class="password-checklist">
{{range .Checklist}}<li data-met="{{.Met}}">{{.Label}}</li>{{end}}
</ul>{{end}}
{{if eq .Mode "signin"}}<a href="/forgot-password">Forgot password?</a>{{end}}
{{end}}
<button type="submit" {{if .Busy}}disabled{{end}}>
{{if .MagicLink}}Send magic link{{else if eq .Mode "signup"}}Create account{{else}}Sign in{{end}}
</button>
</form>
<form method="post" action="{{.Action}}/method" data-on:submit__prevent="@post('{{.Action}}/method', {contentType: 'form'})">
<button type="submit">{{if .MagicLink}}Use password instead{{else}}Use magic link instead{{end}}</button>
</form>
{{if .Providers}}<div class="social">
<p>Or continue with</p>
{{$mode := .Mode}}{{range .Providers}}<a href="/auth/oauth/{{.}}?mode={{$mode}}">{{providerLabel .}}</a>
{{end}}</div>{{end}}
{{end}}
</div>{{end}}
`

const passwordTemplates = `
{{define "forgot_page"}}{{template "head" "Forgot password"}}
<main>
<h1>Forgot your password?</h1>
<p>Enter your email and we'll send you a reset link</p>
{{template "forgot_form" .Form}}
<p><a href="/sign-in">Back to sign in</a></p>
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "forgot_form"}}<div id="forgot-password-form">
{{if .Sent}}
<section>
<h2>Check Your Email</h2>
<p>{{.Message}}</p>
</section>
{{else}}
<form method="post" action="/forgot-password" novalidate data-on:submit__prevent="@post('/forgot-password', {contentType: 'form'})">
<label for="email">Email</label>
<input id="email" name="email" type="email" autocomplete="email" value="{{.Email}}">
{{with .Error}}<p class="field-error">{{.}}</p>{{end}}
<button type="submit">Send reset link</button>
</form>
{{end}}
</div>{{end}}

{{define "reset_page"}}{{template "head" "Reset password"}}
<main>
<h1>Reset your password</h1>
<p>Enter your new password below</p>
{{template "reset_form" .Form}}
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "reset_form"}}<div id="reset-password-form">
<form method="post" action="/reset-password" novalidate data-on:submit__prevent="@post('/reset-password', {contentType: 'form'})">
<label for="password">New password</label>
<input id="password" name="password" type="password" autocomplete="new-password"
 data-on:blur="@post('/reset-password/validate', {contentType: 'form'})">
{{with index .Errors "password"}}<p class="field-error">{{.}}</p>{{end}}
{{if .Checklist}}<ul class="password-checklist">
{{range .Checklist}}<li data-met="{{.Met}}">{{.Label}}</li>{{end}}
</ul>{{end}}
<label for="confirm_password">Confirm password</label>
<input id="confirm_password" name="confirm_password" type="password" autocomplete="new-password">
{{with index .Errors "confirm_password"}}<p class="field-error">{{.}}</p>{{end}}
<button type="submit">Reset password</button>
</form>
</div>{{end}}
`

const miscTemplates = `
{{define "home_page"}}{{template "head" "Welcome"}}
<main>
<h1>Welcome</h1>
{{if .Authenticated}}<a href="/dashboard">Go to dashboard</a>
{{else}}<a href="/sign-in">Sign in</a> <a href="/sign-up">Sign up</a>{{end}}
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "dashboard_page"}}{{template "head" "Dashboard"}}
<main>
<h1>Dashboard</h1>
<dl>
<dt>Email</dt><dd>{{.Email}}</dd>
<dt>Name</dt><dd>{{if .Name}}{{.Name}}{{else}}Not set{{end}}</dd>
<dt>Last sign in</dt><dd>{{since .LastSignInAt}}</dd>
</dl>
<form method="post" action="/sign-out" data-on:submit__prevent="@post('/sign-out', {contentType: 'form'})">
<button type="submit">Sign out</button>
</form>
</main>
{{template "toasts" .Toasts}}
{{template "foot"}}{{end}}

{{define "loading_page"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="1">
<title>Loading</title>
</head>
<body><main aria-busy="true"><p>Loading...</p></main></body>
</html>{{end}}

{{define "error_page"}}{{template "head" .Title}}
<main>
<h1>{{.StatusCode}}</h1>
<p>{{.Error}}</p>
{{with .RequestID}}<p><small>Request ID: {{.}}</small></p>{{end}}
<a href="/">Go home</a>
</main>
{{template "foot"}}{{end}}

{{define "error_toast"}}<div class="toast toast-destructive" role="alert">
<strong>{{.Title}}</strong><p>{{.Message}}</p>
</div>{{end}}
`
