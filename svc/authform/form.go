package authform

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/statemachine"
	"github.com/dmitrymomot/authkit/pkg/toast"
	"github.com/dmitrymomot/authkit/pkg/validator"
	"github.com/dmitrymomot/authkit/svc/auth"
)

// ResendCooldown is how long the magic-link resend stays disabled.
const ResendCooldown = 60 * time.Second

// ErrRateLimited is the error reported when the limiter rejects a submit.
var ErrRateLimited = errors.New("too many requests")

// Mode selects which screen a form drives.
type Mode string

const (
	ModeSignIn Mode = "signin"
	ModeSignUp Mode = "signup"
)

// Field names a draft input.
type Field string

const (
	FieldEmail    Field = "email"
	FieldPassword Field = "password"
	FieldName     Field = "name"
)

// Validation messages.
const (
	MsgRequired     = "This field is required"
	MsgInvalidEmail = "Please enter a valid email address"
	MsgWeakPassword = "Please ensure your password meets all the requirements"
	MsgShortName    = "Name must be at least 2 characters"
)

// State is the orchestration state of a form.
type State = statemachine.StringState

const (
	StateEditing       State = "editing"
	StateValidating    State = "validating"
	StateSubmitting    State = "submitting"
	StateMagicLinkSent State = "magic_link_sent"
	StateSuccess       State = "success"
)

const (
	evValidate statemachine.StringEvent = "validate"
	evInvalid  statemachine.StringEvent = "invalid"
	evSubmit   statemachine.StringEvent = "submit"
	evFail     statemachine.StringEvent = "fail"
	evSucceed  statemachine.StringEvent = "succeed"
	evLinkSent statemachine.StringEvent = "link_sent"
	evEdit     statemachine.StringEvent = "edit"
)

// Draft is the current input of a form.
type Draft struct {
	Email    string
	Password string
	Name     string
}

// Outcome tells the screen what to do after an action.
type Outcome struct {
	// Redirect is the navigation target, or "" to stay on the screen.
	Redirect string
	// Kind is the classified failure, or "" on success.
	Kind auth.Kind
	// SignedIn is set when the action established a principal, even if it
	// chose no redirect.
	SignedIn bool
}

// Authenticator is the subset of *auth.Store a form drives.
type Authenticator interface {
	SignIn(ctx context.Context, email, password string) auth.Result
	SignUp(ctx context.Context, email, password, displayName string) auth.Result
	SignInWithMagicLink(ctx context.Context, email string, opts auth.MagicLinkOptions) auth.Result
	SignInWithOAuth(ctx context.Context, provider string) auth.Result
}

// Notifier receives the toast of every action.
type Notifier interface {
	Dispatch(e toast.Entry) string
}

// Limiter throttles submissions.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Form orchestrates one sign-in or sign-up screen: field validation,
// password or magic-link submission, the resend countdown and exactly one
// toast per action. Provider calls never run under the form lock.
type Form struct {
	mode       Mode
	redirect   string
	auth       Authenticator
	toasts     Notifier
	limiter    Limiter
	limiterKey string
	now        func() time.Time
	logger     *slog.Logger

	sm statemachine.StateMachine

	mu         sync.Mutex
	draft      Draft
	errors     map[Field]string
	magicLink  bool
	linkSent   bool
	inFlight   bool
	resendFrom time.Time
}

// Option configures a Form.
type Option func(*Form)

// WithRedirect sets the navigation target after a successful submit.
func WithRedirect(path string) Option {
	return func(f *Form) {
		f.redirect = path
	}
}

// WithLimiter throttles submissions per key.
func WithLimiter(l Limiter, key string) Option {
	return func(f *Form) {
		f.limiter = l
		f.limiterKey = key
	}
}

// WithClock overrides the time source of the resend countdown.
func WithClock(now func() time.Time) Option {
	return func(f *Form) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Form) {
		if l != nil {
			f.logger = l
		}
	}
}

// New creates a form in the editing state.
func New(mode Mode, a Authenticator, toasts Notifier, opts ...Option) *Form {
	f := &Form{
		mode:   mode,
		auth:   a,
		toasts: toasts,
		now:    time.Now,
		logger: logger.Noop(),
		errors: make(map[Field]string),
	}
	for _, opt := range opts {
		opt(f)
	}

	f.sm = statemachine.MustNew(StateEditing,
		statemachine.WithTransitionFrom([]statemachine.State{StateEditing, StateMagicLinkSent, StateSuccess}, StateValidating, evValidate),
		statemachine.WithTransition(StateValidating, StateEditing, evInvalid),
		statemachine.WithTransition(StateValidating, StateSubmitting, evSubmit),
		statemachine.WithTransition(StateSubmitting, StateEditing, evFail),
		statemachine.WithTransition(StateSubmitting, StateSuccess, evSucceed),
		statemachine.WithTransition(StateSubmitting, StateMagicLinkSent, evLinkSent),
		statemachine.WithTransition(statemachine.Any, StateEditing, evEdit),
	)
	return f
}

func (f *Form) fire(ev statemachine.StringEvent) {
	if err := f.sm.Fire(context.Background(), ev, nil); err != nil {
		f.logger.Debug("form transition ignored",
			logger.Component("authform"), logger.Event(ev.Name()), logger.Error(err))
	}
}

// Mode returns the screen mode.
func (f *Form) Mode() Mode { return f.mode }

// State returns the current orchestration state.
func (f *Form) State() State {
	st, _ := f.sm.Current().(State)
	return st
}

// Set replaces the field values. Field errors are kept until the next
// validation of each field.
func (f *Form) Set(d Draft) {
	f.mu.Lock()
	f.draft = d
	f.mu.Unlock()
}

// Draft returns the current field values.
func (f *Form) Draft() Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Errors returns a copy of the field errors.
func (f *Form) Errors() map[Field]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Field]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// MagicLinkMode reports whether the form submits magic links.
func (f *Form) MagicLinkMode() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.magicLink
}

// MagicLinkSent reports whether a link was sent since the last toggle.
func (f *Form) MagicLinkSent() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linkSent
}

// Busy reports whether a submission is in flight.
func (f *Form) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight
}

// Countdown returns the whole seconds left before a resend is allowed.
func (f *Form) Countdown() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.countdownLocked()
}

func (f *Form) countdownLocked() int {
	if !f.linkSent || f.resendFrom.IsZero() {
		return 0
	}
	left := ResendCooldown - f.now().Sub(f.resendFrom)
	if left <= 0 {
		return 0
	}
	return int(math.Ceil(left.Seconds()))
}

// CanResend reports whether Resend would fire.
func (f *Form) CanResend() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.linkSent && !f.inFlight && f.countdownLocked() == 0
}

// Blur validates a single field and returns its message, "" when valid.
func (f *Form) Blur(field Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.validateLocked(field)
}

func (f *Form) validateLocked(field Field) string {
	var msg string
	switch field {
	case FieldEmail:
		msg = firstError(validator.ApplyFirst(
			validator.Required(string(field), f.draft.Email).WithMessage(MsgRequired),
			validator.Email(string(field), f.draft.Email).WithMessage(MsgInvalidEmail),
		))
	case FieldPassword:
		rules := []validator.Rule{validator.Required(string(field), f.draft.Password).WithMessage(MsgRequired)}
		if f.mode == ModeSignUp {
			rules = append(rules, validator.StrongPassword(string(field), f.draft.Password).WithMessage(MsgWeakPassword))
		}
		msg = firstError(validator.ApplyFirst(rules...))
	case FieldName:
		if f.mode == ModeSignUp {
			name := strings.TrimSpace(f.draft.Name)
			msg = firstError(validator.ApplyFirst(
				validator.Required(string(field), name).WithMessage(MsgRequired),
				validator.MinLen(string(field), name, 2).WithMessage(MsgShortName),
			))
		}
	}

	if msg == "" {
		delete(f.errors, field)
	} else {
		f.errors[field] = msg
	}
	return msg
}

func firstError(err error) string {
	if ve := validator.ExtractValidationErrors(err); len(ve) > 0 {
		return ve[0].Message
	}
	return ""
}

// validateAllLocked runs every applicable validator in the fixed order
// email, password, name. Each field keeps its own message.
func (f *Form) validateAllLocked() bool {
	ok := f.validateLocked(FieldEmail) == ""
	if !f.magicLink {
		ok = f.validateLocked(FieldPassword) == "" && ok
	}
	if f.mode == ModeSignUp {
		ok = f.validateLocked(FieldName) == "" && ok
	}
	return ok
}

// ToggleAuthMethod flips between password and magic-link submission and
// clears field errors and the sent flag.
func (f *Form) ToggleAuthMethod() {
	f.mu.Lock()
	f.magicLink = !f.magicLink
	f.linkSent = false
	f.resendFrom = time.Time{}
	clear(f.errors)
	f.mu.Unlock()
	f.fire(evEdit)
}

// begin validates and marks the form in flight. It returns false when the
// submission must not proceed.
func (f *Form) begin(validate func() bool) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inFlight {
		return false
	}
	f.fire(evValidate)
	if !validate() {
		f.fire(evInvalid)
		return false
	}
	f.inFlight = true
	f.fire(evSubmit)
	return true
}

func (f *Form) finish(ev statemachine.StringEvent, update func()) {
	f.mu.Lock()
	f.inFlight = false
	if update != nil {
		update()
	}
	f.mu.Unlock()
	f.fire(ev)
}

func (f *Form) allowed(ctx context.Context) bool {
	return f.limiter == nil || f.limiter.Allow(ctx, f.limiterKey)
}

func (f *Form) fail(title string, err error, flow auth.Flow) Outcome {
	c := auth.Classify(err, flow)
	f.toasts.Dispatch(toast.Entry{Title: title, Description: c.Message, Variant: toast.VariantDestructive})
	return Outcome{Kind: c.Kind}
}

func failureTitle(kind auth.Kind, mode Mode) string {
	if kind != auth.KindInvalidCredentials {
		return "Error"
	}
	if mode == ModeSignUp {
		return "Registration Failed"
	}
	return "Authentication Failed"
}

// HandleSubmit validates the draft and signs in or up. In magic-link mode
// it sends a link instead. Exactly one toast is dispatched unless
// validation fails or a submission is already in flight.
func (f *Form) HandleSubmit(ctx context.Context) Outcome {
	if f.MagicLinkMode() {
		return f.sendMagicLink(ctx, false)
	}

	if !f.begin(f.validateAllLocked) {
		return Outcome{}
	}
	d := f.Draft()

	flow := auth.FlowSignIn
	if f.mode == ModeSignUp {
		flow = auth.FlowSignUp
	}

	if !f.allowed(ctx) {
		f.finish(evFail, nil)
		return f.fail(failureTitle(auth.KindRateLimited, f.mode), ErrRateLimited, flow)
	}

	var res auth.Result
	if f.mode == ModeSignUp {
		res = f.auth.SignUp(ctx, d.Email, d.Password, d.Name)
	} else {
		res = f.auth.SignIn(ctx, d.Email, d.Password)
	}

	if res.Err != nil {
		f.finish(evFail, nil)
		c := auth.Classify(res.Err, flow)
		return f.fail(failureTitle(c.Kind, f.mode), res.Err, flow)
	}

	f.finish(evSucceed, func() { f.draft.Password = "" })

	if f.mode == ModeSignUp {
		f.toasts.Dispatch(toast.Entry{
			Title:       "Account Created",
			Description: "Please check your email to confirm your account.",
			Variant:     toast.VariantSuccess,
		})
		out := Outcome{Redirect: res.Redirect, SignedIn: res.Principal != nil}
		if f.redirect != "" {
			out.Redirect = f.redirect
		}
		return out
	}

	f.toasts.Dispatch(toast.Entry{
		Title:       "Welcome Back",
		Description: "Logged in successfully!",
		Variant:     toast.VariantSuccess,
	})
	out := Outcome{Redirect: res.Redirect, SignedIn: res.Principal != nil}
	if f.redirect != "" {
		out.Redirect = f.redirect
	}
	return out
}

// Resend sends the magic link again. It is suppressed (fired=false) while
// the countdown runs or a send is in flight; a fired resend restarts the
// countdown.
func (f *Form) Resend(ctx context.Context) (out Outcome, fired bool) {
	if !f.CanResend() {
		return Outcome{}, false
	}
	return f.sendMagicLink(ctx, true), true
}

func (f *Form) sendMagicLink(ctx context.Context, resend bool) Outcome {
	validate := func() bool {
		if f.linkSent && f.countdownLocked() > 0 {
			return false
		}
		if f.validateLocked(FieldEmail) != "" {
			return false
		}
		return f.mode != ModeSignUp || f.validateLocked(FieldName) == ""
	}
	if !f.begin(validate) {
		return Outcome{}
	}
	d := f.Draft()

	if !f.allowed(ctx) {
		f.finish(evFail, nil)
		return f.fail("Magic Link Failed", ErrRateLimited, auth.FlowMagicLink)
	}

	opts := auth.MagicLinkOptions{IsSignUp: f.mode == ModeSignUp}
	if opts.IsSignUp {
		if name := strings.TrimSpace(d.Name); name != "" {
			opts.Metadata = map[string]any{"full_name": name}
		}
	}

	res := f.auth.SignInWithMagicLink(ctx, d.Email, opts)
	if res.Err != nil {
		f.logger.WarnContext(ctx, "magic link error",
			logger.Component("authform"), logger.Email(d.Email), logger.Error(res.Err))
		if resend {
			f.finish(evLinkSent, nil)
		} else {
			f.finish(evFail, nil)
		}
		return f.fail("Magic Link Failed", res.Err, auth.FlowMagicLink)
	}

	f.finish(evLinkSent, func() {
		f.linkSent = true
		f.resendFrom = f.now()
	})

	screen := "sign-in"
	if f.mode == ModeSignUp {
		screen = "sign-up"
	}
	f.toasts.Dispatch(toast.Entry{
		Title:       "Magic Link Sent",
		Description: "Check your email inbox for the " + screen + " link",
		Variant:     toast.VariantSuccess,
	})
	return Outcome{}
}

// HandleSocial starts an OAuth flow and returns the consent URL as the
// redirect. Failures are classified with the social flow.
func (f *Form) HandleSocial(ctx context.Context, provider string) Outcome {
	res := f.auth.SignInWithOAuth(ctx, provider)
	if res.Err != nil {
		return f.fail("Authentication Failed", res.Err, auth.FlowSocial)
	}
	return Outcome{Redirect: res.Redirect}
}
