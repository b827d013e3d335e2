package account

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/authkit/handler"
	"github.com/dmitrymomot/authkit/pkg/binder"
	"github.com/dmitrymomot/authkit/pkg/cache"
	"github.com/dmitrymomot/authkit/pkg/clientip"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/toast"
	"github.com/dmitrymomot/authkit/svc/auth"
	"github.com/dmitrymomot/authkit/svc/authform"
)

// ErrNoSession is returned by handlers mounted outside the session middleware.
var ErrNoSession = errors.New("account: no session in request context")

type formKey struct {
	session uuid.UUID
	mode    authform.Mode
}

// Service serves the authentication screens. Every browser session owns
// one auth.Store (through the registry), one toast queue and one form per
// mounted sign-in or sign-up screen.
type Service struct {
	cfg          Config
	sessions     *session.Manager
	stores       *auth.Registry
	profiles     auth.ProfileRepository
	providers    []string
	limiter      authform.Limiter
	views        *Views
	errorHandler handler.ErrorHandler[handler.Context]
	logger       *slog.Logger
	now          func() time.Time
	toastClock   toast.Clock

	forms  *cache.LRU[formKey, *authform.Form]
	toasts *cache.LRU[uuid.UUID, *toast.Queue]
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithViews overrides the built-in views.
func WithViews(v *Views) Option {
	return func(s *Service) {
		s.views = v
	}
}

// WithProfiles shows the stored full name on the dashboard.
func WithProfiles(r auth.ProfileRepository) Option {
	return func(s *Service) {
		s.profiles = r
	}
}

// WithProviders lists the social providers offered on the forms.
func WithProviders(providers ...string) Option {
	return func(s *Service) {
		s.providers = providers
	}
}

// WithLimiter throttles form submissions per client IP.
func WithLimiter(l authform.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

// WithErrorHandler replaces the default error handler.
func WithErrorHandler(h handler.ErrorHandler[handler.Context]) Option {
	return func(s *Service) {
		s.errorHandler = h
	}
}

// WithClock overrides the time source of forms.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithToastClock overrides the timer source of toast queues.
func WithToastClock(c toast.Clock) Option {
	return func(s *Service) {
		s.toastClock = c
	}
}

// New creates the service. sessions and stores must also wrap the router
// returned by Handle; Handle installs both middlewares itself.
func New(cfg Config, sessions *session.Manager, stores *auth.Registry, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg.withDefaults(),
		sessions: sessions,
		stores:   stores,
		logger:   logger.Noop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.views = s.views.withDefaults()
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.logger, handler.ErrorHandlerConfig{
			ErrorPage:   s.views.ErrorPage,
			ErrorToast:  s.views.ErrorToast,
			ToastTarget: TargetToasts,
		})
	}

	s.forms = cache.New[formKey, *authform.Form](s.cfg.MaxForms)
	s.toasts = cache.New[uuid.UUID, *toast.Queue](s.cfg.MaxToastQueues,
		cache.WithEvictCallback(func(_ uuid.UUID, q *toast.Queue) { q.Close() }),
	)
	return s
}

// wrap binds R from the query string and the form body.
func wrap[R any](s *Service, h handler.HandlerFunc[handler.Context, R]) http.HandlerFunc {
	return handler.Wrap(h,
		handler.WithBinders[handler.Context, R](binder.Query(), binder.Form()),
		handler.WithErrorHandler[handler.Context, R](s.errorHandler),
	)
}

// EmptyRequest is bound by handlers without inputs.
type EmptyRequest struct{}

func (s *Service) queue(sess *session.Session) *toast.Queue {
	return s.toasts.GetOrCreate(sess.ID, func() *toast.Queue {
		if s.toastClock != nil {
			return toast.NewQueue(toast.WithClock(s.toastClock))
		}
		return toast.NewQueue()
	})
}

func (s *Service) entries(sess *session.Session) []toast.Entry {
	return s.queue(sess).Entries()
}

// form returns the form of mode for sess. fresh mounts a new form,
// discarding the previous draft.
func (s *Service) form(r *http.Request, sess *session.Session, st *auth.Store, mode authform.Mode, fresh bool) *authform.Form {
	key := formKey{session: sess.ID, mode: mode}
	create := func() *authform.Form {
		opts := []authform.Option{authform.WithClock(s.now), authform.WithLogger(s.logger)}
		if s.limiter != nil {
			opts = append(opts, authform.WithLimiter(s.limiter, "auth:"+clientip.GetIP(r)))
		}
		return authform.New(mode, st, s.queue(sess), opts...)
	}
	if fresh {
		f := create()
		s.forms.Put(key, f)
		return f
	}
	return s.forms.GetOrCreate(key, create)
}

func (s *Service) discardForms(sess *session.Session) {
	s.forms.Remove(formKey{session: sess.ID, mode: authform.ModeSignIn})
	s.forms.Remove(formKey{session: sess.ID, mode: authform.ModeSignUp})
}

// current returns the session and store of the request.
func current(ctx handler.Context) (*session.Session, *auth.Store, error) {
	sess := session.FromContext(ctx)
	st := auth.StoreFromContext(ctx)
	if sess == nil || st == nil {
		return nil, nil, ErrNoSession
	}
	return sess, st, nil
}

// persist writes the store's tokens into the session. rotate issues a new
// session token, as required whenever the signed-in identity changes.
func (s *Service) persist(ctx handler.Context, sess *session.Session, st *auth.Store, rotate bool) error {
	auth.SaveTokens(sess, st.Tokens())
	if !rotate {
		return s.sessions.Save(ctx, sess)
	}
	return s.sessions.Rotate(ctx, ctx.ResponseWriter(), sess)
}
