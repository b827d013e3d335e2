// Command authkit serves the sign-in, sign-up and password recovery screens
// in front of a hosted GoTrue-compatible auth service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authkit/db"
	"github.com/dmitrymomot/authkit/modules/account"
	"github.com/dmitrymomot/authkit/pkg/clientip"
	"github.com/dmitrymomot/authkit/pkg/config"
	"github.com/dmitrymomot/authkit/pkg/cookie"
	"github.com/dmitrymomot/authkit/pkg/environment"
	"github.com/dmitrymomot/authkit/pkg/gotrue"
	"github.com/dmitrymomot/authkit/pkg/httpserver"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/pg"
	"github.com/dmitrymomot/authkit/pkg/ratelimiter"
	"github.com/dmitrymomot/authkit/pkg/redis"
	"github.com/dmitrymomot/authkit/pkg/requestid"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/svc/auth"
)

const serviceName = "authkit"

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	HTTP     httpserver.Config
	Cookie   cookie.Config
	Session  session.Config
	Postgres pg.Config
	Redis    redis.Config
	Provider gotrue.Config
	Auth     auth.Config
	Limits   ratelimiter.Config
	Account  account.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("authkit stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	env := environment.Parse(cfg.Env)
	logOpts := []logger.Option{
		logger.WithEnvironment(env, serviceName),
		logger.WithContextExtractors(
			requestid.LoggerExtractor(),
			clientip.LoggerExtractor(),
			environment.LoggerExtractor(),
		),
	}
	if cfg.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevel(logger.ParseLevel(cfg.LogLevel)))
	}
	if cfg.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(cfg.LogFormat)))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	var checks []httpserver.Check

	var profiles auth.ProfileRepository = auth.NewMemoryProfiles()
	if cfg.Postgres.Enabled() {
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()
		if err := pg.Migrate(ctx, pool, db.Migrations, db.MigrationsDir, cfg.Postgres, log); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		profiles = auth.NewPGProfiles(pool)
		checks = append(checks, httpserver.Check{Name: "postgres", Probe: pg.Healthcheck(pool)})
	} else {
		log.Warn("postgres is not configured, profiles are kept in memory")
	}

	var store session.Store
	if cfg.Redis.Enabled() {
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		store = session.NewRedisStore(client, "session:")
		checks = append(checks, httpserver.Check{Name: "redis", Probe: redis.Healthcheck(client)})
	} else {
		log.Warn("redis is not configured, sessions are kept in memory")
		ms := session.NewMemoryStore(cfg.Session.CleanupInterval)
		defer ms.Close()
		store = ms
	}

	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return fmt.Errorf("cookies: %w", err)
	}
	sessions := session.New(store, cookies, session.WithConfig(cfg.Session), session.WithLogger(log))

	provider, err := gotrue.NewFromConfig(cfg.Provider, gotrue.WithLogger(log))
	if err != nil {
		return fmt.Errorf("auth provider: %w", err)
	}
	stores := auth.NewRegistry(provider, cfg.Auth.MaxStores, log,
		auth.WithConfig(cfg.Auth),
		auth.WithProfiles(profiles),
		auth.WithLogger(log),
	)

	limiter, err := ratelimiter.New(cfg.Limits)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	oauthLimiter, err := ratelimiter.New(cfg.Limits)
	if err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	svc := account.New(cfg.Account, sessions, stores,
		account.WithLogger(log),
		account.WithProfiles(profiles),
		account.WithProviders(cfg.Auth.OAuthProviders...),
		account.WithLimiter(limiter),
	)

	r := chi.NewRouter()
	r.Use(
		requestid.Middleware,
		clientip.Middleware,
		environment.Middleware(env),
		limitPrefix("/auth/oauth/", ratelimiter.Middleware(oauthLimiter, ratelimiter.ByIP())),
	)
	r.Get("/healthz", httpserver.HealthCheckHandler(log, 5*time.Second, checks...))
	r.Mount("/", svc.Handle())

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	if err := srv.Run(ctx, r); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// limitPrefix applies mw to requests under prefix only.
func limitPrefix(prefix string, mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, prefix) {
				limited.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
