// Package ratelimiter throttles requests per key (client IP, e-mail, ...)
// with token buckets from golang.org/x/time/rate. Buckets live in a bounded
// LRU so an attacker rotating keys cannot grow memory without limit.
package ratelimiter

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/time/rate"

	"github.com/dmitrymomot/authkit/pkg/cache"
)

// ErrInvalidConfig indicates that the provided configuration is invalid.
var ErrInvalidConfig = errors.New("ratelimiter: invalid configuration")

// Config defines the bucket shape shared by every key.
type Config struct {
	RequestsPerSecond float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"0.2"` // Sustained refill rate.
	Burst             int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"` // Bucket capacity.
	MaxKeys           int     `env:"AUTH_RATE_LIMIT_MAX_KEYS" envDefault:"10000"`
}

func (c Config) validate() error {
	if c.RequestsPerSecond <= 0 || math.IsInf(c.RequestsPerSecond, 0) || c.Burst <= 0 || c.MaxKeys <= 0 {
		return ErrInvalidConfig
	}
	return nil
}

// Result describes a single rate-limit decision.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter hands out one token bucket per key.
type Limiter struct {
	cfg     Config
	buckets *cache.LRU[string, *rate.Limiter]
	now     func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Limiter from cfg.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		cfg:     cfg,
		buckets: cache.New[string, *rate.Limiter](cfg.MaxKeys),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Check consumes one token for key. An empty key is always allowed.
func (l *Limiter) Check(key string) Result {
	if key == "" {
		return Result{Allowed: true, Limit: l.cfg.Burst, Remaining: l.cfg.Burst}
	}

	bucket := l.buckets.GetOrCreate(key, func() *rate.Limiter {
		return rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
	})

	now := l.now()
	r := bucket.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Result{Limit: l.cfg.Burst, RetryAfter: delay}
	}
	return Result{
		Allowed:   true,
		Limit:     l.cfg.Burst,
		Remaining: max(0, int(bucket.TokensAt(now))),
	}
}

// Allow reports whether key may proceed. The context is accepted for
// interface compatibility with callers that throttle remote calls.
func (l *Limiter) Allow(_ context.Context, key string) bool {
	return l.Check(key).Allowed
}

// Reset forgets the bucket for key.
func (l *Limiter) Reset(key string) {
	l.buckets.Remove(key)
}
