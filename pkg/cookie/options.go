package cookie

import (
	"net/http"
	"strings"
)

// Options are the attributes written with each cookie.
type Options struct {
	Path     string
	Domain   string
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite http.SameSite
}

type Option func(*Options)

func WithPath(path string) Option {
	return func(o *Options) { o.Path = path }
}

func WithDomain(domain string) Option {
	return func(o *Options) { o.Domain = domain }
}

func WithMaxAge(seconds int) Option {
	return func(o *Options) { o.MaxAge = seconds }
}

func WithSecure(secure bool) Option {
	return func(o *Options) { o.Secure = secure }
}

func WithHTTPOnly(httpOnly bool) Option {
	return func(o *Options) { o.HttpOnly = httpOnly }
}

func WithSameSite(sameSite http.SameSite) Option {
	return func(o *Options) { o.SameSite = sameSite }
}

// Config is the env-driven cookie configuration. COOKIE_SECRETS is a
// comma-separated list, newest first.
type Config struct {
	Secrets string `env:"COOKIE_SECRETS,required"`
	Path    string `env:"COOKIE_PATH" envDefault:"/"`
	Domain  string `env:"COOKIE_DOMAIN"`
	Secure  bool   `env:"COOKIE_SECURE" envDefault:"true"`
}

// NewFromConfig creates a Manager from cfg.
func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	var secrets []string
	for s := range strings.SplitSeq(cfg.Secrets, ",") {
		if s = strings.TrimSpace(s); s != "" {
			secrets = append(secrets, s)
		}
	}

	base := []Option{WithSecure(cfg.Secure)}
	if cfg.Path != "" {
		base = append(base, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	return New(secrets, append(base, opts...)...)
}
