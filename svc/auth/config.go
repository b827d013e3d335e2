package auth

import "time"

// Config is the env-driven store configuration.
type Config struct {
	// SiteURL is the public origin used to build callback URLs.
	SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`
	// InitTimeout bounds the initial provider round-trip of a store.
	InitTimeout time.Duration `env:"AUTH_INIT_TIMEOUT" envDefault:"5s"`
	// RefreshMargin is how long before expiry access tokens are refreshed.
	RefreshMargin time.Duration `env:"AUTH_REFRESH_MARGIN" envDefault:"60s"`
	// OAuthProviders lists the social providers offered to users.
	OAuthProviders []string `env:"AUTH_OAUTH_PROVIDERS" envDefault:"google,github" envSeparator:","`
	// MaxStores caps the number of live per-session stores.
	MaxStores int `env:"AUTH_MAX_STORES" envDefault:"10000"`
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		SiteURL:        "http://localhost:8080",
		InitTimeout:    5 * time.Second,
		RefreshMargin:  time.Minute,
		OAuthProviders: []string{OAuthProviderGoogle, OAuthProviderGithub},
		MaxStores:      10000,
	}
}
