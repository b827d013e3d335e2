package session

import (
	"time"

	"github.com/dmitrymomot/authkit/pkg/fingerprint"
)

// Config holds session configuration.
type Config struct {
	CookieName string `env:"SESSION_COOKIE_NAME" envDefault:"sid"`
	// IdleTimeout expires sessions without activity.
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"72h"`
	// MaxLifetime caps a session regardless of activity.
	MaxLifetime time.Duration `env:"SESSION_MAX_LIFETIME" envDefault:"720h"`
	// TouchThreshold is the minimum interval between activity writes.
	TouchThreshold time.Duration `env:"SESSION_TOUCH_THRESHOLD" envDefault:"5m"`
	// CleanupInterval applies to MemoryStore only. Zero disables cleanup.
	CleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"5m"`
	// BindDevice drops sessions presented by a different browser.
	BindDevice bool `env:"SESSION_BIND_DEVICE" envDefault:"true"`
	// BindIP also drops sessions presented from a different client IP.
	BindIP bool `env:"SESSION_BIND_IP" envDefault:"false"`
}

// DefaultConfig returns the defaults used when no Config is supplied.
func DefaultConfig() Config {
	return Config{
		CookieName:      "sid",
		IdleTimeout:     72 * time.Hour,
		MaxLifetime:     30 * 24 * time.Hour,
		TouchThreshold:  5 * time.Minute,
		CleanupInterval: 5 * time.Minute,
		BindDevice:      true,
	}
}

func (c Config) fingerprintMode() fingerprint.Mode {
	if c.BindIP {
		return fingerprint.Strict
	}
	return fingerprint.Browser
}

func (c Config) expiry(createdAt, now time.Time) time.Time {
	idle := now.Add(c.IdleTimeout)
	if limit := createdAt.Add(c.MaxLifetime); limit.Before(idle) {
		return limit
	}
	return idle
}
