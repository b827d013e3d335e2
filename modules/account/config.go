package account

import "time"

// Config holds the limits of the per-session state kept by the module.
type Config struct {
	// MaxForms caps the number of mounted sign-in and sign-up forms.
	MaxForms int `env:"ACCOUNT_MAX_FORMS" envDefault:"10000"`
	// MaxToastQueues caps the number of per-session toast queues.
	MaxToastQueues int `env:"ACCOUNT_MAX_TOAST_QUEUES" envDefault:"10000"`
	// CountdownTick is how often the resend countdown is pushed to the page.
	CountdownTick time.Duration `env:"ACCOUNT_COUNTDOWN_TICK" envDefault:"1s"`
}

// DefaultConfig returns the configuration used for zero values.
func DefaultConfig() Config {
	return Config{
		MaxForms:       10000,
		MaxToastQueues: 10000,
		CountdownTick:  time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxForms <= 0 {
		c.MaxForms = d.MaxForms
	}
	if c.MaxToastQueues <= 0 {
		c.MaxToastQueues = d.MaxToastQueues
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = d.CountdownTick
	}
	return c
}
