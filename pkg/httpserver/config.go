package httpserver

import "time"

// Config is the env-driven server configuration. WriteTimeout defaults to
// zero because toast streams are long-lived.
type Config struct {
	Addr              string        `env:"HTTP_ADDR" envDefault:":8080"`
	ReadHeaderTimeout time.Duration `env:"HTTP_READ_HEADER_TIMEOUT" envDefault:"10s"`
	ReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"0s"`
	IdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// NewFromConfig creates a Server from cfg. Zero values keep defaults.
func NewFromConfig(cfg Config, opts ...Option) *Server {
	base := []Option{func(c *config) {
		if cfg.Addr != "" {
			c.addr = cfg.Addr
		}
		if cfg.ReadHeaderTimeout > 0 {
			c.readHeaderTimeout = cfg.ReadHeaderTimeout
		}
		c.readTimeout = cfg.ReadTimeout
		c.writeTimeout = cfg.WriteTimeout
		c.idleTimeout = cfg.IdleTimeout
		if cfg.ShutdownTimeout > 0 {
			c.shutdownTimeout = cfg.ShutdownTimeout
		}
	}}
	return New(append(base, opts...)...)
}
