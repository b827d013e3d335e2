// Package httpserver runs an http.Server until its context is cancelled or
// the process receives SIGINT/SIGTERM, then shuts it down gracefully.
// Request contexts derive from a base context that is cancelled at
// shutdown, so long-lived streams end instead of holding the drain open.
package httpserver

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

var (
	ErrStart    = errors.New("failed to start HTTP server")
	ErrShutdown = errors.New("failed to shutdown HTTP server gracefully")
)

type config struct {
	addr              string
	readHeaderTimeout time.Duration
	readTimeout       time.Duration
	writeTimeout      time.Duration
	idleTimeout       time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger
	listener          net.Listener
}

// Option configures the server.
type Option func(*config)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(c *config) {
		if addr != "" {
			c.addr = addr
		}
	}
}

// WithShutdownTimeout bounds graceful shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithListener serves on an existing listener instead of Addr.
func WithListener(l net.Listener) Option {
	return func(c *config) { c.listener = l }
}

// Server wraps http.Server with graceful shutdown.
type Server struct {
	cfg  *config
	mu   sync.Mutex
	srv  *http.Server
	stop context.CancelFunc
	once sync.Once
}

// New returns a configured Server.
func New(opts ...Option) *Server {
	cfg := &config{
		addr:              ":8080",
		readHeaderTimeout: 10 * time.Second,
		shutdownTimeout:   10 * time.Second,
		logger:            logger.Noop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Server{cfg: cfg}
}

// Run serves handler and blocks until shutdown.
func (s *Server) Run(ctx context.Context, handler http.Handler) error {
	base, cancelBase := context.WithCancel(context.WithoutCancel(ctx))

	s.mu.Lock()
	if s.srv != nil {
		s.mu.Unlock()
		cancelBase()
		return errors.Join(ErrStart, errors.New("server already running"))
	}
	s.srv = &http.Server{
		Addr:              s.cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: s.cfg.readHeaderTimeout,
		ReadTimeout:       s.cfg.readTimeout,
		WriteTimeout:      s.cfg.writeTimeout,
		IdleTimeout:       s.cfg.idleTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
		ErrorLog:          slog.NewLogLogger(s.cfg.logger.Handler(), slog.LevelWarn),
	}
	s.stop = cancelBase
	srv := s.srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.cfg.logger.Info("http server started", slog.String("addr", s.cfg.addr))
		if s.cfg.listener != nil {
			errCh <- srv.Serve(s.cfg.listener)
			return
		}
		errCh <- srv.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)

	var runErr error
	select {
	case <-ctx.Done():
	case <-signals:
	case runErr = <-errCh:
		cancelBase()
		if errors.Is(runErr, http.ErrServerClosed) {
			return nil
		}
		return errors.Join(ErrStart, runErr)
	}

	shutdownErr := s.Shutdown(context.Background())
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Join(ErrStart, err)
	}
	return shutdownErr
}

// Shutdown cancels in-flight request contexts and drains connections. It
// is safe to call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		srv, stop := s.srv, s.stop
		s.mu.Unlock()
		if srv == nil {
			return
		}

		stop()
		ctx, cancel := context.WithTimeout(ctx, s.cfg.shutdownTimeout)
		defer cancel()
		err = srv.Shutdown(ctx)
		s.cfg.logger.Info("http server stopped")
	})
	if err != nil {
		return errors.Join(ErrShutdown, err)
	}
	return nil
}
