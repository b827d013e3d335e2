// Package clientip resolves the originating client address of a request
// served behind reverse proxies. Headers are consulted in order
// (CF-Connecting-IP, DO-Connecting-IP, X-Forwarded-For, X-Real-IP) before
// falling back to RemoteAddr. The result keys per-client rate limits and
// appears in auth event logs.
package clientip

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

var proxyHeaders = []string{"CF-Connecting-IP", "DO-Connecting-IP"}

// GetIP returns the normalized client IP or "" when none is valid.
func GetIP(r *http.Request) string {
	if ip := FromContext(r.Context()); ip != "" {
		return ip
	}

	for _, h := range proxyHeaders {
		if ip := parseIP(r.Header.Get(h)); ip != "" {
			return ip
		}
	}

	// X-Forwarded-For can contain a chain; the first valid entry is the client.
	for ip := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if parsed := parseIP(ip); parsed != "" {
			return parsed
		}
	}

	if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return parseIP(r.RemoteAddr)
	}
	return parseIP(host)
}

func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}

type ctxKey struct{}

// WithContext stores a resolved client IP in ctx.
func WithContext(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKey{}, ip)
}

// FromContext returns the client IP stored by Middleware.
func FromContext(ctx context.Context) string {
	ip, _ := ctx.Value(ctxKey{}).(string)
	return ip
}

// Middleware resolves the client IP once and stores it in the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithContext(r.Context(), GetIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LoggerExtractor adds the client IP to log records.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if ip := FromContext(ctx); ip != "" {
			return slog.String("client_ip", ip), true
		}
		return slog.Attr{}, false
	}
}
