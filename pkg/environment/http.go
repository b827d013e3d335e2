package environment

import (
	"context"
	"log/slog"
	"net/http"
)

// LogKey is the attribute key LoggerExtractor writes.
const LogKey = "env"

// Middleware stores env on each request context so handlers and log
// records can read it with FromContext.
func Middleware(env Environment) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), env)))
		})
	}
}

// LoggerExtractor adds the request environment to slog records. Contexts
// without one are skipped.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		env := FromContext(ctx)
		if env == "" {
			return slog.Attr{}, false
		}
		return slog.String(LogKey, string(env)), true
	}
}
