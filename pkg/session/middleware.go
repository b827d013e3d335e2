package session

import (
	"context"
	"net/http"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// Middleware loads the session into the request context and saves changed
// values once the handler returns. Handlers that need the session persisted
// before writing a response call Save themselves.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r.Context(), w, r)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "failed to load session",
				logger.Component("session"),
				logger.Error(err),
			)
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), s)))

		if err := m.Save(context.WithoutCancel(r.Context()), s); err != nil {
			m.logger.ErrorContext(r.Context(), "failed to save session",
				logger.Component("session"),
				logger.SessionID(s.ID.String()),
				logger.Error(err),
			)
		}
	})
}
