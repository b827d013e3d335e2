package logger

import (
	"context"
	"log/slog"
	"slices"
	"strings"
)

// ContextExtractor extracts a slog attribute from context.
type ContextExtractor func(ctx context.Context) (slog.Attr, bool)

// secretKeys are attribute keys whose values are replaced before output.
var secretKeys = []string{"password", "access_token", "refresh_token", "code_verifier", "anon_key"}

const redacted = "[REDACTED]"

// LogHandlerDecorator adds context attributes to every record and masks
// attributes named after credentials.
type LogHandlerDecorator struct {
	next       slog.Handler
	extractors []ContextExtractor
}

// NewLogHandlerDecorator wraps next. Nil extractors are dropped.
func NewLogHandlerDecorator(next slog.Handler, extractors ...ContextExtractor) slog.Handler {
	return &LogHandlerDecorator{
		next:       next,
		extractors: slices.DeleteFunc(slices.Clone(extractors), func(ex ContextExtractor) bool { return ex == nil }),
	}
}

func (h *LogHandlerDecorator) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *LogHandlerDecorator) Handle(ctx context.Context, rec slog.Record) error {
	out := slog.NewRecord(rec.Time, rec.Level, rec.Message, rec.PC)
	rec.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(mask(a))
		return true
	})
	for _, ex := range h.extractors {
		if attr, ok := ex(ctx); ok {
			out.AddAttrs(attr)
		}
	}
	return h.next.Handle(ctx, out)
}

func (h *LogHandlerDecorator) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = mask(a)
	}
	return &LogHandlerDecorator{next: h.next.WithAttrs(masked), extractors: h.extractors}
}

func (h *LogHandlerDecorator) WithGroup(name string) slog.Handler {
	return &LogHandlerDecorator{next: h.next.WithGroup(name), extractors: h.extractors}
}

// mask replaces secret values, descending into groups.
func mask(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]any, len(group))
		for i, g := range group {
			masked[i] = mask(g)
		}
		return slog.Group(a.Key, masked...)
	}
	if slices.Contains(secretKeys, strings.ToLower(a.Key)) {
		return slog.String(a.Key, redacted)
	}
	return a
}
