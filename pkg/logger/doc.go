// Package logger builds context-aware slog loggers.
//
// New returns a *slog.Logger configured by functional options (format, level,
// static attributes) whose handler is wrapped in LogHandlerDecorator. The
// decorator runs every registered ContextExtractor on each record, so values
// such as the request ID or the environment travel with the context instead of
// being threaded through call sites.
//
// attr.go holds constructors for the attribute keys used across the codebase
// (error, component, event, user_id, email, ...). Email masks the local part
// of the address so log records never carry full addresses.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(environment.Production, "authkit"),
//		logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "magic link sent", logger.Email(email), logger.Component("auth"))
package logger
