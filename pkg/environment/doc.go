// Package environment propagates the application environment (development,
// staging, production) through context.Context, HTTP requests and structured
// logs.
//
// Parse normalises configuration values, Middleware stores the environment
// on every request context and LoggerExtractor injects it into slog records:
//
//	env := environment.Parse(cfg.AppEnv)
//	r.Use(environment.Middleware(env))
//	log := logger.New(logger.WithContextExtractors(environment.LoggerExtractor()))
package environment
