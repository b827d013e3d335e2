package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/requestid"
)

// ErrorPageParams is passed to ErrorHandlerConfig.ErrorPage.
type ErrorPageParams struct {
	Title      string
	Error      string
	StatusCode int
	RequestID  string
}

// ErrorToastParams is passed to ErrorHandlerConfig.ErrorToast.
type ErrorToastParams struct {
	Title     string
	Message   string
	RequestID string
}

// ErrorHandlerConfig configures NewErrorHandler.
type ErrorHandlerConfig struct {
	// ErrorPage renders a full page for regular requests.
	ErrorPage func(ErrorPageParams) templ.Component
	// ErrorToast renders a notification patch for Datastar requests.
	ErrorToast func(ErrorToastParams) templ.Component
	// ToastTarget defaults to "#toasts".
	ToastTarget string
}

type errorInfo struct {
	status  int
	title   string
	message string
	level   slog.Level
}

func classifyError(err error) errorInfo {
	info := errorInfo{
		status:  http.StatusInternalServerError,
		title:   "Error",
		message: "An error occurred processing your request",
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		info.status = httpErr.Code
		info.message = httpErr.Message()
	}

	var validationErr ValidationError
	if errors.As(err, &validationErr) {
		info.status = http.StatusBadRequest
		info.message = "Please correct the highlighted fields"
	}

	if info.status < http.StatusInternalServerError {
		info.level = slog.LevelWarn
	} else {
		info.level = slog.LevelError
	}
	return info
}

// NewErrorHandler returns an ErrorHandler that renders an error page for
// regular requests and a toast patch for Datastar requests. Internal error
// text is logged, never rendered.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = logger.Noop()
	}
	if cfg.ToastTarget == "" {
		cfg.ToastTarget = "#toasts"
	}

	return func(ctx Context, err error) {
		r := ctx.Request()
		reqID := requestid.FromContext(r.Context())
		info := classifyError(err)

		log.LogAttrs(r.Context(), info.level, "request error",
			logger.Component("error_handler"),
			logger.RequestID(reqID),
			logger.Error(err),
			slog.Int("status_code", info.status),
			slog.String("method", r.Method),
			logger.Path(r.URL.Path),
		)

		var resp Response
		switch {
		case IsDataStar(r) && cfg.ErrorToast != nil:
			resp = Templ(
				cfg.ErrorToast(ErrorToastParams{Title: info.title, Message: info.message, RequestID: reqID}),
				WithTarget(cfg.ToastTarget),
				WithPatchMode(PatchPrepend),
			)
		case !IsDataStar(r) && cfg.ErrorPage != nil:
			resp = WithStatus(info.status, Templ(cfg.ErrorPage(ErrorPageParams{
				Title:      info.title,
				Error:      info.message,
				StatusCode: info.status,
				RequestID:  reqID,
			})))
		default:
			http.Error(ctx.ResponseWriter(), info.message, info.status)
			return
		}

		if renderErr := resp.Render(ctx.ResponseWriter(), r); renderErr != nil {
			log.ErrorContext(r.Context(), "failed to render error response",
				logger.Component("error_handler"),
				logger.RequestID(reqID),
				logger.Error(renderErr),
			)
		}
	}
}
