package http

import (
	"context"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type loggerKey struct{}

// WithLogger returns ctx carrying l.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// LoggerFromCtx returns the logger stored by WithLogger, or slog.Default.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}

// RequestIDLogMiddleware attaches a logger tagged with the Fiber request ID
// to the user context. It must run after requestid.New.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if rid, _ := c.Locals("requestid").(string); rid != "" {
			c.SetUserContext(WithLogger(c.UserContext(), slog.Default().With("request_id", rid)))
		}
		return c.Next()
	}
}

// reqLogger is the request logger plus whichever of the session and field
// ids the matched route carries. Route params are only known inside handlers.
func reqLogger(c *fiber.Ctx) *slog.Logger {
	l := LoggerFromCtx(c.UserContext())
	if id := c.Params("fieldId"); id != "" {
		return l.With("session_id", c.Params("id"), "field_id", id)
	}
	if id := c.Params("id"); id != "" {
		if strings.HasPrefix(c.Route().Path, "/v1/sessions") {
			return l.With("session_id", id)
		}
		return l.With("field_id", id)
	}
	return l
}
