package http

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// probeRoutes are scraped every few seconds and logged at debug only.
var probeRoutes = map[string]bool{
	"/metrics":   true,
	"/v1/health": true,
	"/v1/ready":  true,
}

func accessLevel(route string, status int, err error) slog.Level {
	switch {
	case err != nil || status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	case probeRoutes[route]:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// AccessLogMiddleware writes one line per request. It reads the route after
// c.Next, so reqLogger can tag session and field ids.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		route := c.Route().Path
		status := c.Response().StatusCode()
		level := accessLevel(route, status, err)

		ctx := c.UserContext()
		l := reqLogger(c)
		if !l.Enabled(ctx, level) {
			return err
		}

		attrs := []slog.Attr{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		l.LogAttrs(ctx, level, "http request", attrs...)
		return err
	}
}
