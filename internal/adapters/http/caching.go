package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// cachePolicies is keyed by the matched route pattern, not the request path.
var cachePolicies = map[string]string{
	"/v1/health":             "public, max-age=10",
	"/v1/ready":              "no-cache",
	"/metrics":               "no-cache",
	"/v1/fields":             "private, max-age=5",
	"/v1/fields/:id":         "private, max-age=60",
	"/v1/fields/:id/health":  "public, max-age=3600", // pure function of the stored boundary
	"/v1/fields/:id/sensors": "no-cache",
	"/v1/fields/:id/geojson": "private, max-age=60",
	"/v1/format":             "public, max-age=86400",
	"/docs":                  "public, max-age=600",
	"/docs/openapi.yaml":     "public, max-age=600",
}

func cachePolicy(route string) string {
	if p, ok := cachePolicies[route]; ok {
		return p
	}
	switch {
	case strings.HasPrefix(route, "/v1/sessions"):
		return "no-store"
	case strings.HasPrefix(route, "/v1/overlays"):
		return "no-cache"
	case strings.HasPrefix(route, "/v1/"):
		return "private, max-age=30"
	}
	return ""
}

// CachingMiddleware sets Cache-Control on successful GETs that did not set
// their own.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err != nil || c.Method() != fiber.MethodGet || c.Response().StatusCode() >= 400 {
			return err
		}
		if c.GetRespHeader(fiber.HeaderCacheControl) != "" {
			return nil
		}
		if p := cachePolicy(c.Route().Path); p != "" {
			c.Set(fiber.HeaderCacheControl, p)
		}
		return nil
	}
}
