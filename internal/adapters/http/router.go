package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
)

const (
	requestTimeout = 15 * time.Second
	apiVersion     = "1.0.0"

	// Drawing a boundary posts one vertex per click.
	rateLimitPerMinute = 300
)

func securityHeaders(c *fiber.Ctx) error {
	c.Set("X-Content-Type-Options", "nosniff")
	c.Set("X-Frame-Options", "DENY")
	c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	c.Set("X-API-Version", apiVersion)
	return c.Next()
}

// bounded wraps handlers that reach the field store.
func bounded(h fiber.Handler) fiber.Handler {
	return timeout.NewWithContext(h, requestTimeout)
}

// SetupRoutes mounts the REST, GraphQL, docs and WebSocket surfaces on app.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{Level: compress.LevelBestSpeed}))
	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())
	app.Use(limiter.New(limiter.Config{
		Max:          rateLimitPerMinute,
		Expiration:   time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))
	app.Use(securityHeaders)
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	registerSessionRoutes(v1, deps)

	v1.Get("/fields", bounded(ListFieldsHandler(deps)))
	v1.Post("/fields", bounded(SaveFieldHandler(deps)))
	fields := v1.Group("/fields")
	fields.Get("/:id", bounded(GetFieldHandler(deps)))
	fields.Delete("/:id", bounded(DeleteFieldHandler(deps)))
	fields.Get("/:id/health", bounded(FieldHealthHandler(deps)))
	fields.Get("/:id/sensors", bounded(FieldSensorsHandler(deps)))
	fields.Post("/:id/sensors", bounded(DeploySensorsHandler(deps)))
	fields.Get("/:id/geojson", bounded(FieldGeoJSONHandler(deps)))

	overlays := v1.Group("/overlays")
	overlays.Post("/health", HealthOverlayHandler(deps))
	overlays.Post("/sensors", SensorOverlayHandler(deps))
	overlays.Post("/outline", OutlineHandler(deps))

	v1.Get("/format", FormatHandler())

	app.Post("/graphql", GraphQLHandler(deps))
	SetupDocs(app)

	if deps.NATS != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if !websocket.IsWebSocketUpgrade(c) {
				return fiber.ErrUpgradeRequired
			}
			return c.Next()
		})
		app.Get("/ws", websocket.New(WebSocketHandler(deps.NATS)))
	}
}
