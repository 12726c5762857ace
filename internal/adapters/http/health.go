package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

var version = "dev"

const readyTimeout = 3 * time.Second

// probe is one readiness check. A failing optional probe is reported but
// does not take the instance out of rotation.
type probe struct {
	name     string
	required bool
	check    func(ctx context.Context) string
}

func pingProbe(p Pinger) func(ctx context.Context) string {
	return func(ctx context.Context) string {
		if err := p.Ping(ctx); err != nil {
			return "error: " + err.Error()
		}
		return "ok"
	}
}

func (d *Dependencies) probes() []probe {
	notConfigured := func(context.Context) string { return "not configured" }

	store := probe{name: "store", required: true, check: notConfigured}
	if d.Store != nil {
		store.check = pingProbe(d.Store)
	}

	cache := probe{name: "cache", check: notConfigured}
	if d.Cache != nil {
		cache.check = pingProbe(d.Cache)
	}

	broker := probe{name: "nats", check: notConfigured}
	if d.NATS != nil {
		conn := d.NATS
		broker.check = func(context.Context) string {
			if conn.IsConnected() {
				return "ok"
			}
			return "disconnected"
		}
	}

	return []probe{store, broker, cache}
}

// HealthHandler is the liveness check. It never touches a backend.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		body := fiber.Map{
			"status":  "healthy",
			"version": version,
			"uptime":  time.Since(startedAt).Truncate(time.Second).String(),
		}
		if deps.Sessions != nil {
			body["sessions"] = deps.Sessions.Count()
		}
		return c.JSON(body)
	}
}

// ReadyHandler runs every probe. Only the field store gates readiness.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), readyTimeout)
		defer cancel()

		checks := make(map[string]string)
		ready := true
		for _, p := range deps.probes() {
			result := p.check(ctx)
			checks[p.name] = result
			if p.required && result != "ok" {
				ready = false
			}
		}

		if !ready {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not ready", "checks": checks})
		}
		return c.JSON(fiber.Map{"status": "ready", "checks": checks})
	}
}
