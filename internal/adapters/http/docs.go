package http

import (
	"log/slog"
	"os"

	"github.com/gofiber/fiber/v2"
)

const swaggerUIDist = "https://cdn.jsdelivr.net/npm/swagger-ui-dist@5"

// swaggerUIHTML renders the bundled UI against the document served next to it.
const swaggerUIHTML = `<!doctype html>
<html><head><meta charset="utf-8"><title>FieldArchitect API</title>
<link rel="stylesheet" href="` + swaggerUIDist + `/swagger-ui.css"></head>
<body style="margin:0"><div id="swagger-ui"></div>
<script src="` + swaggerUIDist + `/swagger-ui-bundle.js"></script>
<script>
window.ui = SwaggerUIBundle({
  url: "/docs/openapi.yaml", dom_id: "#swagger-ui",
  docExpansion: "list", tryItOutEnabled: true, displayRequestDuration: true
});
</script></body></html>`

// openAPIPath is relative to the working directory of the api binary.
var openAPIPath = "api/openapi.yaml"

// SetupDocs serves Swagger UI at /docs and the OpenAPI document at /docs/openapi.yaml.
// The document is read once; if it is missing only the UI is useful.
func SetupDocs(app *fiber.App) {
	doc, err := os.ReadFile(openAPIPath)
	if err != nil {
		slog.Warn("openapi document unavailable", "path", openAPIPath, "error", err)
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/html; charset=utf-8")
		return c.SendString(swaggerUIHTML)
	})

	app.Get("/docs/openapi.yaml", func(c *fiber.Ctx) error {
		if doc == nil {
			return errNotFound(c, "openapi.yaml not found")
		}
		c.Set("Content-Type", "application/yaml")
		return c.Send(doc)
	})
}
