package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
	"github.com/samirrijal/fieldarchitect/internal/pkg/units"
)

type sessionResponse struct {
	usecases.SessionView
	Display displayValues `json:"display"`
}

func (h sessionHandlers) respond(c *fiber.Ctx, v usecases.SessionView, err error) error {
	if err != nil {
		return errFrom(c, err, "field")
	}
	sys := units.ParseSystem(c.Query("units"))
	d := displayValues{Units: sys}
	if v.Tool == domain.ToolRuler {
		d.Distance = units.FormatDistance(v.DistanceM, sys)
	} else {
		d.Area = units.FormatArea(v.AreaM2, sys)
		d.Perimeter = units.FormatDistance(v.PerimeterM, sys)
	}
	c.Set("Cache-Control", "no-store")
	return c.JSON(sessionResponse{SessionView: v, Display: d})
}

// sessionHandlers groups the measurement session endpoints.
type sessionHandlers struct {
	deps *Dependencies
}

type toolRequest struct {
	Tool domain.Tool `json:"tool"`
}

// parseTool reads {"tool": ...}. A non-empty msg is a client error.
func parseTool(c *fiber.Ctx, allowEmpty bool) (tool domain.Tool, msg string) {
	var req toolRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return "", "invalid JSON body"
		}
	}
	if req.Tool == "" && allowEmpty {
		return domain.ToolBoundary, ""
	}
	if !req.Tool.Valid() {
		return "", `tool must be "boundary" or "ruler"`
	}
	return req.Tool, ""
}

func (h sessionHandlers) create(c *fiber.Ctx) error {
	tool, msg := parseTool(c, true)
	if msg != "" {
		return errBadRequest(c, msg)
	}
	v := h.deps.Sessions.Create(tool)
	c.Status(fiber.StatusCreated)
	c.Location("/v1/sessions/" + v.ID)
	return h.respond(c, v, nil)
}

func (h sessionHandlers) get(c *fiber.Ctx) error {
	v, err := h.deps.Sessions.Get(c.Params("id"))
	return h.respond(c, v, err)
}

func (h sessionHandlers) remove(c *fiber.Ctx) error {
	if err := h.deps.Sessions.Delete(c.Params("id")); err != nil {
		return errFrom(c, err, "session")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type vertexRequest struct {
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

func (h sessionHandlers) addVertex(c *fiber.Ctx) error {
	var req vertexRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid JSON body")
	}
	if req.Lat == nil || req.Lon == nil {
		return errBadRequest(c, "lat and lon are required")
	}
	p := domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
	if msg := validVertices([]domain.GeoPoint{p}); msg != "" {
		return errBadRequest(c, msg)
	}
	v, err := h.deps.Sessions.AddVertex(c.Params("id"), p)
	return h.respond(c, v, err)
}

func (h sessionHandlers) undo(c *fiber.Ctx) error {
	v, err := h.deps.Sessions.Undo(c.Params("id"))
	return h.respond(c, v, err)
}

func (h sessionHandlers) clear(c *fiber.Ctx) error {
	v, err := h.deps.Sessions.Clear(c.Params("id"))
	return h.respond(c, v, err)
}

func (h sessionHandlers) switchTool(c *fiber.Ctx) error {
	tool, msg := parseTool(c, false)
	if msg != "" {
		return errBadRequest(c, msg)
	}
	v, err := h.deps.Sessions.SwitchTool(c.Params("id"), tool)
	return h.respond(c, v, err)
}

func (h sessionHandlers) load(c *fiber.Ctx) error {
	v, err := h.deps.Sessions.LoadField(c.UserContext(), c.Params("id"), c.Params("fieldId"))
	return h.respond(c, v, err)
}

type saveSessionRequest struct {
	Name string `json:"name"`
}

func (h sessionHandlers) save(c *fiber.Ctx) error {
	var req saveSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return errBadRequest(c, "invalid JSON body")
	}
	f, err := h.deps.Sessions.SaveAsField(c.UserContext(), c.Params("id"), req.Name)
	if err != nil {
		return errFrom(c, err, "field")
	}
	return c.Status(fiber.StatusCreated).JSON(newFieldResponse(f, units.ParseSystem(c.Query("units"))))
}

// registerSessionRoutes mounts /sessions on r.
func registerSessionRoutes(r fiber.Router, deps *Dependencies) {
	h := sessionHandlers{deps: deps}
	s := r.Group("/sessions")
	s.Post("/", h.create)
	s.Get("/:id", h.get)
	s.Delete("/:id", h.remove)
	s.Post("/:id/vertices", h.addVertex)
	s.Post("/:id/undo", h.undo)
	s.Post("/:id/clear", h.clear)
	s.Post("/:id/tool", h.switchTool)
	s.Post("/:id/load/:fieldId", h.load)
	s.Post("/:id/save", h.save)
}
