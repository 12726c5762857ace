package http

import (
	"math/rand/v2"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/survey"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
	"github.com/samirrijal/fieldarchitect/internal/pkg/units"
)

const (
	maxVertices    = 1000
	maxGridSteps   = 64
	maxSensorCount = 500
	maxAttempts    = 10000
)

// validVertices checks a caller-supplied vertex list. It does not check the count.
func validVertices(vs []domain.GeoPoint) string {
	if len(vs) > maxVertices {
		return "too many vertices (max 1000)"
	}
	for _, v := range vs {
		if v.Lat < -90 || v.Lat > 90 || v.Lon < -180 || v.Lon > 180 {
			return "vertex out of range: lat must be -90..90 and lon -180..180"
		}
	}
	return ""
}

// ---- Fields ----

type saveFieldRequest struct {
	Name     string            `json:"name"`
	Vertices []domain.GeoPoint `json:"vertices"`
}

// displayValues carries human-readable measurements.
type displayValues struct {
	Units     domain.UnitSystem `json:"units"`
	Area      string            `json:"area,omitempty"`
	Perimeter string            `json:"perimeter,omitempty"`
	Distance  string            `json:"distance,omitempty"`
}

type fieldResponse struct {
	*domain.SavedField
	Display displayValues `json:"display"`
}

func newFieldResponse(f *domain.SavedField, sys domain.UnitSystem) fieldResponse {
	return fieldResponse{
		SavedField: f,
		Display: displayValues{
			Units:     sys,
			Area:      units.FormatArea(f.AreaM2, sys),
			Perimeter: units.FormatDistance(f.PerimeterM, sys),
		},
	}
}

// ListFieldsHandler returns saved fields, newest first.
func ListFieldsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fields, err := deps.Fields.List(c.UserContext())
		if err != nil {
			return errFrom(c, err, "field")
		}
		return c.JSON(paginate(c, fields))
	}
}

// SaveFieldHandler stores a boundary drawn elsewhere.
func SaveFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req saveFieldRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if msg := validVertices(req.Vertices); msg != "" {
			return errBadRequest(c, msg)
		}
		f, err := deps.Fields.Save(c.UserContext(), req.Name, req.Vertices)
		if err != nil {
			return errFrom(c, err, "field")
		}
		return c.Status(fiber.StatusCreated).JSON(newFieldResponse(f, units.ParseSystem(c.Query("units"))))
	}
}

// GetFieldHandler returns one field.
func GetFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		f, err := deps.Fields.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "field")
		}
		return c.JSON(newFieldResponse(f, units.ParseSystem(c.Query("units"))))
	}
}

// DeleteFieldHandler removes a field and its sensor batch.
func DeleteFieldHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Fields.Delete(c.UserContext(), id); err != nil {
			return errFrom(c, err, "field")
		}
		if err := deps.Survey.ClearSensors(c.UserContext(), id); err != nil {
			reqLogger(c).Warn("clear sensors after delete failed", "error", err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// FieldHealthHandler returns the health raster of a saved field.
func FieldHealthHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		steps := c.QueryInt("steps", 0)
		if steps < 0 || steps > maxGridSteps {
			return errBadRequest(c, "steps must be between 1 and 64")
		}
		cells, err := deps.Survey.FieldHealth(c.UserContext(), c.Params("id"), steps)
		if err != nil {
			return errFrom(c, err, "field")
		}
		return c.JSON(healthResponse(cells))
	}
}

type deployRequest struct {
	Count       int `json:"count"`
	MaxAttempts int `json:"max_attempts"`
}

func (r deployRequest) check() string {
	if r.Count < 0 || r.Count > maxSensorCount {
		return "count must be between 1 and 500"
	}
	if r.MaxAttempts < 0 || r.MaxAttempts > maxAttempts {
		return "max_attempts must be between 1 and 10000"
	}
	return ""
}

// DeploySensorsHandler places a new sensor batch on a field.
func DeploySensorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req deployRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid JSON body")
			}
		}
		if msg := req.check(); msg != "" {
			return errBadRequest(c, msg)
		}
		batch, err := deps.Survey.DeploySensors(c.UserContext(), c.Params("id"), req.Count, req.MaxAttempts)
		if err != nil {
			return errFrom(c, err, "field")
		}
		return c.Status(fiber.StatusCreated).JSON(batch)
	}
}

// FieldSensorsHandler returns the current sensor batch of a field.
func FieldSensorsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		batch, err := deps.Survey.Sensors(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFrom(c, err, "sensor batch")
		}
		return c.JSON(batch)
	}
}

// FieldGeoJSONHandler exports a field with its raster and current sensors.
// Pass ?overlays=none to export the outline only.
func FieldGeoJSONHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		steps := c.QueryInt("steps", 0)
		if steps < 0 || steps > maxGridSteps {
			return errBadRequest(c, "steps must be between 1 and 64")
		}
		ctx := c.UserContext()
		f, err := deps.Fields.GetByID(ctx, c.Params("id"))
		if err != nil {
			return errFrom(c, err, "field")
		}

		var (
			cells   []domain.HealthCell
			sensors []domain.SensorPoint
		)
		if c.Query("overlays") != "none" {
			cells = deps.Survey.HealthRaster(ctx, f.Vertices, steps)
			if batch, err := deps.Survey.Sensors(ctx, f.ID); err == nil {
				sensors = batch.Sensors
			}
		}

		data, err := geospatial.FieldCollection(f, cells, sensors).MarshalJSON()
		if err != nil {
			return errInternal(c, "encode geojson")
		}
		c.Set("Content-Type", "application/geo+json")
		c.Set("Content-Disposition", `attachment; filename="`+f.ID+`.geojson"`)
		return c.Send(data)
	}
}

// ---- Overlays on unsaved polygons ----

type healthOverlayRequest struct {
	Vertices []domain.GeoPoint `json:"vertices"`
	Steps    int               `json:"steps"`
}

type healthOverlay struct {
	Cells   []domain.HealthCell `json:"cells"`
	Summary survey.Summary      `json:"summary"`
}

func healthResponse(cells []domain.HealthCell) healthOverlay {
	if cells == nil {
		cells = []domain.HealthCell{}
	}
	return healthOverlay{Cells: cells, Summary: survey.Summarize(cells)}
}

// HealthOverlayHandler computes a raster for a posted polygon.
func HealthOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req healthOverlayRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if msg := validVertices(req.Vertices); msg != "" {
			return errBadRequest(c, msg)
		}
		if req.Steps < 0 || req.Steps > maxGridSteps {
			return errBadRequest(c, "steps must be between 1 and 64")
		}
		return c.JSON(healthResponse(deps.Survey.HealthRaster(c.UserContext(), req.Vertices, req.Steps)))
	}
}

type sensorOverlayRequest struct {
	Vertices    []domain.GeoPoint `json:"vertices"`
	Count       int               `json:"count"`
	MaxAttempts int               `json:"max_attempts"`
	Seed        *uint64           `json:"seed,omitempty"`
}

type sensorOverlay struct {
	Requested int                  `json:"requested"`
	Sensors   []domain.SensorPoint `json:"sensors"`
}

// SensorOverlayHandler samples sensors in a posted polygon. A seed makes the result reproducible.
func SensorOverlayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req sensorOverlayRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if msg := validVertices(req.Vertices); msg != "" {
			return errBadRequest(c, msg)
		}
		if msg := (deployRequest{Count: req.Count, MaxAttempts: req.MaxAttempts}).check(); msg != "" {
			return errBadRequest(c, msg)
		}

		var rng survey.Rand
		if req.Seed != nil {
			rng = rand.New(rand.NewPCG(*req.Seed, *req.Seed))
		}
		count := req.Count
		if count == 0 {
			count = deps.Survey.Config().SensorCount
		}
		sensors := deps.Survey.PlaceSensors(c.UserContext(), req.Vertices, count, req.MaxAttempts, rng)
		if sensors == nil {
			sensors = []domain.SensorPoint{}
		}
		return c.JSON(sensorOverlay{Requested: count, Sensors: sensors})
	}
}

type outlineRequest struct {
	Center *domain.GeoPoint `json:"center"`
}

// OutlineHandler suggests a starting boundary around a centre point.
func OutlineHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req outlineRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Center == nil {
			return errBadRequest(c, "center is required")
		}
		if msg := validVertices([]domain.GeoPoint{*req.Center}); msg != "" {
			return errBadRequest(c, msg)
		}
		vs := deps.Survey.SuggestOutline(*req.Center)
		return c.JSON(fiber.Map{
			"vertices": vs,
			"area_m2":  geospatial.PolygonArea(vs),
		})
	}
}

// ---- Formatting ----

// FormatHandler renders measurements for display.
func FormatHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		sys := units.ParseSystem(c.Query("units"))
		out := displayValues{Units: sys}

		if c.Query("area_m2") == "" && c.Query("distance_m") == "" {
			return errBadRequest(c, "area_m2 or distance_m is required")
		}
		if c.Query("area_m2") != "" {
			area := c.QueryFloat("area_m2", -1)
			if area < 0 {
				return errBadRequest(c, "area_m2 must be a non-negative number")
			}
			out.Area = units.FormatArea(area, sys)
		}
		if c.Query("distance_m") != "" {
			d := c.QueryFloat("distance_m", -1)
			if d < 0 {
				return errBadRequest(c, "distance_m must be a non-negative number")
			}
			out.Distance = units.FormatDistance(d, sys)
		}
		return c.JSON(out)
	}
}
