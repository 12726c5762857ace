package domain

import (
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidField is returned when a field cannot be saved as given.
	ErrInvalidField = errors.New("invalid field")
)

// Tool selects how a vertex sequence is interpreted.
type Tool string

const (
	ToolBoundary Tool = "boundary" // closed polygon: area + perimeter
	ToolRuler    Tool = "ruler"    // open path: cumulative distance
)

// Valid reports whether t is a known tool.
func (t Tool) Valid() bool {
	return t == ToolBoundary || t == ToolRuler
}

// UnitSystem selects display units.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

// HealthClass is the synthetic crop-health band of a raster cell or sensor.
type HealthClass string

const (
	Healthy  HealthClass = "healthy"
	Warning  HealthClass = "warning"
	Stressed HealthClass = "stressed"
)

// HealthCell is one retained cell of a health raster.
type HealthCell struct {
	Row            int         `json:"row"`
	Col            int         `json:"col"`
	Bounds         Bounds      `json:"bounds"`
	Classification HealthClass `json:"classification"`
}

// SensorStatus mirrors the device state of a placed sensor.
type SensorStatus string

const (
	SensorActive  SensorStatus = "active"
	SensorWarning SensorStatus = "warning"
	SensorOffline SensorStatus = "offline"
)

// SensorPoint is a synthetic sensor placed inside a field.
type SensorPoint struct {
	ID         string       `json:"id"`
	Location   GeoPoint     `json:"location"`
	Type       string       `json:"type"`
	Value      float64      `json:"value"` // normalised 0-100
	Battery    int          `json:"battery"`
	Status     SensorStatus `json:"status"`
	Health     HealthClass  `json:"health"`
	LastUpdate time.Time    `json:"last_update"`
}

// SensorBatch is the full set of sensors deployed for one field.
type SensorBatch struct {
	FieldID    string        `json:"field_id"`
	Requested  int           `json:"requested"`
	Attempts   int           `json:"max_attempts"`
	Sensors    []SensorPoint `json:"sensors"`
	DeployedAt time.Time     `json:"deployed_at"`
}

// SavedField is a persisted field boundary.
type SavedField struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Vertices   []GeoPoint `json:"vertices"`
	AreaM2     float64    `json:"area_m2"`
	PerimeterM float64    `json:"perimeter_m"`
	CreatedAt  time.Time  `json:"created_at"`
}

// FieldEvent is published when a field changes.
type FieldEvent struct {
	Type    string    `json:"type"` // "saved" | "deleted"
	FieldID string    `json:"field_id"`
	Name    string    `json:"name,omitempty"`
	AreaM2  float64   `json:"area_m2,omitempty"`
	Time    time.Time `json:"time"`
}
