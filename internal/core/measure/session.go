// Package measure holds the vertex state machine behind the boundary and ruler tools.
//
// A Session is owned by a single caller. It does no locking of its own: hosts
// that share one across goroutines must serialise AddVertex, Undo, Clear,
// SwitchTool and Load themselves (usecases.SessionService holds a mutex per session).
package measure

import (
	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
)

// State is the coarse progress of a measurement.
type State string

const (
	StateEmpty    State = "empty"
	StatePartial  State = "partial"
	StateComplete State = "complete" // boundary with 3+ vertices, ruler with 2+
)

// Session is the ordered vertex sequence of the active tool plus its derived values.
type Session struct {
	tool     domain.Tool
	vertices []domain.GeoPoint

	areaM2     float64
	perimeterM float64
	distanceM  float64
}

// NewSession returns an empty session for tool. Unknown tools fall back to boundary.
func NewSession(tool domain.Tool) *Session {
	if !tool.Valid() {
		tool = domain.ToolBoundary
	}
	return &Session{tool: tool}
}

// AddVertex appends p.
func (s *Session) AddVertex(p domain.GeoPoint) {
	s.vertices = append(s.vertices, p)
	s.recompute()
}

// Undo drops the most recent vertex. It is a no-op on an empty session.
func (s *Session) Undo() {
	if len(s.vertices) == 0 {
		return
	}
	s.vertices = s.vertices[:len(s.vertices)-1]
	s.recompute()
}

// Clear drops every vertex and zeroes the derived values.
func (s *Session) Clear() {
	s.vertices = nil
	s.recompute()
}

// SwitchTool discards the in-progress measurement: boundary and ruler vertices
// cannot share one sequence.
func (s *Session) SwitchTool(t domain.Tool) {
	if !t.Valid() {
		return
	}
	s.tool = t
	s.vertices = nil
	s.recompute()
}

// Load replaces the session with a boundary over vs, e.g. a saved field.
func (s *Session) Load(vs []domain.GeoPoint) {
	s.tool = domain.ToolBoundary
	s.vertices = append([]domain.GeoPoint(nil), vs...)
	s.recompute()
}

func (s *Session) recompute() {
	s.areaM2, s.perimeterM, s.distanceM = 0, 0, 0
	switch s.tool {
	case domain.ToolBoundary:
		s.areaM2 = geospatial.PolygonArea(s.vertices)
		s.perimeterM = geospatial.Perimeter(s.vertices)
	case domain.ToolRuler:
		s.distanceM = geospatial.PathLength(s.vertices)
	}
}

// Tool returns the active tool.
func (s *Session) Tool() domain.Tool { return s.tool }

// Vertices returns a copy of the vertex list.
func (s *Session) Vertices() []domain.GeoPoint {
	return append([]domain.GeoPoint(nil), s.vertices...)
}

// Len returns the vertex count.
func (s *Session) Len() int { return len(s.vertices) }

func (s *Session) AreaM2() float64     { return s.areaM2 }
func (s *Session) PerimeterM() float64 { return s.perimeterM }
func (s *Session) DistanceM() float64  { return s.distanceM }

// State reports how far the measurement has progressed.
func (s *Session) State() State {
	n := len(s.vertices)
	switch {
	case n == 0:
		return StateEmpty
	case s.tool == domain.ToolBoundary && n >= 3, s.tool == domain.ToolRuler && n >= 2:
		return StateComplete
	default:
		return StatePartial
	}
}

// Snapshot is a read-only copy of a session, safe to hand to other goroutines.
type Snapshot struct {
	Tool       domain.Tool       `json:"tool"`
	State      State             `json:"state"`
	Vertices   []domain.GeoPoint `json:"vertices"`
	AreaM2     float64           `json:"area_m2"`
	PerimeterM float64           `json:"perimeter_m"`
	DistanceM  float64           `json:"distance_m"`
}

// Snapshot copies the current state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Tool:       s.tool,
		State:      s.State(),
		Vertices:   s.Vertices(),
		AreaM2:     s.areaM2,
		PerimeterM: s.perimeterM,
		DistanceM:  s.distanceM,
	}
}
