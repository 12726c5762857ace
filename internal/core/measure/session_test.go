package measure_test

import (
	"testing"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/measure"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
)

var triangle = []domain.GeoPoint{
	{Lat: 20.5937, Lon: 78.9629},
	{Lat: 20.5947, Lon: 78.9629},
	{Lat: 20.5947, Lon: 78.9641},
}

func TestSession_BoundaryRecompute(t *testing.T) {
	s := measure.NewSession(domain.ToolBoundary)
	if s.State() != measure.StateEmpty {
		t.Fatalf("expected empty, got %s", s.State())
	}

	s.AddVertex(triangle[0])
	if s.AreaM2() != 0 || s.PerimeterM() != 0 {
		t.Errorf("single vertex: area %f perimeter %f", s.AreaM2(), s.PerimeterM())
	}
	if s.State() != measure.StatePartial {
		t.Errorf("expected partial, got %s", s.State())
	}

	s.AddVertex(triangle[1])
	if s.AreaM2() != 0 {
		t.Errorf("two vertices: area %f, want 0", s.AreaM2())
	}
	if s.PerimeterM() == 0 {
		t.Error("two vertices: perimeter should be non-zero")
	}

	s.AddVertex(triangle[2])
	if s.State() != measure.StateComplete {
		t.Errorf("expected complete, got %s", s.State())
	}
	if got, want := s.AreaM2(), geospatial.PolygonArea(triangle); got != want {
		t.Errorf("area %f, want %f", got, want)
	}
	if got, want := s.PerimeterM(), geospatial.Perimeter(triangle); got != want {
		t.Errorf("perimeter %f, want %f", got, want)
	}
	if s.DistanceM() != 0 {
		t.Errorf("boundary tool should not report distance, got %f", s.DistanceM())
	}
}

func TestSession_UndoTwiceLeavesOneVertex(t *testing.T) {
	s := measure.NewSession(domain.ToolBoundary)
	for _, p := range triangle {
		s.AddVertex(p)
	}
	s.Undo()
	s.Undo()

	if s.Len() != 1 {
		t.Fatalf("expected 1 vertex, got %d", s.Len())
	}
	if s.AreaM2() != 0 {
		t.Errorf("expected area 0, got %f", s.AreaM2())
	}
	if s.PerimeterM() != 0 {
		t.Errorf("expected perimeter 0, got %f", s.PerimeterM())
	}
}

func TestSession_UndoOnEmpty(t *testing.T) {
	s := measure.NewSession(domain.ToolRuler)
	s.Undo()
	if s.Len() != 0 || s.State() != measure.StateEmpty {
		t.Errorf("undo on empty changed state: %+v", s.Snapshot())
	}
}

func TestSession_RulerIsOpenPath(t *testing.T) {
	s := measure.NewSession(domain.ToolRuler)
	for _, p := range triangle {
		s.AddVertex(p)
	}

	want := geospatial.PathLength(triangle)
	if s.DistanceM() != want {
		t.Errorf("distance %f, want %f", s.DistanceM(), want)
	}
	if s.DistanceM() >= geospatial.Perimeter(triangle) {
		t.Error("ruler distance must not include the closing edge")
	}
	if s.AreaM2() != 0 || s.PerimeterM() != 0 {
		t.Errorf("ruler reported area %f perimeter %f", s.AreaM2(), s.PerimeterM())
	}
}

func TestSession_SwitchToolClears(t *testing.T) {
	s := measure.NewSession(domain.ToolBoundary)
	for _, p := range triangle {
		s.AddVertex(p)
	}
	s.SwitchTool(domain.ToolRuler)

	if len(s.Vertices()) != 0 {
		t.Fatalf("expected no vertices after switch, got %d", len(s.Vertices()))
	}
	if s.Tool() != domain.ToolRuler {
		t.Errorf("expected ruler, got %s", s.Tool())
	}
	if s.AreaM2() != 0 || s.PerimeterM() != 0 || s.DistanceM() != 0 {
		t.Errorf("derived values not reset: %+v", s.Snapshot())
	}
}

func TestSession_Clear(t *testing.T) {
	s := measure.NewSession(domain.ToolBoundary)
	for _, p := range triangle {
		s.AddVertex(p)
	}
	s.Clear()
	snap := s.Snapshot()
	if len(snap.Vertices) != 0 || snap.AreaM2 != 0 || snap.PerimeterM != 0 || snap.State != measure.StateEmpty {
		t.Errorf("clear left state behind: %+v", snap)
	}
	if snap.Tool != domain.ToolBoundary {
		t.Errorf("clear should keep the tool, got %s", snap.Tool)
	}
}

func TestSession_LoadSwitchesToBoundary(t *testing.T) {
	s := measure.NewSession(domain.ToolRuler)
	s.AddVertex(triangle[0])
	s.Load(triangle)

	if s.Tool() != domain.ToolBoundary {
		t.Errorf("expected boundary, got %s", s.Tool())
	}
	if s.Len() != 3 {
		t.Errorf("expected 3 vertices, got %d", s.Len())
	}
	if s.AreaM2() == 0 {
		t.Error("expected area after load")
	}
}

func TestSession_VerticesAreCopies(t *testing.T) {
	s := measure.NewSession(domain.ToolBoundary)
	s.AddVertex(triangle[0])
	vs := s.Vertices()
	vs[0] = domain.GeoPoint{}
	if s.Vertices()[0] != triangle[0] {
		t.Error("mutating returned vertices leaked into the session")
	}
}
