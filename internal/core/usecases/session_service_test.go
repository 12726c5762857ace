package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/measure"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
)

func TestSessionService_Lifecycle(t *testing.T) {
	svc := usecases.NewSessionService(nil)

	v := svc.Create(domain.ToolBoundary)
	if v.ID == "" || v.State != measure.StateEmpty {
		t.Fatalf("unexpected new session: %+v", v)
	}

	for _, p := range square {
		var err error
		if v, err = svc.AddVertex(v.ID, p); err != nil {
			t.Fatal(err)
		}
	}
	if v.State != measure.StateComplete || v.AreaM2 <= 0 {
		t.Errorf("expected complete boundary with area, got %+v", v.Snapshot)
	}

	v, _ = svc.Undo(v.ID)
	if len(v.Vertices) != 3 {
		t.Errorf("expected 3 vertices after undo, got %d", len(v.Vertices))
	}

	v, _ = svc.SwitchTool(v.ID, domain.ToolRuler)
	if v.Tool != domain.ToolRuler || len(v.Vertices) != 0 {
		t.Errorf("expected empty ruler after switch, got %+v", v.Snapshot)
	}

	v, _ = svc.AddVertex(v.ID, square[0])
	v, _ = svc.AddVertex(v.ID, square[1])
	if v.DistanceM < 110 || v.DistanceM > 112 {
		t.Errorf("expected ~111 m, got %f", v.DistanceM)
	}

	v, _ = svc.Clear(v.ID)
	if v.State != measure.StateEmpty {
		t.Errorf("expected empty after clear, got %s", v.State)
	}

	if err := svc.Delete(v.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(v.ID); !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Delete(v.ID); !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound on second delete, got %v", err)
	}
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc := usecases.NewSessionService(nil)
	if _, err := svc.AddVertex("nope", square[0]); !errors.Is(err, usecases.ErrSessionNotFound) {
		t.Errorf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_SaveAndLoad(t *testing.T) {
	fields := usecases.NewFieldService(newMemFieldRepo(), nil, nil)
	svc := usecases.NewSessionService(fields)
	ctx := context.Background()

	v := svc.Create(domain.ToolBoundary)
	for _, p := range square {
		v, _ = svc.AddVertex(v.ID, p)
	}

	f, err := svc.SaveAsField(ctx, v.ID, "Home")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if f.AreaM2 != v.AreaM2 {
		t.Errorf("saved area %f differs from session area %f", f.AreaM2, v.AreaM2)
	}

	other := svc.Create(domain.ToolRuler)
	loaded, err := svc.LoadField(ctx, other.ID, f.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.Tool != domain.ToolBoundary || len(loaded.Vertices) != 4 {
		t.Errorf("expected loaded boundary, got %+v", loaded.Snapshot)
	}
	if loaded.PerimeterM != f.PerimeterM {
		t.Errorf("expected perimeter %f, got %f", f.PerimeterM, loaded.PerimeterM)
	}

	if _, err := svc.LoadField(ctx, other.ID, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionService_SaveRejectsRulerAndShortBoundary(t *testing.T) {
	fields := usecases.NewFieldService(newMemFieldRepo(), nil, nil)
	svc := usecases.NewSessionService(fields)
	ctx := context.Background()

	ruler := svc.Create(domain.ToolRuler)
	for _, p := range square {
		_, _ = svc.AddVertex(ruler.ID, p)
	}
	if _, err := svc.SaveAsField(ctx, ruler.ID, "Ruler"); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for ruler, got %v", err)
	}

	short := svc.Create(domain.ToolBoundary)
	_, _ = svc.AddVertex(short.ID, square[0])
	_, _ = svc.AddVertex(short.ID, square[1])
	if _, err := svc.SaveAsField(ctx, short.ID, "Short"); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField for 2 vertices, got %v", err)
	}
}

func TestSessionService_Expire(t *testing.T) {
	svc := usecases.NewSessionService(nil)
	svc.Create(domain.ToolBoundary)
	svc.Create(domain.ToolRuler)

	if n := svc.Expire(time.Hour); n != 0 {
		t.Errorf("expected nothing expired, got %d", n)
	}
	if n := svc.Expire(-time.Second); n != 2 {
		t.Errorf("expected 2 expired, got %d", n)
	}
	if svc.Count() != 0 {
		t.Errorf("expected no sessions left, got %d", svc.Count())
	}
}

func TestSessionService_ConcurrentAddVertex(t *testing.T) {
	svc := usecases.NewSessionService(nil)
	v := svc.Create(domain.ToolRuler)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.AddVertex(v.ID, domain.GeoPoint{Lat: float64(i) * 0.0001, Lon: 0})
		}(i)
	}
	wg.Wait()

	got, _ := svc.Get(v.ID)
	if len(got.Vertices) != 50 {
		t.Errorf("expected 50 vertices, got %d", len(got.Vertices))
	}
}
