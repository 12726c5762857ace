package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
)

func TestFieldService_Save(t *testing.T) {
	repo := newMemFieldRepo()
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(repo, nil, pub)

	f, err := svc.Save(context.Background(), "  North Field ", square)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.ID == "" {
		t.Error("expected generated id")
	}
	if f.Name != "North Field" {
		t.Errorf("expected trimmed name, got %q", f.Name)
	}
	if f.AreaM2 < 12000 || f.AreaM2 > 13000 {
		t.Errorf("expected ~12390 m2, got %f", f.AreaM2)
	}
	if f.PerimeterM < 440 || f.PerimeterM > 450 {
		t.Errorf("expected ~445 m perimeter, got %f", f.PerimeterM)
	}
	if len(pub.events) != 1 || pub.events[0].Type != "saved" || pub.events[0].FieldID != f.ID {
		t.Errorf("expected one saved event, got %+v", pub.events)
	}
}

func TestFieldService_Save_CopiesVertices(t *testing.T) {
	svc := usecases.NewFieldService(newMemFieldRepo(), nil, nil)
	vs := append([]domain.GeoPoint(nil), square...)

	f, err := svc.Save(context.Background(), "Copy", vs)
	if err != nil {
		t.Fatal(err)
	}
	vs[0].Lat = 50
	if f.Vertices[0].Lat != 0 {
		t.Error("saved field shares caller's slice")
	}
}

func TestFieldService_Save_Invalid(t *testing.T) {
	svc := usecases.NewFieldService(newMemFieldRepo(), nil, nil)

	cases := []struct {
		name     string
		vertices []domain.GeoPoint
	}{
		{"", square},
		{"   ", square},
		{strings.Repeat("x", 121), square},
		{"Two points", square[:2]},
		{"Empty", nil},
	}
	for _, tc := range cases {
		_, err := svc.Save(context.Background(), tc.name, tc.vertices)
		if !errors.Is(err, domain.ErrInvalidField) {
			t.Errorf("name=%q n=%d: expected ErrInvalidField, got %v", tc.name, len(tc.vertices), err)
		}
	}
}

func TestFieldService_Save_RepoError(t *testing.T) {
	repo := newMemFieldRepo()
	repo.saveFn = func(ctx context.Context, f *domain.SavedField) error { return errors.New("disk full") }
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(repo, nil, pub)

	if _, err := svc.Save(context.Background(), "A", square); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.events) != 0 {
		t.Error("expected no event on failed save")
	}
}

func TestFieldService_PublishErrorIgnored(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats down")}
	svc := usecases.NewFieldService(newMemFieldRepo(), nil, pub)

	if _, err := svc.Save(context.Background(), "A", square); err != nil {
		t.Fatalf("publish failure should not fail save: %v", err)
	}
}

func TestFieldService_GetByID_ReadThroughCache(t *testing.T) {
	repo := newMemFieldRepo()
	cache := newMockCache()
	svc := usecases.NewFieldService(repo, cache, nil)

	f, _ := svc.Save(context.Background(), "Cached", square)

	for i := 0; i < 3; i++ {
		got, err := svc.GetByID(context.Background(), f.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Name != "Cached" {
			t.Errorf("expected Cached, got %s", got.Name)
		}
	}
	if repo.gets != 1 {
		t.Errorf("expected 1 repo read, got %d", repo.gets)
	}
}

func TestFieldService_GetByID_NotFound(t *testing.T) {
	svc := usecases.NewFieldService(newMemFieldRepo(), newMockCache(), nil)

	_, err := svc.GetByID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFieldService_List_NewestFirst(t *testing.T) {
	repo := newMemFieldRepo()
	svc := usecases.NewFieldService(repo, nil, nil)

	a, _ := svc.Save(context.Background(), "A", square)
	time.Sleep(2 * time.Millisecond)
	b, _ := svc.Save(context.Background(), "B", square)

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(list))
	}
	if list[0].ID != b.ID || list[1].ID != a.ID {
		t.Errorf("expected newest first, got %s then %s", list[0].Name, list[1].Name)
	}
}

func TestFieldService_Delete(t *testing.T) {
	repo := newMemFieldRepo()
	cache := newMockCache()
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(repo, cache, pub)

	f, _ := svc.Save(context.Background(), "Gone", square)
	_, _ = svc.GetByID(context.Background(), f.ID) // warm cache

	if err := svc.Delete(context.Background(), f.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.GetByID(context.Background(), f.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if len(cache.data) != 0 {
		t.Errorf("expected cache cleared, got %d keys", len(cache.data))
	}
	if last := pub.events[len(pub.events)-1]; last.Type != "deleted" {
		t.Errorf("expected deleted event, got %s", last.Type)
	}

	if err := svc.Delete(context.Background(), f.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestFieldService_Import_RejectsIndividually(t *testing.T) {
	repo := newMemFieldRepo()
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(repo, nil, pub)

	res, err := svc.Import(context.Background(), []usecases.FieldDraft{
		{Name: "East", Vertices: square},
		{Name: "", Vertices: square},
		{Name: "Sliver", Vertices: square[:2]},
		{Name: "West", Vertices: square},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Saved) != 2 || res.Saved[0].Name != "East" || res.Saved[1].Name != "West" {
		t.Errorf("unexpected saved fields: %+v", res.Saved)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("expected 2 rejected drafts, got %v", res.Rejected)
	}
	for _, i := range []int{1, 2} {
		if !errors.Is(res.Rejected[i], domain.ErrInvalidField) {
			t.Errorf("draft %d: expected ErrInvalidField, got %v", i, res.Rejected[i])
		}
	}
	if len(repo.fields) != 2 || len(pub.events) != 2 {
		t.Errorf("expected 2 stored and 2 events, got %d and %d", len(repo.fields), len(pub.events))
	}
}

func TestFieldService_RejectsOutOfRangeVertices(t *testing.T) {
	shifted := func(dLat, dLon float64) []domain.GeoPoint {
		out := append([]domain.GeoPoint(nil), square...)
		out[1].Lat += dLat
		out[1].Lon += dLon
		return out
	}
	repo := newMemFieldRepo()
	svc := usecases.NewFieldService(repo, nil, nil)

	res, err := svc.Import(context.Background(), []usecases.FieldDraft{
		{Name: "North of the pole", Vertices: shifted(91, 0)},
		{Name: "Past the antimeridian", Vertices: shifted(0, 200)},
		{Name: "In range", Vertices: square},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Saved) != 1 || res.Saved[0].Name != "In range" {
		t.Errorf("unexpected saved fields: %+v", res.Saved)
	}
	for _, i := range []int{0, 1} {
		if !errors.Is(res.Rejected[i], domain.ErrInvalidField) {
			t.Errorf("draft %d: expected ErrInvalidField, got %v", i, res.Rejected[i])
		}
	}

	if _, err := svc.Save(context.Background(), "Bad", shifted(0, -400)); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("Save: expected ErrInvalidField, got %v", err)
	}
	if len(repo.fields) != 1 {
		t.Errorf("expected 1 stored field, got %d", len(repo.fields))
	}
}

func TestFieldService_Import_UsesBatch(t *testing.T) {
	repo := &batchFieldRepo{memFieldRepo: newMemFieldRepo()}
	svc := usecases.NewFieldService(repo, nil, nil)

	drafts := make([]usecases.FieldDraft, 10)
	for i := range drafts {
		drafts[i] = usecases.FieldDraft{Name: "Plot", Vertices: square}
	}
	res, err := svc.Import(context.Background(), drafts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if repo.batches != 1 {
		t.Errorf("expected a single batch insert, got %d", repo.batches)
	}
	if len(res.Saved) != 10 || len(repo.fields) != 10 {
		t.Errorf("expected 10 saved, got %d (stored %d)", len(res.Saved), len(repo.fields))
	}
}

func TestFieldService_Import_StoreErrorAborts(t *testing.T) {
	repo := &batchFieldRepo{memFieldRepo: newMemFieldRepo(), batchErr: errors.New("copy failed")}
	pub := &mockPublisher{}
	svc := usecases.NewFieldService(repo, nil, pub)

	if _, err := svc.Import(context.Background(), []usecases.FieldDraft{{Name: "A", Vertices: square}}); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.events) != 0 {
		t.Errorf("no events expected after a failed import, got %d", len(pub.events))
	}
}

func TestFieldService_Import_NothingValid(t *testing.T) {
	repo := &batchFieldRepo{memFieldRepo: newMemFieldRepo()}
	svc := usecases.NewFieldService(repo, nil, nil)

	res, err := svc.Import(context.Background(), []usecases.FieldDraft{{Name: "A"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Saved) != 0 || repo.batches != 0 {
		t.Errorf("expected no store call, got %d saved, %d batches", len(res.Saved), repo.batches)
	}
}
