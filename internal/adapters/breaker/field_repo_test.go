package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

type stubRepo struct {
	err   error
	calls int
}

func (s *stubRepo) Save(_ context.Context, _ *domain.SavedField) error {
	s.calls++
	return s.err
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*domain.SavedField, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.SavedField{ID: id}, nil
}

func (s *stubRepo) List(_ context.Context) ([]domain.SavedField, error) {
	s.calls++
	return []domain.SavedField{{ID: "a"}}, s.err
}

func (s *stubRepo) Delete(_ context.Context, _ string) error {
	s.calls++
	return s.err
}

func TestBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	stub := &stubRepo{err: errors.New("connection refused")}
	repo := New("fields", stub, Settings{MaxFailures: 2, OpenTimeout: time.Minute})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := repo.GetByID(ctx, "x"); err == nil {
			t.Fatal("expected error")
		}
	}
	if repo.State() != gobreaker.StateOpen {
		t.Fatalf("expected open state, got %s", repo.State())
	}

	_, err := repo.GetByID(ctx, "x")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if stub.calls != 2 {
		t.Errorf("expected backend untouched while open, got %d calls", stub.calls)
	}
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	stub := &stubRepo{err: domain.ErrNotFound}
	repo := New("fields", stub, Settings{MaxFailures: 1, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if err := repo.Delete(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	}
	if repo.State() != gobreaker.StateClosed {
		t.Errorf("expected closed state, got %s", repo.State())
	}
}

func TestBreaker_PassesResults(t *testing.T) {
	repo := New("fields", &stubRepo{}, Settings{})

	f, err := repo.GetByID(context.Background(), "abc")
	if err != nil || f.ID != "abc" {
		t.Fatalf("got %+v, %v", f, err)
	}
	list, err := repo.List(context.Background())
	if err != nil || len(list) != 1 {
		t.Fatalf("got %+v, %v", list, err)
	}
	if err := repo.Save(context.Background(), &domain.SavedField{ID: "abc"}); err != nil {
		t.Fatalf("save: %v", err)
	}
}
