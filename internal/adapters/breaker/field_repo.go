// Package breaker guards the field store with a circuit breaker so a failing
// backend fails fast instead of tying up request goroutines.
package breaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
)

// ErrUnavailable is returned while the breaker is open.
var ErrUnavailable = errors.New("field store unavailable")

// Settings mirrors config.BreakerConfig.
type Settings struct {
	MaxFailures int
	OpenTimeout time.Duration
	Interval    time.Duration
}

// FieldRepository decorates a ports.FieldRepository with a gobreaker.CircuitBreaker.
type FieldRepository struct {
	next ports.FieldRepository
	cb   *gobreaker.CircuitBreaker
}

// New wraps next. domain.ErrNotFound never counts as a failure.
func New(name string, next ports.FieldRepository, s Settings) *FieldRepository {
	fails := s.MaxFailures
	if fails <= 0 {
		fails = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     name,
		Interval: s.Interval,
		Timeout:  s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return &FieldRepository{next: next, cb: cb}
}

// State reports the current breaker state, for readiness checks.
func (r *FieldRepository) State() gobreaker.State { return r.cb.State() }

func (r *FieldRepository) Save(ctx context.Context, f *domain.SavedField) error {
	_, err := r.cb.Execute(func() (any, error) {
		return nil, r.next.Save(ctx, f)
	})
	return wrap(err)
}

func (r *FieldRepository) GetByID(ctx context.Context, id string) (*domain.SavedField, error) {
	res, err := r.cb.Execute(func() (any, error) {
		return r.next.GetByID(ctx, id)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res.(*domain.SavedField), nil
}

func (r *FieldRepository) List(ctx context.Context) ([]domain.SavedField, error) {
	res, err := r.cb.Execute(func() (any, error) {
		return r.next.List(ctx)
	})
	if err != nil {
		return nil, wrap(err)
	}
	return res.([]domain.SavedField), nil
}

func (r *FieldRepository) Delete(ctx context.Context, id string) error {
	_, err := r.cb.Execute(func() (any, error) {
		return nil, r.next.Delete(ctx, id)
	})
	return wrap(err)
}

func wrap(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
