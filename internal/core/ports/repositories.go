package ports

import (
	"context"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// FieldRepository persists saved field boundaries.
// Implementations return domain.ErrNotFound for unknown ids.
type FieldRepository interface {
	Save(ctx context.Context, field *domain.SavedField) error
	GetByID(ctx context.Context, id string) (*domain.SavedField, error)
	// List returns fields newest first.
	List(ctx context.Context) ([]domain.SavedField, error)
	Delete(ctx context.Context, id string) error
}

// BatchFieldRepository is implemented by stores that can insert many fields in one round trip.
type BatchFieldRepository interface {
	FieldRepository
	SaveBatch(ctx context.Context, fields []domain.SavedField) error
}
