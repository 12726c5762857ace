package ports

import (
	"context"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// EventPublisher announces field lifecycle changes and sensor deployments.
// Callers treat publish failures as non-fatal.
type EventPublisher interface {
	PublishFieldEvent(ctx context.Context, event *domain.FieldEvent) error
	PublishSensorBatch(ctx context.Context, batch *domain.SensorBatch) error
}

// FieldEventHandler processes one delivered field event.
type FieldEventHandler func(ctx context.Context, event *domain.FieldEvent) error

type EventSubscriber interface {
	SubscribeFieldEvents(ctx context.Context, handler FieldEventHandler) error
}

// CacheService is a byte-oriented TTL cache. Get returns domain.ErrNotFound on a miss.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
