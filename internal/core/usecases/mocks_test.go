package usecases_test

import (
	"context"
	"sort"
	"sync"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// --- In-memory FieldRepository ---

type memFieldRepo struct {
	mu     sync.Mutex
	fields map[string]domain.SavedField
	gets   int
	saveFn func(ctx context.Context, f *domain.SavedField) error
}

func newMemFieldRepo() *memFieldRepo {
	return &memFieldRepo{fields: make(map[string]domain.SavedField)}
}

func (m *memFieldRepo) Save(ctx context.Context, f *domain.SavedField) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, f); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[f.ID] = *f
	return nil
}

func (m *memFieldRepo) GetByID(ctx context.Context, id string) (*domain.SavedField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	f, ok := m.fields[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (m *memFieldRepo) List(ctx context.Context) ([]domain.SavedField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.SavedField, 0, len(m.fields))
	for _, f := range m.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memFieldRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fields[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.fields, id)
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	ttls map[string]int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte), ttls: make(map[string]int)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttlSeconds
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	events  []domain.FieldEvent
	batches []domain.SensorBatch
	err     error
}

func (m *mockPublisher) PublishFieldEvent(ctx context.Context, e *domain.FieldEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *e)
	return m.err
}

func (m *mockPublisher) PublishSensorBatch(ctx context.Context, b *domain.SensorBatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, *b)
	return m.err
}

// square is roughly 111 m x 111 m near the equator.
var square = []domain.GeoPoint{
	{Lat: 0, Lon: 0},
	{Lat: 0, Lon: 0.001},
	{Lat: 0.001, Lon: 0.001},
	{Lat: 0.001, Lon: 0},
}

// batchFieldRepo adds SaveBatch to memFieldRepo.
type batchFieldRepo struct {
	*memFieldRepo
	batches  int
	batchErr error
}

func (b *batchFieldRepo) SaveBatch(ctx context.Context, fields []domain.SavedField) error {
	if b.batchErr != nil {
		return b.batchErr
	}
	b.batches++
	for i := range fields {
		if err := b.memFieldRepo.Save(ctx, &fields[i]); err != nil {
			return err
		}
	}
	return nil
}
