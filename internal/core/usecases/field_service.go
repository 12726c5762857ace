package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/pkg/geospatial"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
	"github.com/samirrijal/fieldarchitect/internal/pkg/telemetry"
)

const maxFieldNameLen = 120

// FieldService handles saved field boundaries.
type FieldService struct {
	fields    ports.FieldRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
	now       func() time.Time
}

// NewFieldService creates a new FieldService. cache and publisher may be nil.
func NewFieldService(fields ports.FieldRepository, cache ports.CacheService, publisher ports.EventPublisher) *FieldService {
	return &FieldService{fields: fields, cache: cache, publisher: publisher, now: time.Now}
}

func fieldCacheKey(id string) string { return "fields:id:" + id }

// Save validates and stores a new field, computing its area and perimeter.
func (s *FieldService) Save(ctx context.Context, name string, vertices []domain.GeoPoint) (*domain.SavedField, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanFieldSave)
	defer span.End()

	field, err := s.newField(name, vertices)
	if err != nil {
		return nil, err
	}
	if err := s.fields.Save(ctx, field); err != nil {
		return nil, fmt.Errorf("save field: %w", err)
	}
	metrics.FieldsSaved.Inc()

	s.publish(ctx, &domain.FieldEvent{
		Type:    "saved",
		FieldID: field.ID,
		Name:    field.Name,
		AreaM2:  field.AreaM2,
		Time:    field.CreatedAt,
	})
	return field, nil
}

// newField validates a draft and computes its measurements.
func (s *FieldService) newField(name string, vertices []domain.GeoPoint) (*domain.SavedField, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidField)
	}
	if len(name) > maxFieldNameLen {
		return nil, fmt.Errorf("%w: name longer than %d characters", domain.ErrInvalidField, maxFieldNameLen)
	}
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: a boundary needs at least 3 vertices, got %d", domain.ErrInvalidField, len(vertices))
	}
	for i, v := range vertices {
		if v.Lat < -90 || v.Lat > 90 || v.Lon < -180 || v.Lon > 180 {
			return nil, fmt.Errorf("%w: vertex %d out of range (%g, %g)", domain.ErrInvalidField, i, v.Lat, v.Lon)
		}
	}
	return &domain.SavedField{
		ID:         uuid.NewString(),
		Name:       name,
		Vertices:   append([]domain.GeoPoint(nil), vertices...),
		AreaM2:     geospatial.PolygonArea(vertices),
		PerimeterM: geospatial.Perimeter(vertices),
		CreatedAt:  s.now().UTC(),
	}, nil
}

// FieldDraft is an unsaved named boundary.
type FieldDraft struct {
	Name     string
	Vertices []domain.GeoPoint
}

// ImportResult reports a bulk import. Rejected is keyed by draft index.
type ImportResult struct {
	Saved    []domain.SavedField
	Rejected map[int]error
}

// Import validates and stores drafts in one pass. Invalid drafts are
// rejected individually; a store error aborts the import.
func (s *FieldService) Import(ctx context.Context, drafts []FieldDraft) (*ImportResult, error) {
	ctx, span := tracer.Start(ctx, telemetry.SpanFieldImport)
	defer span.End()

	res := &ImportResult{Rejected: make(map[int]error)}
	for i, d := range drafts {
		f, err := s.newField(d.Name, d.Vertices)
		if err != nil {
			res.Rejected[i] = err
			continue
		}
		res.Saved = append(res.Saved, *f)
	}
	span.SetAttributes(
		attribute.Int("import.drafts", len(drafts)),
		attribute.Int("import.rejected", len(res.Rejected)),
	)
	if len(res.Saved) == 0 {
		return res, nil
	}

	if batch, ok := s.fields.(ports.BatchFieldRepository); ok {
		if err := batch.SaveBatch(ctx, res.Saved); err != nil {
			return nil, fmt.Errorf("import fields: %w", err)
		}
	} else {
		for i := range res.Saved {
			if err := s.fields.Save(ctx, &res.Saved[i]); err != nil {
				return nil, fmt.Errorf("import field %q: %w", res.Saved[i].Name, err)
			}
		}
	}
	metrics.FieldsSaved.Add(float64(len(res.Saved)))

	for _, f := range res.Saved {
		s.publish(ctx, &domain.FieldEvent{
			Type:    "saved",
			FieldID: f.ID,
			Name:    f.Name,
			AreaM2:  f.AreaM2,
			Time:    f.CreatedAt,
		})
	}
	return res, nil
}

// GetByID returns a single field.
func (s *FieldService) GetByID(ctx context.Context, id string) (*domain.SavedField, error) {
	cacheKey := fieldCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var field domain.SavedField
			if err := json.Unmarshal(data, &field); err == nil {
				metrics.CacheHits.WithLabelValues("field").Inc()
				return &field, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("field").Inc()
	}

	field, err := s.fields.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(field); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600) // 10 min, fields are immutable once saved
		}
	}
	return field, nil
}

// List returns all fields, newest first.
func (s *FieldService) List(ctx context.Context) ([]domain.SavedField, error) {
	return s.fields.List(ctx)
}

// Delete removes a field and anything cached for it.
func (s *FieldService) Delete(ctx context.Context, id string) error {
	if err := s.fields.Delete(ctx, id); err != nil {
		return err
	}
	metrics.FieldsDeleted.Inc()

	if s.cache != nil {
		_ = s.cache.Delete(ctx, fieldCacheKey(id))
		_ = s.cache.Delete(ctx, sensorBatchKey(id))
	}

	s.publish(ctx, &domain.FieldEvent{Type: "deleted", FieldID: id, Time: s.now().UTC()})
	return nil
}

func (s *FieldService) publish(ctx context.Context, event *domain.FieldEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishFieldEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish field event failed", "type", event.Type, "field_id", event.FieldID, "error", err)
	}
}
