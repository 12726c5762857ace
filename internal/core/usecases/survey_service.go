package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/core/survey"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
	"github.com/samirrijal/fieldarchitect/internal/pkg/telemetry"
)

var tracer = otel.Tracer("github.com/samirrijal/fieldarchitect/internal/core/usecases")

// SurveyConfig holds overlay defaults. Zero values fall back to the survey package defaults.
type SurveyConfig struct {
	GridSteps   int
	SensorCount int
	MaxAttempts int
	BatchTTL    time.Duration
}

// SurveyOption customises a SurveyService.
type SurveyOption func(*SurveyService)

// WithRandSource sets the factory used for each sensor placement or outline.
func WithRandSource(f func() survey.Rand) SurveyOption {
	return func(s *SurveyService) { s.newRand = f }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) SurveyOption {
	return func(s *SurveyService) { s.now = now }
}

// SurveyService produces health rasters and sensor batches for fields.
type SurveyService struct {
	fields    *FieldService
	cache     ports.CacheService
	publisher ports.EventPublisher
	cfg       SurveyConfig
	newRand   func() survey.Rand
	now       func() time.Time

	mu      sync.RWMutex
	batches map[string]*domain.SensorBatch // local copy, cache is shared across instances
}

// NewSurveyService creates a new SurveyService. cache and publisher may be nil.
func NewSurveyService(fields *FieldService, cache ports.CacheService, publisher ports.EventPublisher, cfg SurveyConfig, opts ...SurveyOption) *SurveyService {
	if cfg.GridSteps <= 0 {
		cfg.GridSteps = survey.DefaultGridSteps
	}
	if cfg.SensorCount <= 0 {
		cfg.SensorCount = survey.DefaultSensorCount
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = survey.DefaultMaxAttempts
	}
	if cfg.BatchTTL <= 0 {
		cfg.BatchTTL = 24 * time.Hour
	}
	s := &SurveyService{
		fields:    fields,
		cache:     cache,
		publisher: publisher,
		cfg:       cfg,
		newRand:   func() survey.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		now:       time.Now,
		batches:   make(map[string]*domain.SensorBatch),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func sensorBatchKey(fieldID string) string { return "fields:" + fieldID + ":sensors" }

// Config returns the effective defaults.
func (s *SurveyService) Config() SurveyConfig { return s.cfg }

// HealthRaster computes the raster for an arbitrary polygon.
func (s *SurveyService) HealthRaster(ctx context.Context, vertices []domain.GeoPoint, steps int) []domain.HealthCell {
	_, span := tracer.Start(ctx, telemetry.SpanHealthRaster)
	defer span.End()

	if steps <= 0 {
		steps = s.cfg.GridSteps
	}
	cells := survey.HealthRaster(vertices, steps)
	span.SetAttributes(attribute.Int("raster.steps", steps), attribute.Int("raster.cells", len(cells)))

	sum := survey.Summarize(cells)
	metrics.HealthCells.WithLabelValues(string(domain.Healthy)).Add(float64(sum.Healthy))
	metrics.HealthCells.WithLabelValues(string(domain.Warning)).Add(float64(sum.Warning))
	metrics.HealthCells.WithLabelValues(string(domain.Stressed)).Add(float64(sum.Stressed))
	return cells
}

// FieldHealth computes the raster of a saved field.
func (s *SurveyService) FieldHealth(ctx context.Context, fieldID string, steps int) ([]domain.HealthCell, error) {
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	return s.HealthRaster(ctx, field.Vertices, steps), nil
}

// PlaceSensors samples sensors for an arbitrary polygon. A nil rng uses the configured source.
func (s *SurveyService) PlaceSensors(ctx context.Context, vertices []domain.GeoPoint, count, maxAttempts int, rng survey.Rand) []domain.SensorPoint {
	_, span := tracer.Start(ctx, telemetry.SpanPlaceSensors)
	defer span.End()

	if count <= 0 {
		count = s.cfg.SensorCount
	}
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.MaxAttempts
	}
	if rng == nil {
		rng = s.newRand()
	}
	sensors := survey.PlaceSensors(vertices, count, maxAttempts, rng, s.now().UTC())
	span.SetAttributes(
		attribute.Int("sensors.requested", count),
		attribute.Int("sensors.placed", len(sensors)),
		attribute.Int("sensors.max_attempts", maxAttempts),
	)

	metrics.SensorsPlaced.Observe(float64(len(sensors)))
	if len(sensors) < count {
		metrics.SensorShortfalls.Inc()
	}
	return sensors
}

// DeploySensors places a fresh batch on a saved field, replacing any earlier batch.
func (s *SurveyService) DeploySensors(ctx context.Context, fieldID string, count, maxAttempts int) (*domain.SensorBatch, error) {
	field, err := s.fields.GetByID(ctx, fieldID)
	if err != nil {
		return nil, err
	}
	if count <= 0 {
		count = s.cfg.SensorCount
	}
	if maxAttempts <= 0 {
		maxAttempts = s.cfg.MaxAttempts
	}

	batch := &domain.SensorBatch{
		FieldID:    field.ID,
		Requested:  count,
		Attempts:   maxAttempts,
		Sensors:    s.PlaceSensors(ctx, field.Vertices, count, maxAttempts, nil),
		DeployedAt: s.now().UTC(),
	}
	if len(batch.Sensors) < count {
		slog.InfoContext(ctx, "sensor placement fell short",
			"field_id", field.ID, "requested", count, "placed", len(batch.Sensors))
	}

	if err := s.StoreBatch(ctx, batch); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSensorBatch(ctx, batch); err != nil {
			slog.WarnContext(ctx, "publish sensor batch failed", "field_id", field.ID, "error", err)
		}
	}
	return batch, nil
}

// StoreBatch records batch as the current batch of its field.
func (s *SurveyService) StoreBatch(ctx context.Context, batch *domain.SensorBatch) error {
	s.mu.Lock()
	s.batches[batch.FieldID] = batch
	s.mu.Unlock()

	if s.cache == nil {
		return nil
	}
	data, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("encode sensor batch: %w", err)
	}
	if err := s.cache.Set(ctx, sensorBatchKey(batch.FieldID), data, int(s.cfg.BatchTTL.Seconds())); err != nil {
		return fmt.Errorf("store sensor batch: %w", err)
	}
	return nil
}

// Sensors returns the current batch of a field, or domain.ErrNotFound.
func (s *SurveyService) Sensors(ctx context.Context, fieldID string) (*domain.SensorBatch, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, sensorBatchKey(fieldID)); err == nil {
			var batch domain.SensorBatch
			if err := json.Unmarshal(data, &batch); err == nil {
				metrics.CacheHits.WithLabelValues("sensors").Inc()
				return &batch, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("sensors").Inc()
	}

	s.mu.RLock()
	batch, ok := s.batches[fieldID]
	s.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return batch, nil
}

// ClearSensors drops the current batch of a field.
func (s *SurveyService) ClearSensors(ctx context.Context, fieldID string) error {
	s.mu.Lock()
	delete(s.batches, fieldID)
	s.mu.Unlock()

	if s.cache != nil {
		if err := s.cache.Delete(ctx, sensorBatchKey(fieldID)); err != nil {
			return fmt.Errorf("clear sensor batch: %w", err)
		}
	}
	return nil
}

// SuggestOutline proposes a starting boundary around center.
func (s *SurveyService) SuggestOutline(center domain.GeoPoint) []domain.GeoPoint {
	return survey.SuggestOutline(center, s.newRand())
}
