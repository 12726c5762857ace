package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/core/survey"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
)

// errTypeFieldGone marks a field deleted before its survey ran. Not retried.
const errTypeFieldGone = "FieldGone"

// SurveyActivities holds the activity implementations for FieldSurveyWorkflow.
type SurveyActivities struct {
	Fields    *usecases.FieldService
	Survey    *usecases.SurveyService
	Publisher ports.EventPublisher // optional
}

// LoadField fetches the boundary to survey.
func (a *SurveyActivities) LoadField(ctx context.Context, fieldID string) (*domain.SavedField, error) {
	f, err := a.Fields.GetByID(ctx, fieldID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, temporal.NewNonRetryableApplicationError("field "+fieldID+" not found", errTypeFieldGone, err)
	}
	if err != nil {
		return nil, fmt.Errorf("load field %s: %w", fieldID, err)
	}
	return f, nil
}

// ComputeHealth rasterises the field and returns the class counts.
func (a *SurveyActivities) ComputeHealth(ctx context.Context, vertices []domain.GeoPoint, steps int) (survey.Summary, error) {
	cells := a.Survey.HealthRaster(ctx, vertices, steps)
	return survey.Summarize(cells), nil
}

// DeploySensors places and stores a fresh sensor batch.
func (a *SurveyActivities) DeploySensors(ctx context.Context, fieldID string, count, maxAttempts int) (*domain.SensorBatch, error) {
	batch, err := a.Survey.DeploySensors(ctx, fieldID, count, maxAttempts)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, temporal.NewNonRetryableApplicationError("field "+fieldID+" not found", errTypeFieldGone, err)
	}
	if err != nil {
		return nil, fmt.Errorf("deploy sensors on %s: %w", fieldID, err)
	}
	activity.GetLogger(ctx).Info("sensors deployed", "field_id", fieldID, "placed", len(batch.Sensors), "requested", batch.Requested)
	return batch, nil
}

// AnnounceSurvey publishes a "surveyed" event for the field.
func (a *SurveyActivities) AnnounceSurvey(ctx context.Context, result FieldSurveyResult) error {
	if a.Publisher == nil {
		activity.GetLogger(ctx).Info("no publisher, survey not announced", "field_id", result.FieldID)
		return nil
	}
	event := &domain.FieldEvent{
		Type:    "surveyed",
		FieldID: result.FieldID,
		Name:    result.Name,
		AreaM2:  result.AreaM2,
		Time:    time.Now().UTC(),
	}
	if err := a.Publisher.PublishFieldEvent(ctx, event); err != nil {
		return fmt.Errorf("announce survey of %s: %w", result.FieldID, err)
	}
	return nil
}

// ClearSensors drops the batch deployed by a failed survey (saga compensation).
func (a *SurveyActivities) ClearSensors(ctx context.Context, fieldID string) error {
	if err := a.Survey.ClearSensors(ctx, fieldID); err != nil {
		return fmt.Errorf("clear sensors on %s: %w", fieldID, err)
	}
	activity.GetLogger(ctx).Info("sensor batch removed (saga compensation)", "field_id", fieldID)
	return nil
}
