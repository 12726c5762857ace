package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/survey"
)

// FieldSurveyInput is the input for FieldSurveyWorkflow. Zero counts use the service defaults.
type FieldSurveyInput struct {
	FieldID     string
	GridSteps   int
	SensorCount int
	MaxAttempts int
}

// FieldSurveyResult summarises a completed survey.
type FieldSurveyResult struct {
	FieldID   string
	Name      string
	AreaM2    float64
	Health    survey.Summary
	Requested int
	Placed    int
}

// WorkflowID is the id used for the survey of fieldID, so a field has at most one running survey.
func WorkflowID(fieldID string) string { return "field-survey-" + fieldID }

// FieldSurveyWorkflow loads a saved field, computes its health raster,
// deploys a sensor batch and announces the result. If the announcement
// fails, the batch is removed (saga compensation).
func FieldSurveyWorkflow(ctx workflow.Context, input FieldSurveyInput) (*FieldSurveyResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting field survey", "fieldID", input.FieldID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: Load the boundary
	var field domain.SavedField
	if err := workflow.ExecuteActivity(ctx, "LoadField", input.FieldID).Get(ctx, &field); err != nil {
		return nil, err
	}

	// Step 2: Health raster
	result := &FieldSurveyResult{FieldID: field.ID, Name: field.Name, AreaM2: field.AreaM2}
	if err := workflow.ExecuteActivity(ctx, "ComputeHealth", field.Vertices, input.GridSteps).Get(ctx, &result.Health); err != nil {
		return nil, err
	}

	// Step 3: Sensors
	var batch domain.SensorBatch
	err := workflow.ExecuteActivity(ctx, "DeploySensors", field.ID, input.SensorCount, input.MaxAttempts).Get(ctx, &batch)
	if err != nil {
		return nil, err
	}
	result.Requested = batch.Requested
	result.Placed = len(batch.Sensors)

	// Step 4: Announce
	if err := workflow.ExecuteActivity(ctx, "AnnounceSurvey", *result).Get(ctx, nil); err != nil {
		logger.Warn("announce failed, compensating", "error", err)
		// Compensate: remove the batch
		_ = workflow.ExecuteActivity(ctx, "ClearSensors", field.ID).Get(ctx, nil)
		return nil, err
	}

	logger.Info("Field survey complete", "fieldID", field.ID, "placed", result.Placed, "requested", result.Requested)
	return result, nil
}
