package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
	"github.com/samirrijal/fieldarchitect/internal/workflows"
)

// ---- Mocks ----

type memRepo struct {
	mu     sync.Mutex
	fields map[string]domain.SavedField
}

func (m *memRepo) Save(_ context.Context, f *domain.SavedField) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fields[f.ID] = *f
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*domain.SavedField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.fields[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &f, nil
}

func (m *memRepo) List(_ context.Context) ([]domain.SavedField, error) { return nil, nil }

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.fields, id)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []domain.FieldEvent
	calls  int
	err    error
}

func (p *mockPublisher) PublishFieldEvent(_ context.Context, e *domain.FieldEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, *e)
	return nil
}

func (p *mockPublisher) PublishSensorBatch(context.Context, *domain.SensorBatch) error { return nil }

// ---- Helpers ----

var square = []domain.GeoPoint{
	{Lat: 43.2630, Lon: -2.9350},
	{Lat: 43.2630, Lon: -2.9340},
	{Lat: 43.2640, Lon: -2.9340},
	{Lat: 43.2640, Lon: -2.9350},
}

func setup(t *testing.T, pub *mockPublisher) (*testsuite.TestWorkflowEnvironment, *workflows.SurveyActivities, *domain.SavedField) {
	t.Helper()
	fields := usecases.NewFieldService(&memRepo{fields: map[string]domain.SavedField{}}, nil, nil)
	f, err := fields.Save(context.Background(), "Top meadow", square)
	if err != nil {
		t.Fatalf("seed field: %v", err)
	}
	acts := &workflows.SurveyActivities{
		Fields:    fields,
		Survey:    usecases.NewSurveyService(fields, nil, nil, usecases.SurveyConfig{}),
		Publisher: pub,
	}

	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.FieldSurveyWorkflow)
	env.RegisterActivity(acts)
	return env, acts, f
}

// ---- Tests ----

func TestFieldSurvey_Completes(t *testing.T) {
	pub := &mockPublisher{}
	env, acts, f := setup(t, pub)

	env.ExecuteWorkflow(workflows.FieldSurveyWorkflow, workflows.FieldSurveyInput{FieldID: f.ID, GridSteps: 4, SensorCount: 5})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow failed: %v", err)
	}
	var res workflows.FieldSurveyResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatal(err)
	}
	if res.FieldID != f.ID || res.Requested != 5 || res.Placed != 5 {
		t.Errorf("unexpected result %+v", res)
	}
	if n := res.Health.Healthy + res.Health.Warning + res.Health.Stressed; n == 0 || n > 16 {
		t.Errorf("expected 1-16 raster cells, got %d", n)
	}

	if len(pub.events) != 1 || pub.events[0].Type != "surveyed" || pub.events[0].FieldID != f.ID {
		t.Errorf("expected one surveyed event, got %+v", pub.events)
	}
	if _, err := acts.Survey.Sensors(context.Background(), f.ID); err != nil {
		t.Errorf("expected stored batch, got %v", err)
	}
}

func TestFieldSurvey_CompensatesOnAnnounceFailure(t *testing.T) {
	pub := &mockPublisher{err: errors.New("nats: no responders")}
	env, acts, f := setup(t, pub)

	env.ExecuteWorkflow(workflows.FieldSurveyWorkflow, workflows.FieldSurveyInput{FieldID: f.ID})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatal("expected workflow error")
	}
	if pub.calls != 3 {
		t.Errorf("expected 3 announce attempts, got %d", pub.calls)
	}
	if _, err := acts.Survey.Sensors(context.Background(), f.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected batch removed by compensation, got %v", err)
	}
}

func TestFieldSurvey_MissingFieldIsNotRetried(t *testing.T) {
	pub := &mockPublisher{}
	env, _, _ := setup(t, pub)

	env.ExecuteWorkflow(workflows.FieldSurveyWorkflow, workflows.FieldSurveyInput{FieldID: "deleted-meanwhile"})

	err := env.GetWorkflowError()
	if err == nil {
		t.Fatal("expected workflow error")
	}
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || appErr.Type() != "FieldGone" || !appErr.NonRetryable() {
		t.Errorf("expected non-retryable FieldGone, got %v", err)
	}
	if pub.calls != 0 {
		t.Errorf("nothing should be announced, got %d calls", pub.calls)
	}
}

func TestWorkflowID(t *testing.T) {
	if got := workflows.WorkflowID("abc"); got != "field-survey-abc" {
		t.Errorf("got %q", got)
	}
}
