package main

import (
	"context"
	"log"
	"log/slog"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/fieldarchitect/internal/adapters/breaker"
	natsadapter "github.com/samirrijal/fieldarchitect/internal/adapters/nats"
	"github.com/samirrijal/fieldarchitect/internal/adapters/postgres"
	"github.com/samirrijal/fieldarchitect/internal/adapters/valkey"
	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
	"github.com/samirrijal/fieldarchitect/internal/pkg/config"
	"github.com/samirrijal/fieldarchitect/internal/pkg/logging"
	"github.com/samirrijal/fieldarchitect/internal/pkg/retry"
	"github.com/samirrijal/fieldarchitect/internal/workflows"
)

// surveyor runs the FieldSurveyWorkflow worker and starts a survey for every saved field.
func main() {
	cfg, err := config.Load("fieldarchitect-surveyor")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cache: sensor batches must land where the API reads them
	kv, err := retry.Value(ctx, retry.DefaultPolicy, "valkey", func() (*valkey.Cache, error) {
		return valkey.New(cfg.Valkey.Addr)
	})
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer kv.Close()

	var store ports.FieldRepository
	if cfg.Storage.Driver == "valkey" {
		store = valkey.NewFieldStore(kv.Client())
	} else {
		db, err := retry.Value(ctx, retry.DefaultPolicy, "postgres", func() (*postgres.DB, error) {
			return postgres.New(ctx, cfg.Database.DSN(),
				postgres.WithMaxConns(cfg.Database.MaxConns),
				postgres.WithApplicationName(cfg.Telemetry.ServiceName))
		})
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store = postgres.NewFieldRepo(db)
	}
	store = breaker.New("field-store", store, breaker.Settings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		Interval:    time.Duration(cfg.Breaker.IntervalSec) * time.Second,
	})

	pub, err := retry.Value(ctx, retry.DefaultPolicy, "nats", func() (*natsadapter.Publisher, error) {
		return natsadapter.NewPublisher(cfg.NATS.URL)
	})
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	fields := usecases.NewFieldService(store, kv, pub)
	surveys := usecases.NewSurveyService(fields, kv, pub, usecases.SurveyConfig{
		GridSteps:   cfg.Survey.GridSteps,
		SensorCount: cfg.Survey.SensorCount,
		MaxAttempts: cfg.Survey.MaxAttempts,
		BatchTTL:    time.Duration(cfg.Survey.BatchTTLSecond) * time.Second,
	})

	// Connect to Temporal
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    slog.Default(),
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.FieldSurveyWorkflow)
	w.RegisterActivity(&workflows.SurveyActivities{
		Fields:    fields,
		Survey:    surveys,
		Publisher: pub,
	})

	// Field events → workflow starts
	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL, "surveyor")
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer sub.Close()

	err = sub.SubscribeFieldEvents(ctx, func(ctx context.Context, event *domain.FieldEvent) error {
		return onFieldEvent(ctx, c, cfg.Temporal.TaskQueue, event)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("surveyor worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

func onFieldEvent(ctx context.Context, c client.Client, taskQueue string, event *domain.FieldEvent) error {
	switch event.Type {
	case "saved":
		// A survey already running for the field is returned instead of started twice.
		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        workflows.WorkflowID(event.FieldID),
			TaskQueue: taskQueue,
		}, workflows.FieldSurveyWorkflow, workflows.FieldSurveyInput{FieldID: event.FieldID})
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "survey started", "field_id", event.FieldID, "run_id", run.GetRunID())
	case "deleted":
		if err := c.CancelWorkflow(ctx, workflows.WorkflowID(event.FieldID), ""); err != nil {
			slog.DebugContext(ctx, "no survey to cancel", "field_id", event.FieldID, "error", err)
		}
	}
	return nil
}
