package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldarchitect/internal/adapters/breaker"
	"github.com/samirrijal/fieldarchitect/internal/adapters/http"
	natsadapter "github.com/samirrijal/fieldarchitect/internal/adapters/nats"
	"github.com/samirrijal/fieldarchitect/internal/adapters/postgres"
	"github.com/samirrijal/fieldarchitect/internal/adapters/valkey"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
	"github.com/samirrijal/fieldarchitect/internal/pkg/config"
	"github.com/samirrijal/fieldarchitect/internal/pkg/logging"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
	"github.com/samirrijal/fieldarchitect/internal/pkg/retry"
	"github.com/samirrijal/fieldarchitect/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("fieldarchitect-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Telemetry.ServiceName, cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Cache (optional). Kept as an interface value only when connected.
	var (
		cache     ports.CacheService
		cachePing http.Pinger
		kv        *valkey.Cache
	)
	err = retry.Do(ctx, retry.DefaultPolicy, "valkey", func() error {
		kv, err = valkey.New(cfg.Valkey.Addr)
		return err
	})
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer kv.Close()
		cache, cachePing = kv, kv
	}

	// Field store
	var (
		store     ports.FieldRepository
		storePing http.Pinger
		db        *postgres.DB
	)
	switch cfg.Storage.Driver {
	case "valkey":
		if kv == nil {
			log.Fatalf("storage.driver=valkey but valkey is unreachable")
		}
		store, storePing = valkey.NewFieldStore(kv.Client()), kv
	default:
		db, err = retry.Value(ctx, retry.DefaultPolicy, "postgres", func() (*postgres.DB, error) {
			return postgres.New(ctx, cfg.Database.DSN(),
				postgres.WithMaxConns(cfg.Database.MaxConns),
				postgres.WithApplicationName(cfg.Telemetry.ServiceName))
		})
		if err != nil {
			log.Fatalf("database: %v", err)
		}
		defer db.Close()
		store, storePing = postgres.NewFieldRepo(db), db
	}
	store = breaker.New("field-store", store, breaker.Settings{
		MaxFailures: cfg.Breaker.MaxFailures,
		OpenTimeout: time.Duration(cfg.Breaker.OpenSeconds) * time.Second,
		Interval:    time.Duration(cfg.Breaker.IntervalSec) * time.Second,
	})

	// NATS (optional)
	var publisher ports.EventPublisher
	var pub *natsadapter.Publisher
	err = retry.Do(ctx, retry.DefaultPolicy, "nats", func() error {
		pub, err = natsadapter.NewPublisher(cfg.NATS.URL)
		return err
	})
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	var natsConn *nats.Conn
	if pub != nil {
		if natsConn, err = natsadapter.RawConn(cfg.NATS.URL); err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
		}
	}

	// Use cases
	fieldSvc := usecases.NewFieldService(store, cache, publisher)
	sessionSvc := usecases.NewSessionService(fieldSvc)
	surveySvc := usecases.NewSurveyService(fieldSvc, cache, publisher, usecases.SurveyConfig{
		GridSteps:   cfg.Survey.GridSteps,
		SensorCount: cfg.Survey.SensorCount,
		MaxAttempts: cfg.Survey.MaxAttempts,
		BatchTTL:    time.Duration(cfg.Survey.BatchTTLSecond) * time.Second,
	})

	deps := &http.Dependencies{
		Sessions: sessionSvc,
		Fields:   fieldSvc,
		Survey:   surveySvc,
		NATS:     natsConn,
		Store:    storePing,
		Cache:    cachePing,
	}

	// Background housekeeping: idle sessions and pool gauges
	idleTTL := time.Duration(cfg.Server.SessionIdleTTL) * time.Second
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n := sessionSvc.Expire(idleTTL); n > 0 {
					slog.Info("expired idle sessions", "count", n)
				}
				if db != nil {
					metrics.UpdateDBPoolMetrics(db.Stat())
				}
			}
		}
	}()

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "FieldArchitect API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "storage", cfg.Storage.Driver)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
