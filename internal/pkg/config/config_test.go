package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/fieldarchitect/internal/pkg/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("fieldarchitect-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Survey.GridSteps != 8 || cfg.Survey.SensorCount != 8 || cfg.Survey.MaxAttempts != 100 {
		t.Errorf("unexpected survey defaults: %+v", cfg.Survey)
	}
	if cfg.Telemetry.ServiceName != "fieldarchitect-test" {
		t.Errorf("expected service name from argument, got %s", cfg.Telemetry.ServiceName)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIELDARCHITECT_SERVER_PORT", "9090")
	t.Setenv("FIELDARCHITECT_STORAGE_DRIVER", "valkey")

	cfg, err := config.Load("fieldarchitect-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "valkey" {
		t.Errorf("expected valkey driver, got %s", cfg.Storage.Driver)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = "sqlite"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"server.port", "storage.driver", "nats.url", "survey.grid_steps"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got:\n%s", want, err)
		}
	}
}
