package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldarchitect/internal/core/usecases"
)

// Pinger is a backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Sessions *usecases.SessionService
	Fields   *usecases.FieldService
	Survey   *usecases.SurveyService
	NATS     *nats.Conn
	Store    Pinger // field store backend, postgres or valkey
	Cache    Pinger
}
