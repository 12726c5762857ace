package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
)

// Subjects on the FIELDS stream. Field events go to fields.<type>
// (saved, deleted, surveyed) and sensor batches to fields.sensors.<field id>.
const (
	SubjectFieldEvents  = "fields.*"
	SubjectSensorPrefix = "fields.sensors."
	SubjectAll          = "fields.>"
)

// FieldEventSubject returns the subject a field event of eventType goes to.
func FieldEventSubject(eventType string) string { return "fields." + eventType }

// SensorSubject returns the subject a field's sensor batches go to.
func SensorSubject(fieldID string) string { return SubjectSensorPrefix + fieldID }

// Publisher implements ports.EventPublisher on JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

func NewPublisher(url string) (*Publisher, error) {
	conn, js, err := dialJetStream(url)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", subject, err)
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (p *Publisher) PublishFieldEvent(ctx context.Context, event *domain.FieldEvent) error {
	return p.publish(ctx, FieldEventSubject(event.Type), event)
}

func (p *Publisher) PublishSensorBatch(ctx context.Context, batch *domain.SensorBatch) error {
	return p.publish(ctx, SensorSubject(batch.FieldID), batch)
}

func (p *Publisher) Connected() bool { return p.conn.IsConnected() }

func (p *Publisher) Close() { _ = p.conn.Drain() }
