package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/fieldarchitect/internal/core/domain"
	"github.com/samirrijal/fieldarchitect/internal/core/ports"
)

const maxDeliver = 3

// Subscriber implements ports.EventSubscriber with a durable JetStream consumer.
type Subscriber struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	durable string
	subs    []*nats.Subscription
}

// NewSubscriber connects to NATS. durable names the consumer, so restarts
// resume where the previous process stopped.
func NewSubscriber(url, durable string) (*Subscriber, error) {
	conn, js, err := dialJetStream(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{conn: conn, js: js, durable: durable}, nil
}

// SubscribeFieldEvents delivers every fields.<type> event to handler. Sensor
// batches are not field events and are not delivered. A handler error
// redelivers the message up to maxDeliver times, except domain.ErrNotFound,
// which terminates it.
func (s *Subscriber) SubscribeFieldEvents(ctx context.Context, handler ports.FieldEventHandler) error {
	sub, err := s.js.Subscribe(SubjectFieldEvents, func(msg *nats.Msg) {
		var event domain.FieldEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			slog.WarnContext(ctx, "dropping malformed field event", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		err := handler(ctx, &event)
		switch {
		case err == nil:
			_ = msg.Ack()
		case errors.Is(err, domain.ErrNotFound):
			slog.DebugContext(ctx, "field gone, dropping event", "field_id", event.FieldID, "type", event.Type)
			_ = msg.Term()
		default:
			slog.WarnContext(ctx, "field event handler failed", "field_id", event.FieldID, "type", event.Type, "error", err)
			_ = msg.Nak()
		}
	},
		nats.Durable(s.durable),
		nats.ManualAck(),
		nats.MaxDeliver(maxDeliver),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
