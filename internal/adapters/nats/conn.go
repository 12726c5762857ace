package natsadapter

import (
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

const streamName = "FIELDS"

// RawConn opens a plain connection that keeps reconnecting. The WebSocket relay
// uses it directly; the publisher and subscriber layer JetStream on top.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("fieldarchitect"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}

// dialJetStream connects and makes sure the FIELDS stream covers every field
// subject. The connection is closed on any failure.
func dialJetStream(url string) (*nats.Conn, nats.JetStreamContext, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := &nats.StreamConfig{
		Name:      streamName,
		Subjects:  []string{SubjectAll},
		Retention: nats.InterestPolicy,
		MaxAge:    7 * 24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(cfg); err != nil {
		if _, uerr := js.UpdateStream(cfg); uerr != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("ensure stream %s: %w", streamName, uerr)
		}
	}
	return conn, js, nil
}
