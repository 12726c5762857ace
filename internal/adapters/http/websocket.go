package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/fieldarchitect/internal/adapters/nats"
	"github.com/samirrijal/fieldarchitect/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsMessage is a client control frame, e.g.
// {"action":"subscribe","channel":"sensors","field_id":"..."}.
type wsMessage struct {
	Action  string `json:"action"`   // subscribe | unsubscribe
	Channel string `json:"channel"`  // fields (default) | sensors
	FieldID string `json:"field_id"` // sensors only; empty means every field
}

// wsSubject maps a control frame onto a NATS subject.
func wsSubject(m wsMessage) (string, bool) {
	switch m.Channel {
	case "", "fields":
		return natsadapter.SubjectFieldEvents, true
	case "sensors":
		if m.FieldID == "" {
			return natsadapter.SubjectSensorPrefix + ">", true
		}
		return natsadapter.SensorSubject(m.FieldID), true
	}
	return "", false
}

// relayEnvelope tags a relayed event with its subject.
type relayEnvelope struct {
	Subject string          `json:"subject"`
	Data    json.RawMessage `json:"data"`
}

// wsRelay is the state of one WebSocket client. Writes from NATS callbacks,
// the ping loop and the read loop are serialised by mu.
type wsRelay struct {
	conn *websocket.Conn
	nc   *nats.Conn

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

func (r *wsRelay) write(kind int, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn.WriteMessage(kind, data)
}

func (r *wsRelay) send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = r.write(websocket.TextMessage, data)
}

func (r *wsRelay) reply(key, value, subject string) {
	m := map[string]string{key: value}
	if subject != "" {
		m["subject"] = subject
	}
	r.send(m)
}

func (r *wsRelay) forward(msg *nats.Msg) {
	r.send(relayEnvelope{Subject: msg.Subject, Data: json.RawMessage(msg.Data)})
}

func (r *wsRelay) subscribe(subject string) error {
	if _, ok := r.subs[subject]; ok {
		return nil
	}
	sub, err := r.nc.Subscribe(subject, r.forward)
	if err != nil {
		return err
	}
	r.subs[subject] = sub
	return nil
}

func (r *wsRelay) unsubscribe(subject string) bool {
	sub, ok := r.subs[subject]
	if !ok {
		return false
	}
	_ = sub.Unsubscribe()
	delete(r.subs, subject)
	return true
}

func (r *wsRelay) handle(raw []byte) {
	var m wsMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		r.reply("error", "invalid JSON", "")
		return
	}
	subject, ok := wsSubject(m)
	if !ok {
		r.reply("error", "unknown channel: "+m.Channel, "")
		return
	}

	switch m.Action {
	case "subscribe":
		if _, exists := r.subs[subject]; exists {
			r.reply("status", "already subscribed", subject)
			return
		}
		if err := r.subscribe(subject); err != nil {
			r.reply("error", "subscribe failed: "+err.Error(), "")
			return
		}
		r.reply("status", "subscribed", subject)
	case "unsubscribe":
		if !r.unsubscribe(subject) {
			r.reply("error", "not subscribed to "+subject, "")
			return
		}
		r.reply("status", "unsubscribed", subject)
	default:
		r.reply("error", "unknown action: "+m.Action, "")
	}
}

func (r *wsRelay) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := r.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// WebSocketHandler relays field events and sensor batches from NATS. Every
// client starts subscribed to field events.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remote := c.RemoteAddr().String()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		r := &wsRelay{conn: c, nc: nc, subs: make(map[string]*nats.Subscription)}
		defer func() {
			for subject := range r.subs {
				r.unsubscribe(subject)
			}
		}()

		if err := r.subscribe(natsadapter.SubjectFieldEvents); err != nil {
			slog.Error("ws default subscribe failed", "remote", remote, "error", err)
			return
		}
		slog.Info("ws client connected", "remote", remote)

		done := make(chan struct{})
		defer close(done)
		go r.keepAlive(done)

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}
			r.handle(raw)
		}
		slog.Info("ws client disconnected", "remote", remote)
	}
}
