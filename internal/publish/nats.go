package publish

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/motleylight/LogParser/internal/frame"
	"github.com/motleylight/LogParser/internal/render"
)

// Envelope is the JSON message published per frame: the structured
// frame record plus the ingest connection it came from.
type Envelope struct {
	ConnID string `json:"conn_id"`
	render.Record
}

// Publisher sends frame records to NATS subjects named
// <prefix>.<kind>, plus a <prefix>.all firehose.
type Publisher struct {
	conn   *nats.Conn
	prefix string
	logger *slog.Logger
}

// Connect establishes the NATS connection for the frame sink.
func Connect(url, prefix string, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(url, nats.Name("framelog-ingest"))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	return &Publisher{conn: conn, prefix: prefix, logger: logger}, nil
}

// Publish sends one classified frame.
func (p *Publisher) Publish(connID string, f frame.Frame) error {
	env := Envelope{ConnID: connID, Record: render.NewRecord(f)}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal frame record: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", p.prefix, f.Kind)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	if err := p.conn.Publish(p.prefix+".all", data); err != nil {
		return fmt.Errorf("publish to %s.all: %w", p.prefix, err)
	}

	return nil
}

// Close drains and closes the NATS connection.
func (p *Publisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("Error draining NATS connection", slog.String("error", err.Error()))
	}
	p.conn.Close()
}
