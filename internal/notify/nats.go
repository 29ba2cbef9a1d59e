// Package notify publishes hiring alerts to NATS subscribers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is the subject root; alerts go to <prefix>.<alert_type>.
const DefaultSubjectPrefix = "jobintel.alerts"

// EventHiringAlert names the envelope published for each alert.
const EventHiringAlert = "hiring_alert"

// Conn is the subset of *nats.Conn used for publishing.
type Conn interface {
	Publish(subj string, data []byte) error
}

// AlertEvent is the message body published for an alert.
type AlertEvent struct {
	Event       string    `json:"event"`
	Alert       db.Alert  `json:"alert"`
	PublishedAt time.Time `json:"published_at"`
}

// Connect dials a NATS server with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("jobintel"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// Publisher sends alerts to NATS.
type Publisher struct {
	conn   Conn
	prefix string
	now    func() time.Time
}

// NewPublisher creates a publisher. An empty prefix uses DefaultSubjectPrefix.
func NewPublisher(conn Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{conn: conn, prefix: prefix, now: time.Now}
}

// Subject returns the subject an alert type is published on.
func (p *Publisher) Subject(alertType string) string {
	return p.prefix + "." + alertType
}

// PublishAlert publishes one alert. NATS publishing is fire-and-forget;
// ctx only short-circuits when it is already done.
func (p *Publisher) PublishAlert(ctx context.Context, a db.Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(AlertEvent{Event: EventHiringAlert, Alert: a, PublishedAt: p.now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}
	subject := p.Subject(a.AlertType)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}
