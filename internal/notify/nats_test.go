package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	messages []message
	err      error
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, message{subj, data})
	return nil
}

func TestPublisher_PublishAlert(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(conn, "")
	fixed := time.Date(2026, 5, 18, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	dept := "Engineering"
	alert := db.Alert{
		ID:            uuid.New(),
		CompanyID:     uuid.New(),
		AlertType:     db.AlertDepartmentSurge,
		Severity:      db.SeverityLow,
		CurrentTotal:  12,
		PreviousTotal: 5,
		ChangePct:     140,
		ChangeAbs:     7,
		Department:    &dept,
	}

	require.NoError(t, p.PublishAlert(context.Background(), alert))
	require.Len(t, conn.messages, 1)
	assert.Equal(t, "jobintel.alerts.department_surge", conn.messages[0].subject)

	var ev AlertEvent
	require.NoError(t, json.Unmarshal(conn.messages[0].data, &ev))
	assert.Equal(t, EventHiringAlert, ev.Event)
	assert.Equal(t, alert.ID, ev.Alert.ID)
	assert.Equal(t, "Engineering", *ev.Alert.Department)
	assert.True(t, fixed.Equal(ev.PublishedAt))
}

func TestPublisher_CustomPrefix(t *testing.T) {
	p := NewPublisher(&fakeConn{}, "acme.hiring")
	assert.Equal(t, "acme.hiring.hiring_freeze", p.Subject(db.AlertHiringFreeze))
}

func TestPublisher_Errors(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	p := NewPublisher(conn, "")

	err := p.PublishAlert(context.Background(), db.Alert{AlertType: db.AlertHiringSurge})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jobintel.alerts.hiring_surge")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.PublishAlert(ctx, db.Alert{AlertType: db.AlertHiringSurge})
	assert.ErrorIs(t, err, context.Canceled)
}
