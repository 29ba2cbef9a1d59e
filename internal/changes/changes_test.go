package changes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2026, 5, 18, 0, 0, 0, 0, time.UTC)

func snap(date time.Time, total int, depts map[string]int) *db.Snapshot {
	return &db.Snapshot{SnapshotDate: date, TotalOpen: total, ByDepartment: depts}
}

func TestEvaluate_CompanyRules(t *testing.T) {
	tests := []struct {
		name         string
		prev, cur    int
		wantType     string
		wantSeverity string
		wantPct      float64
	}{
		{"surge high at 75%", 20, 35, db.AlertHiringSurge, db.SeverityHigh, 75},
		{"surge medium at 50%", 30, 45, db.AlertHiringSurge, db.SeverityMedium, 50},
		{"surge high on doubling", 10, 31, db.AlertHiringSurge, db.SeverityHigh, 210},
		{"below surge threshold", 40, 59, "", "", 0},
		{"freeze medium", 40, 26, db.AlertHiringFreeze, db.SeverityMedium, -35},
		{"freeze high by pct", 40, 10, db.AlertHiringFreeze, db.SeverityHigh, -75},
		{"freeze high by floor", 20, 5, db.AlertHiringFreeze, db.SeverityHigh, -75},
		{"small decline", 50, 36, "", "", 0},
		{"both below min base", 8, 9, "", "", 0},
		{"collapse below min base", 9, 0, "", "", 0},
		{"flat", 100, 100, "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := uuid.New()
			alerts := Evaluate(id, snap(today, tt.cur, nil), snap(today.AddDate(0, 0, -7), tt.prev, nil))
			if tt.wantType == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			a := alerts[0]
			assert.Equal(t, tt.wantType, a.AlertType)
			assert.Equal(t, tt.wantSeverity, a.Severity)
			assert.InDelta(t, tt.wantPct, a.ChangePct, 0.01)
			assert.Equal(t, tt.cur, a.CurrentTotal)
			assert.Equal(t, tt.prev, a.PreviousTotal)
			assert.Equal(t, tt.cur-tt.prev, a.ChangeAbs)
			assert.Equal(t, id, a.CompanyID)
			assert.Equal(t, today, a.SnapshotDate)
			assert.Nil(t, a.Department)
		})
	}
}

func TestEvaluate_DepartmentRules(t *testing.T) {
	current := snap(today, 100, map[string]int{
		"Engineering": 12,
		"Sales":       4,
		"Operations":  6,
		"Design":      5,
		"Support":     20,
	})
	previous := snap(today.AddDate(0, 0, -7), 100, map[string]int{
		"Engineering": 5,
		"Sales":       10,
		"Operations":  2,
		"Legal":       6,
		"Support":     14,
	})

	alerts := Evaluate(uuid.New(), current, previous)

	got := map[string]db.Alert{}
	for _, a := range alerts {
		require.NotNil(t, a.Department)
		assert.Equal(t, db.SeverityLow, a.Severity)
		got[*a.Department] = a
	}

	require.Len(t, got, 4)
	assert.Equal(t, db.AlertDepartmentSurge, got["Engineering"].AlertType)
	assert.InDelta(t, 140, got["Engineering"].ChangePct, 0.01)
	assert.Equal(t, db.AlertDepartmentSurge, got["Design"].AlertType)
	assert.Equal(t, db.AlertDepartmentDecline, got["Sales"].AlertType)
	assert.Equal(t, db.AlertDepartmentDecline, got["Legal"].AlertType)
	assert.Equal(t, -6, got["Legal"].ChangeAbs)

	// |Δ| < 5 is skipped; +6 at 43% matches neither rule.
	assert.NotContains(t, got, "Operations")
	assert.NotContains(t, got, "Support")
}

func TestEvaluate_MissingSnapshot(t *testing.T) {
	assert.Nil(t, Evaluate(uuid.New(), nil, snap(today, 10, nil)))
	assert.Nil(t, Evaluate(uuid.New(), snap(today, 10, nil), nil))
}

func TestPercentChange(t *testing.T) {
	assert.Equal(t, 75.0, PercentChange(20, 35))
	assert.Equal(t, -50.0, PercentChange(10, 5))
	assert.Equal(t, 33.33, PercentChange(3, 4))
	assert.Equal(t, 100.0, PercentChange(0, 7))
	assert.Equal(t, 0.0, PercentChange(0, 0))
}

type fakeStore struct {
	snapshots map[time.Time]*db.Snapshot
	alerts    []db.Alert
	insertErr error
}

func (f *fakeStore) GetSnapshot(_ context.Context, _ uuid.UUID, date time.Time) (*db.Snapshot, error) {
	return f.snapshots[db.DateOf(date)], nil
}

func (f *fakeStore) InsertAlert(_ context.Context, a *db.Alert) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, existing := range f.alerts {
		if existing.CompanyID == a.CompanyID && existing.AlertType == a.AlertType &&
			existing.SnapshotDate.Equal(db.DateOf(a.SnapshotDate)) &&
			deptKey(existing.Department) == deptKey(a.Department) {
			return db.ErrAlertExists
		}
	}
	a.ID = uuid.New()
	a.SnapshotDate = db.DateOf(a.SnapshotDate)
	f.alerts = append(f.alerts, *a)
	return nil
}

func deptKey(d *string) string {
	if d == nil {
		return ""
	}
	return *d
}

type fakePublisher struct {
	published []db.Alert
	err       error
}

func (p *fakePublisher) PublishAlert(_ context.Context, a db.Alert) error {
	p.published = append(p.published, a)
	return p.err
}

type countingMetrics struct{ n int }

func (m *countingMetrics) AlertEmitted(string, string) { m.n++ }

func TestDetector_Detect(t *testing.T) {
	store := &fakeStore{snapshots: map[time.Time]*db.Snapshot{
		today:                   snap(today, 35, nil),
		today.AddDate(0, 0, -7): snap(today.AddDate(0, 0, -7), 20, nil),
	}}
	pub := &fakePublisher{}
	metrics := &countingMetrics{}
	d := NewDetector(store, Options{Publisher: pub, Metrics: metrics})

	alerts, err := d.Detect(context.Background(), uuid.New(), today.Add(15*time.Hour))
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, db.AlertHiringSurge, alerts[0].AlertType)
	assert.NotEqual(t, uuid.Nil, alerts[0].ID)
	assert.Len(t, store.alerts, 1)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, 1, metrics.n)
}

func TestDetector_SameDayRerunStoresOnce(t *testing.T) {
	store := &fakeStore{snapshots: map[time.Time]*db.Snapshot{
		today:                   snap(today, 35, nil),
		today.AddDate(0, 0, -7): snap(today.AddDate(0, 0, -7), 20, nil),
	}}
	pub := &fakePublisher{}
	metrics := &countingMetrics{}
	d := NewDetector(store, Options{Publisher: pub, Metrics: metrics})
	companyID := uuid.New()

	first, err := d.Detect(context.Background(), companyID, today.Add(9*time.Hour))
	require.NoError(t, err)
	require.Len(t, first, 1)

	for _, at := range []time.Duration{13 * time.Hour, 21 * time.Hour} {
		again, err := d.Detect(context.Background(), companyID, today.Add(at))
		require.NoError(t, err)
		assert.Empty(t, again)
	}

	assert.Len(t, store.alerts, 1)
	assert.Len(t, pub.published, 1)
	assert.Equal(t, 1, metrics.n)

	// A different company on the same day is unaffected.
	other, err := d.Detect(context.Background(), uuid.New(), today)
	require.NoError(t, err)
	assert.Len(t, other, 1)
	assert.Len(t, store.alerts, 2)
}

func TestDetector_ColdStart(t *testing.T) {
	store := &fakeStore{snapshots: map[time.Time]*db.Snapshot{
		today: snap(today, 35, nil),
	}}
	d := NewDetector(store, Options{})

	alerts, err := d.Detect(context.Background(), uuid.New(), today)
	require.NoError(t, err)
	assert.Empty(t, alerts)
	assert.Empty(t, store.alerts)

	alerts, err = d.Detect(context.Background(), uuid.New(), today.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestDetector_PublishFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{snapshots: map[time.Time]*db.Snapshot{
		today:                   snap(today, 5, nil),
		today.AddDate(0, 0, -7): snap(today.AddDate(0, 0, -7), 40, nil),
	}}
	pub := &fakePublisher{err: errors.New("nats down")}
	d := NewDetector(store, Options{Publisher: pub})

	alerts, err := d.Detect(context.Background(), uuid.New(), today)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, db.AlertHiringFreeze, alerts[0].AlertType)
	assert.Len(t, store.alerts, 1)
}

func TestDetector_InsertFailure(t *testing.T) {
	store := &fakeStore{
		snapshots: map[time.Time]*db.Snapshot{
			today:                   snap(today, 35, nil),
			today.AddDate(0, 0, -7): snap(today.AddDate(0, 0, -7), 20, nil),
		},
		insertErr: errors.New("constraint violation"),
	}
	d := NewDetector(store, Options{})

	_, err := d.Detect(context.Background(), uuid.New(), today)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "constraint violation")
}
