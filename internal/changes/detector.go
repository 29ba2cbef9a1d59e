package changes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/db"
)

// Store reads snapshots and appends alerts.
type Store interface {
	GetSnapshot(ctx context.Context, companyID uuid.UUID, date time.Time) (*db.Snapshot, error)
	InsertAlert(ctx context.Context, a *db.Alert) error
}

// Publisher fans an emitted alert out to subscribers.
type Publisher interface {
	PublishAlert(ctx context.Context, a db.Alert) error
}

// Metrics counts emitted alerts.
type Metrics interface {
	AlertEmitted(alertType, severity string)
}

// Options configures a Detector. Every field is optional.
type Options struct {
	Publisher Publisher
	Metrics   Metrics
	Verbose   bool
}

// Detector evaluates and persists week-over-week alerts.
type Detector struct {
	store Store
	opts  Options
}

// NewDetector creates a detector over store.
func NewDetector(store Store, opts Options) *Detector {
	return &Detector{store: store, opts: opts}
}

// Detect compares the snapshot for snapshotDate with the one Lookback days
// earlier, stores any alerts and publishes them. A missing snapshot on either
// side yields no alerts. Alerts already recorded for the date are neither
// returned nor published again, so re-running a day is safe. Publish failures
// are logged and do not fail Detect.
func (d *Detector) Detect(ctx context.Context, companyID uuid.UUID, snapshotDate time.Time) ([]db.Alert, error) {
	day := db.DateOf(snapshotDate)

	current, err := d.store.GetSnapshot(ctx, companyID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load current snapshot: %w", err)
	}
	if current == nil {
		d.logf("No snapshot for %s on %s", companyID, day.Format("2006-01-02"))
		return nil, nil
	}

	previous, err := d.store.GetSnapshot(ctx, companyID, day.AddDate(0, 0, -Lookback))
	if err != nil {
		return nil, fmt.Errorf("failed to load previous snapshot: %w", err)
	}
	if previous == nil {
		d.logf("No baseline snapshot for %s %d days before %s", companyID, Lookback, day.Format("2006-01-02"))
		return nil, nil
	}

	var stored []db.Alert
	for _, a := range Evaluate(companyID, current, previous) {
		err := d.store.InsertAlert(ctx, &a)
		if errors.Is(err, db.ErrAlertExists) {
			d.logf("%s already recorded for %s on %s", a.AlertType, companyID, day.Format("2006-01-02"))
			continue
		}
		if err != nil {
			return nil, err
		}
		stored = append(stored, a)
		log.Printf("[CHANGES] %s (%s) for %s: %d -> %d (%+.1f%%)",
			a.AlertType, a.Severity, companyID, a.PreviousTotal, a.CurrentTotal, a.ChangePct)

		if d.opts.Metrics != nil {
			d.opts.Metrics.AlertEmitted(a.AlertType, a.Severity)
		}
		if d.opts.Publisher != nil {
			if err := d.opts.Publisher.PublishAlert(ctx, a); err != nil {
				log.Printf("[CHANGES] Failed to publish %s alert: %v", a.AlertType, err)
			}
		}
	}
	return stored, nil
}

func (d *Detector) logf(format string, args ...any) {
	if d.opts.Verbose {
		log.Printf("[CHANGES] "+format, args...)
	}
}
