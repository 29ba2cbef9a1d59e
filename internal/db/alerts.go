package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrAlertExists is returned by InsertAlert when the same alert was already
// stored for the company, snapshot date and department.
var ErrAlertExists = errors.New("alert already recorded")

// -----------------------------------------------------------------------------
// Alert Methods
// -----------------------------------------------------------------------------

// InsertAlert appends an alert and sets its ID and CreatedAt. At most one alert
// of each type is kept per company, snapshot date and department; a repeat
// returns ErrAlertExists.
func (db *DB) InsertAlert(ctx context.Context, a *Alert) error {
	details := a.Details
	if details == nil {
		details = map[string]any{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to marshal alert details: %w", err)
	}

	err = db.q.QueryRow(ctx,
		`INSERT INTO job_posting_alerts (company_id, alert_type, severity, snapshot_date,
		                                 current_total, previous_total, change_pct, change_abs,
		                                 department, details, acknowledged)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (company_id, snapshot_date, alert_type, (COALESCE(department, ''))) DO NOTHING
		 RETURNING id, created_at`,
		a.CompanyID, a.AlertType, a.Severity, DateOf(a.SnapshotDate),
		a.CurrentTotal, a.PreviousTotal, a.ChangePct, a.ChangeAbs,
		a.Department, detailsJSON, a.Acknowledged,
	).Scan(&a.ID, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrAlertExists
	}
	if err != nil {
		return fmt.Errorf("failed to insert %s alert: %w", a.AlertType, err)
	}
	return nil
}

// ListAlerts returns a company's most recent alerts, newest first.
func (db *DB) ListAlerts(ctx context.Context, companyID uuid.UUID, limit int) ([]Alert, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.q.Query(ctx,
		`SELECT id, company_id, alert_type, severity, snapshot_date, current_total, previous_total,
		        change_pct, change_abs, department, details, acknowledged, created_at
		 FROM job_posting_alerts WHERE company_id = $1
		 ORDER BY snapshot_date DESC, created_at DESC LIMIT $2`,
		companyID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []Alert
	for rows.Next() {
		var a Alert
		var detailsJSON []byte
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.AlertType, &a.Severity, &a.SnapshotDate,
			&a.CurrentTotal, &a.PreviousTotal, &a.ChangePct, &a.ChangeAbs, &a.Department,
			&detailsJSON, &a.Acknowledged, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if len(detailsJSON) > 0 {
			_ = json.Unmarshal(detailsJSON, &a.Details)
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
