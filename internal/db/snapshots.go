package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Snapshot Methods
// -----------------------------------------------------------------------------

// UpsertSnapshot creates or overwrites the snapshot for (company, date).
func (db *DB) UpsertSnapshot(ctx context.Context, s *Snapshot) error {
	byDept, err := marshalCounts(s.ByDepartment)
	if err != nil {
		return err
	}
	byLoc, err := marshalCounts(s.ByLocation)
	if err != nil {
		return err
	}
	bySen, err := marshalCounts(s.BySeniority)
	if err != nil {
		return err
	}
	byEmp, err := marshalCounts(s.ByEmploymentType)
	if err != nil {
		return err
	}

	err = db.q.QueryRow(ctx,
		`INSERT INTO job_posting_snapshots (company_id, snapshot_date, total_open, new_postings,
		                                    closed_postings, by_department, by_location,
		                                    by_seniority, by_employment_type)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (company_id, snapshot_date) DO UPDATE SET
		     total_open = EXCLUDED.total_open,
		     new_postings = EXCLUDED.new_postings,
		     closed_postings = EXCLUDED.closed_postings,
		     by_department = EXCLUDED.by_department,
		     by_location = EXCLUDED.by_location,
		     by_seniority = EXCLUDED.by_seniority,
		     by_employment_type = EXCLUDED.by_employment_type
		 RETURNING id`,
		s.CompanyID, DateOf(s.SnapshotDate), s.TotalOpen, s.NewPostings,
		s.ClosedPostings, byDept, byLoc, bySen, byEmp,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot: %w", err)
	}
	return nil
}

// GetSnapshot retrieves the snapshot for a company on a UTC date, or nil.
func (db *DB) GetSnapshot(ctx context.Context, companyID uuid.UUID, date time.Time) (*Snapshot, error) {
	var s Snapshot
	var byDept, byLoc, bySen, byEmp []byte
	err := db.q.QueryRow(ctx,
		`SELECT id, company_id, snapshot_date, total_open, new_postings, closed_postings,
		        by_department, by_location, by_seniority, by_employment_type
		 FROM job_posting_snapshots WHERE company_id = $1 AND snapshot_date = $2`,
		companyID, DateOf(date),
	).Scan(&s.ID, &s.CompanyID, &s.SnapshotDate, &s.TotalOpen, &s.NewPostings, &s.ClosedPostings,
		&byDept, &byLoc, &bySen, &byEmp)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	for _, f := range []struct {
		raw []byte
		dst *map[string]int
	}{
		{byDept, &s.ByDepartment},
		{byLoc, &s.ByLocation},
		{bySen, &s.BySeniority},
		{byEmp, &s.ByEmploymentType},
	} {
		counts := map[string]int{}
		if len(f.raw) > 0 {
			if err := json.Unmarshal(f.raw, &counts); err != nil {
				return nil, fmt.Errorf("failed to parse snapshot breakdown: %w", err)
			}
		}
		*f.dst = counts
	}
	return &s, nil
}

func marshalCounts(m map[string]int) ([]byte, error) {
	if m == nil {
		m = map[string]int{}
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot breakdown: %w", err)
	}
	return b, nil
}
