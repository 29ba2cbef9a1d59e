package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/skills"
)

// -----------------------------------------------------------------------------
// Job Posting Methods
// -----------------------------------------------------------------------------

const postingColumns = `id, company_id, external_job_id, title, title_normalized, department, team,
	location, employment_type, workplace_type, seniority_level, salary_min, salary_max,
	salary_currency, salary_interval, description_text, requirements, source_url, ats_type,
	status, first_seen_at, last_seen_at, closed_at, posted_date`

// ListPostings returns every posting for a company, open and closed.
func (db *DB) ListPostings(ctx context.Context, companyID uuid.UUID) ([]Posting, error) {
	rows, err := db.q.Query(ctx,
		`SELECT `+postingColumns+` FROM job_postings WHERE company_id = $1 ORDER BY first_seen_at, external_job_id`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list postings: %w", err)
	}
	defer rows.Close()

	var postings []Posting
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		postings = append(postings, *p)
	}
	return postings, rows.Err()
}

// GetPosting retrieves a posting by its external ID within a company.
func (db *DB) GetPosting(ctx context.Context, companyID uuid.UUID, externalJobID string) (*Posting, error) {
	row := db.q.QueryRow(ctx,
		`SELECT `+postingColumns+` FROM job_postings WHERE company_id = $1 AND external_job_id = $2`,
		companyID, externalJobID,
	)
	p, err := scanPosting(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// InsertPosting stores a new posting and sets p.ID.
func (db *DB) InsertPosting(ctx context.Context, p *Posting) error {
	reqJSON, err := marshalRequirements(p.Requirements)
	if err != nil {
		return err
	}
	if p.Status == "" {
		p.Status = PostingOpen
	}

	err = db.q.QueryRow(ctx,
		`INSERT INTO job_postings (company_id, external_job_id, title, title_normalized, department, team,
		                           location, employment_type, workplace_type, seniority_level,
		                           salary_min, salary_max, salary_currency, salary_interval,
		                           description_text, requirements, source_url, ats_type, status,
		                           first_seen_at, last_seen_at, closed_at, posted_date)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		 RETURNING id`,
		p.CompanyID, p.ExternalJobID, p.Title, p.TitleNormalized, p.Department, p.Team,
		p.Location, p.EmploymentType, p.WorkplaceType, p.SeniorityLevel,
		p.SalaryMin, p.SalaryMax, p.SalaryCurrency, p.SalaryInterval,
		p.DescriptionText, reqJSON, p.SourceURL, string(p.ATSType), string(p.Status),
		p.FirstSeenAt, p.LastSeenAt, p.ClosedAt, p.PostedDate,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert posting %s: %w", p.ExternalJobID, err)
	}
	return nil
}

// UpdatePosting writes every mutable column of p. Callers merge incoming
// values onto the stored record first.
func (db *DB) UpdatePosting(ctx context.Context, p *Posting) error {
	reqJSON, err := marshalRequirements(p.Requirements)
	if err != nil {
		return err
	}

	result, err := db.q.Exec(ctx,
		`UPDATE job_postings SET
		     title = $2, title_normalized = $3, department = $4, team = $5, location = $6,
		     employment_type = $7, workplace_type = $8, seniority_level = $9,
		     salary_min = $10, salary_max = $11, salary_currency = $12, salary_interval = $13,
		     description_text = $14, requirements = $15, source_url = $16, ats_type = $17,
		     status = $18, last_seen_at = $19, closed_at = $20, posted_date = $21
		 WHERE id = $1`,
		p.ID, p.Title, p.TitleNormalized, p.Department, p.Team, p.Location,
		p.EmploymentType, p.WorkplaceType, p.SeniorityLevel,
		p.SalaryMin, p.SalaryMax, p.SalaryCurrency, p.SalaryInterval,
		p.DescriptionText, reqJSON, p.SourceURL, string(p.ATSType),
		string(p.Status), p.LastSeenAt, p.ClosedAt, p.PostedDate,
	)
	if err != nil {
		return fmt.Errorf("failed to update posting %s: %w", p.ExternalJobID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("posting not found: %s", p.ID)
	}
	return nil
}

// ClosePostings marks the given open postings closed at closedAt.
func (db *DB) ClosePostings(ctx context.Context, ids []uuid.UUID, closedAt time.Time) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := db.q.Exec(ctx,
		`UPDATE job_postings SET status = 'closed', closed_at = $2
		 WHERE id = ANY($1) AND status = 'open'`,
		ids, closedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to close postings: %w", err)
	}
	return int(result.RowsAffected()), nil
}

func scanPosting(row pgx.Row) (*Posting, error) {
	var p Posting
	var reqJSON []byte
	var atsType, status string
	err := row.Scan(&p.ID, &p.CompanyID, &p.ExternalJobID, &p.Title, &p.TitleNormalized,
		&p.Department, &p.Team, &p.Location, &p.EmploymentType, &p.WorkplaceType,
		&p.SeniorityLevel, &p.SalaryMin, &p.SalaryMax, &p.SalaryCurrency, &p.SalaryInterval,
		&p.DescriptionText, &reqJSON, &p.SourceURL, &atsType, &status,
		&p.FirstSeenAt, &p.LastSeenAt, &p.ClosedAt, &p.PostedDate)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan posting: %w", err)
	}

	p.ATSType, _ = ats.ParseType(atsType)
	p.Status = PostingStatus(status)
	if len(reqJSON) > 0 {
		var req skills.Requirements
		if err := json.Unmarshal(reqJSON, &req); err == nil {
			p.Requirements = &req
		}
	}
	return &p, nil
}

func marshalRequirements(req *skills.Requirements) ([]byte, error) {
	if req == nil {
		return nil, nil
	}
	b, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal requirements: %w", err)
	}
	return b, nil
}
