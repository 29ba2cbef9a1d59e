package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// -----------------------------------------------------------------------------
// Company Methods
// -----------------------------------------------------------------------------

// GetCompany retrieves a company by ID. It returns nil, nil when none exists.
func (db *DB) GetCompany(ctx context.Context, id uuid.UUID) (*Company, error) {
	var c Company
	err := db.q.QueryRow(ctx,
		`SELECT id, name, website, careers_page_url FROM companies WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.Name, &c.Website, &c.CareersPageURL)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// UpsertCompany registers a company, matching existing rows by normalized
// name. Non-empty website and careers URL values replace stored ones.
func (db *DB) UpsertCompany(ctx context.Context, name, website, careersPageURL string) (*Company, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, fmt.Errorf("company name cannot be empty")
	}

	var c Company
	err := db.q.QueryRow(ctx,
		`INSERT INTO companies (name, name_normalized, website, careers_page_url)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		 ON CONFLICT (name_normalized) DO UPDATE SET
		     website = COALESCE(EXCLUDED.website, companies.website),
		     careers_page_url = COALESCE(EXCLUDED.careers_page_url, companies.careers_page_url),
		     updated_at = NOW()
		 RETURNING id, name, website, careers_page_url`,
		strings.TrimSpace(name), normalized, strings.TrimSpace(website), strings.TrimSpace(careersPageURL),
	).Scan(&c.ID, &c.Name, &c.Website, &c.CareersPageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert company: %w", err)
	}
	return &c, nil
}

// ListCompaniesForCollection returns companies that have a website and whose
// ATS config was not crawled within the last skipRecentHours. Companies that
// were never crawled come first. A limit of zero or less means no limit.
func (db *DB) ListCompaniesForCollection(ctx context.Context, limit, skipRecentHours int) ([]Company, error) {
	rows, err := db.q.Query(ctx,
		`SELECT c.id, c.name, c.website, c.careers_page_url
		 FROM companies c
		 LEFT JOIN company_ats_config a ON a.company_id = c.id
		 WHERE c.website IS NOT NULL AND c.website <> ''
		   AND (a.last_crawled_at IS NULL
		        OR a.last_crawled_at < NOW() - make_interval(hours => $1))
		 ORDER BY a.last_crawled_at ASC NULLS FIRST, c.name ASC
		 LIMIT NULLIF($2, 0)`,
		skipRecentHours, max(limit, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies for collection: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Website, &c.CareersPageURL); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}
