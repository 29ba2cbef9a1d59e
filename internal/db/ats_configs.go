package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/hiring-signals/internal/ats"
)

// -----------------------------------------------------------------------------
// ATS Config Methods
// -----------------------------------------------------------------------------

// GetATSConfig retrieves the ATS config for a company, or nil if none exists.
func (db *DB) GetATSConfig(ctx context.Context, companyID uuid.UUID) (*ATSConfig, error) {
	var cfg ATSConfig
	var atsType, status string
	err := db.q.QueryRow(ctx,
		`SELECT id, company_id, ats_type, board_token, careers_url, api_url,
		        last_crawled_at, last_successful_crawl, total_postings,
		        crawl_status, error_message
		 FROM company_ats_config WHERE company_id = $1`,
		companyID,
	).Scan(&cfg.ID, &cfg.CompanyID, &atsType, &cfg.BoardToken, &cfg.CareersURL, &cfg.APIURL,
		&cfg.LastCrawledAt, &cfg.LastSuccessfulCrawl, &cfg.TotalPostings,
		&status, &cfg.ErrorMessage)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ATS config: %w", err)
	}

	// A row written by an older build may carry a type we no longer know;
	// treat it as unknown so the collector re-detects.
	cfg.ATSType, _ = ats.ParseType(atsType)
	cfg.CrawlStatus = CrawlStatus(status)
	return &cfg, nil
}

// UpsertATSConfig inserts or replaces the config for cfg.CompanyID and sets
// cfg.ID from the stored row.
func (db *DB) UpsertATSConfig(ctx context.Context, cfg *ATSConfig) error {
	if cfg.CrawlStatus == "" {
		cfg.CrawlStatus = CrawlPending
	}
	err := db.q.QueryRow(ctx,
		`INSERT INTO company_ats_config (company_id, ats_type, board_token, careers_url, api_url,
		                                 last_crawled_at, last_successful_crawl, total_postings,
		                                 crawl_status, error_message)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (company_id) DO UPDATE SET
		     ats_type = EXCLUDED.ats_type,
		     board_token = EXCLUDED.board_token,
		     careers_url = EXCLUDED.careers_url,
		     api_url = EXCLUDED.api_url,
		     last_crawled_at = EXCLUDED.last_crawled_at,
		     last_successful_crawl = EXCLUDED.last_successful_crawl,
		     total_postings = EXCLUDED.total_postings,
		     crawl_status = EXCLUDED.crawl_status,
		     error_message = EXCLUDED.error_message,
		     updated_at = NOW()
		 RETURNING id`,
		cfg.CompanyID, string(cfg.ATSType), cfg.BoardToken, cfg.CareersURL, cfg.APIURL,
		cfg.LastCrawledAt, cfg.LastSuccessfulCrawl, cfg.TotalPostings,
		string(cfg.CrawlStatus), cfg.ErrorMessage,
	).Scan(&cfg.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert ATS config: %w", err)
	}
	return nil
}
