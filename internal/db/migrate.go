package db

import (
	"context"
	"fmt"
)

// schema is idempotent; Migrate may run on every deploy.
const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS companies (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name             TEXT NOT NULL,
    name_normalized  TEXT NOT NULL UNIQUE,
    website          TEXT,
    careers_page_url TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS company_ats_config (
    id                    UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    company_id            UUID NOT NULL UNIQUE REFERENCES companies(id) ON DELETE CASCADE,
    ats_type              TEXT NOT NULL,
    board_token           TEXT,
    careers_url           TEXT,
    api_url               TEXT,
    last_crawled_at       TIMESTAMPTZ,
    last_successful_crawl TIMESTAMPTZ,
    total_postings        INTEGER NOT NULL DEFAULT 0,
    crawl_status          TEXT NOT NULL DEFAULT 'pending',
    error_message         TEXT,
    created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS job_postings (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    company_id       UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    external_job_id  TEXT NOT NULL,
    title            TEXT NOT NULL,
    title_normalized TEXT,
    department       TEXT,
    team             TEXT,
    location         TEXT,
    employment_type  TEXT,
    workplace_type   TEXT,
    seniority_level  TEXT,
    salary_min       DOUBLE PRECISION,
    salary_max       DOUBLE PRECISION,
    salary_currency  TEXT,
    salary_interval  TEXT,
    description_text TEXT,
    requirements     JSONB,
    source_url       TEXT,
    ats_type         TEXT NOT NULL,
    status           TEXT NOT NULL DEFAULT 'open',
    first_seen_at    TIMESTAMPTZ NOT NULL,
    last_seen_at     TIMESTAMPTZ NOT NULL,
    closed_at        TIMESTAMPTZ,
    posted_date      TIMESTAMPTZ,
    UNIQUE (company_id, external_job_id)
);

CREATE INDEX IF NOT EXISTS idx_job_postings_company_status ON job_postings (company_id, status);

CREATE TABLE IF NOT EXISTS job_posting_snapshots (
    id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    company_id         UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    snapshot_date      DATE NOT NULL,
    total_open         INTEGER NOT NULL DEFAULT 0,
    new_postings       INTEGER NOT NULL DEFAULT 0,
    closed_postings    INTEGER NOT NULL DEFAULT 0,
    by_department      JSONB NOT NULL DEFAULT '{}',
    by_location        JSONB NOT NULL DEFAULT '{}',
    by_seniority       JSONB NOT NULL DEFAULT '{}',
    by_employment_type JSONB NOT NULL DEFAULT '{}',
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (company_id, snapshot_date)
);

CREATE TABLE IF NOT EXISTS job_posting_alerts (
    id             UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    company_id     UUID NOT NULL REFERENCES companies(id) ON DELETE CASCADE,
    alert_type     TEXT NOT NULL,
    severity       TEXT NOT NULL,
    snapshot_date  DATE NOT NULL,
    current_total  INTEGER NOT NULL,
    previous_total INTEGER NOT NULL,
    change_pct     DOUBLE PRECISION NOT NULL,
    change_abs     INTEGER NOT NULL,
    department     TEXT,
    details        JSONB NOT NULL DEFAULT '{}',
    acknowledged   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_job_posting_alerts_company ON job_posting_alerts (company_id, snapshot_date DESC);
CREATE UNIQUE INDEX IF NOT EXISTS uq_job_posting_alerts_day
    ON job_posting_alerts (company_id, snapshot_date, alert_type, (COALESCE(department, '')));
`

// Migrate creates any missing tables and indexes. It is run explicitly by the
// process bootstrap (jobintel migrate), never lazily from a query path.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.q.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
