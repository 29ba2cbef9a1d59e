package db

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/skills"
)

// CrawlStatus is the outcome recorded on an ATS config.
type CrawlStatus string

// Crawl status constants
const (
	CrawlPending CrawlStatus = "pending"
	CrawlSuccess CrawlStatus = "success"
	CrawlFailed  CrawlStatus = "failed"
)

// PostingStatus is the lifecycle state of a posting.
type PostingStatus string

// Posting status constants
const (
	PostingOpen   PostingStatus = "open"
	PostingClosed PostingStatus = "closed"
)

// Alert types
const (
	AlertHiringSurge       = "hiring_surge"
	AlertHiringFreeze      = "hiring_freeze"
	AlertDepartmentSurge   = "department_surge"
	AlertDepartmentDecline = "department_decline"
)

// Alert severities
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Company is the subset of a company record the collector reads.
type Company struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Website        *string   `json:"website,omitempty"`
	CareersPageURL *string   `json:"careers_page_url,omitempty"`
}

// ATSConfig is the per-company detection and crawl state.
type ATSConfig struct {
	ID                  uuid.UUID   `json:"id"`
	CompanyID           uuid.UUID   `json:"company_id"`
	ATSType             ats.Type    `json:"ats_type"`
	BoardToken          *string     `json:"board_token,omitempty"`
	CareersURL          *string     `json:"careers_url,omitempty"`
	APIURL              *string     `json:"api_url,omitempty"`
	LastCrawledAt       *time.Time  `json:"last_crawled_at,omitempty"`
	LastSuccessfulCrawl *time.Time  `json:"last_successful_crawl,omitempty"`
	TotalPostings       int         `json:"total_postings"`
	CrawlStatus         CrawlStatus `json:"crawl_status"`
	ErrorMessage        *string     `json:"error_message,omitempty"`
}

// Posting is the canonical job posting record.
type Posting struct {
	ID              uuid.UUID            `json:"id"`
	CompanyID       uuid.UUID            `json:"company_id"`
	ExternalJobID   string               `json:"external_job_id"`
	Title           string               `json:"title"`
	TitleNormalized *string              `json:"title_normalized,omitempty"`
	Department      *string              `json:"department,omitempty"`
	Team            *string              `json:"team,omitempty"`
	Location        *string              `json:"location,omitempty"`
	EmploymentType  *string              `json:"employment_type,omitempty"`
	WorkplaceType   *string              `json:"workplace_type,omitempty"`
	SeniorityLevel  *string              `json:"seniority_level,omitempty"`
	SalaryMin       *float64             `json:"salary_min,omitempty"`
	SalaryMax       *float64             `json:"salary_max,omitempty"`
	SalaryCurrency  *string              `json:"salary_currency,omitempty"`
	SalaryInterval  *string              `json:"salary_interval,omitempty"`
	DescriptionText *string              `json:"description_text,omitempty"`
	Requirements    *skills.Requirements `json:"requirements,omitempty"`
	SourceURL       *string              `json:"source_url,omitempty"`
	ATSType         ats.Type             `json:"ats_type"`
	Status          PostingStatus        `json:"status"`
	FirstSeenAt     time.Time            `json:"first_seen_at"`
	LastSeenAt      time.Time            `json:"last_seen_at"`
	ClosedAt        *time.Time           `json:"closed_at,omitempty"`
	PostedDate      *time.Time           `json:"posted_date,omitempty"`
}

// Snapshot is a daily rollup of a company's postings.
type Snapshot struct {
	ID               uuid.UUID      `json:"id"`
	CompanyID        uuid.UUID      `json:"company_id"`
	SnapshotDate     time.Time      `json:"snapshot_date"`
	TotalOpen        int            `json:"total_open"`
	NewPostings      int            `json:"new_postings"`
	ClosedPostings   int            `json:"closed_postings"`
	ByDepartment     map[string]int `json:"by_department"`
	ByLocation       map[string]int `json:"by_location"`
	BySeniority      map[string]int `json:"by_seniority"`
	ByEmploymentType map[string]int `json:"by_employment_type"`
}

// Alert is a week-over-week hiring change. Alerts are append-only.
type Alert struct {
	ID            uuid.UUID      `json:"id"`
	CompanyID     uuid.UUID      `json:"company_id"`
	AlertType     string         `json:"alert_type"`
	Severity      string         `json:"severity"`
	SnapshotDate  time.Time      `json:"snapshot_date"`
	CurrentTotal  int            `json:"current_total"`
	PreviousTotal int            `json:"previous_total"`
	ChangePct     float64        `json:"change_pct"`
	ChangeAbs     int            `json:"change_abs"`
	Department    *string        `json:"department,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Acknowledged  bool           `json:"acknowledged"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DateOf truncates t to its UTC calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)

// NormalizeName converts a company name to a normalized form for matching
// Example: "Affirm, Inc." -> "affirminc"
func NormalizeName(name string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "")
}
