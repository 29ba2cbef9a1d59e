// Package collector drives the per-company crawl: detect the ATS, fetch and
// normalize postings, maintain their open/closed lifecycle, write the daily
// snapshot and hand it to the change detector.
package collector

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/jonathan/hiring-signals/internal/jobboards"
)

// Defaults
const (
	DefaultCompanyTimeout = 5 * time.Minute
	DefaultConcurrency    = 1
)

// ErrCompanyNotFound is returned when the requested company does not exist.
var ErrCompanyNotFound = errors.New("company not found")

// Store is the persistence the collector reads and writes. InTx runs fn
// against a transaction-scoped Store.
type Store interface {
	GetCompany(ctx context.Context, id uuid.UUID) (*db.Company, error)
	ListCompaniesForCollection(ctx context.Context, limit, skipRecentHours int) ([]db.Company, error)

	GetATSConfig(ctx context.Context, companyID uuid.UUID) (*db.ATSConfig, error)
	UpsertATSConfig(ctx context.Context, cfg *db.ATSConfig) error

	ListPostings(ctx context.Context, companyID uuid.UUID) ([]db.Posting, error)
	InsertPosting(ctx context.Context, p *db.Posting) error
	UpdatePosting(ctx context.Context, p *db.Posting) error
	ClosePostings(ctx context.Context, ids []uuid.UUID, closedAt time.Time) (int, error)

	UpsertSnapshot(ctx context.Context, s *db.Snapshot) error

	InTx(ctx context.Context, fn func(tx Store) error) error
}

// Detector identifies a company's ATS.
type Detector interface {
	Detect(ctx context.Context, companyName, website, careersURL string) ats.Result
}

// Boards resolves the job board client for an ATS type.
type Boards interface {
	For(t ats.Type) (jobboards.Client, error)
}

// ChangeDetector raises alerts from the snapshot written for a date.
type ChangeDetector interface {
	Detect(ctx context.Context, companyID uuid.UUID, snapshotDate time.Time) ([]db.Alert, error)
}

// Locker serializes crawls of the same company across processes.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Metrics records crawl outcomes.
type Metrics interface {
	CrawlFinished(atsType, status string, d time.Duration)
	PostingsChanged(newPostings, updated, closed int)
	DetectionFinished(atsType string)
}

// ProgressEvent reports one finished company during a batch run.
type ProgressEvent struct {
	Index  int
	Total  int
	Result CollectionResult
}

// Options configures a Collector. Zero values fall back to defaults; nil
// collaborators are skipped.
type Options struct {
	Changes        ChangeDetector
	Locker         Locker
	Metrics        Metrics
	CompanyTimeout time.Duration
	Concurrency    int
	Verbose        bool
	OnProgress     func(ProgressEvent)
	Now            func() time.Time
}

// CollectionResult summarizes one company crawl.
type CollectionResult struct {
	CompanyID       uuid.UUID     `json:"company_id"`
	CompanyName     string        `json:"company_name"`
	ATSType         ats.Type      `json:"ats_type"`
	TotalFetched    int           `json:"total_fetched"`
	NewPostings     int           `json:"new_postings"`
	UpdatedPostings int           `json:"updated_postings"`
	ClosedPostings  int           `json:"closed_postings"`
	Alerts          int           `json:"alerts"`
	Redetected      bool          `json:"redetected"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Succeeded reports whether the crawl completed without error.
func (r CollectionResult) Succeeded() bool {
	return r.Error == ""
}

// Summary aggregates a batch run.
type Summary struct {
	Companies       int                `json:"companies"`
	Succeeded       int                `json:"succeeded"`
	Failed          int                `json:"failed"`
	TotalFetched    int                `json:"total_fetched"`
	NewPostings     int                `json:"new_postings"`
	UpdatedPostings int                `json:"updated_postings"`
	ClosedPostings  int                `json:"closed_postings"`
	Alerts          int                `json:"alerts"`
	Error           string             `json:"error,omitempty"`
	Duration        time.Duration      `json:"duration"`
	Results         []CollectionResult `json:"results"`
}

// ATSResult is the outcome of a detection-only run.
type ATSResult struct {
	CompanyID   uuid.UUID `json:"company_id"`
	CompanyName string    `json:"company_name"`
	ats.Result
}

// Collector crawls companies.
type Collector struct {
	store    Store
	detector Detector
	boards   Boards
	opts     Options
}

// New creates a collector.
func New(store Store, detector Detector, boards Boards, opts Options) *Collector {
	if opts.CompanyTimeout <= 0 {
		opts.CompanyTimeout = DefaultCompanyTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Collector{store: store, detector: detector, boards: boards, opts: opts}
}

// WithProgress returns a copy of c that reports each finished company of a
// batch run to fn.
func (c *Collector) WithProgress(fn func(ProgressEvent)) *Collector {
	cp := *c
	cp.opts.OnProgress = fn
	return &cp
}

func (c *Collector) now() time.Time {
	return c.opts.Now().UTC()
}

func (c *Collector) logf(format string, args ...any) {
	if c.opts.Verbose {
		log.Printf("[COLLECT] "+format, args...)
	}
}
