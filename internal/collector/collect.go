package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/jonathan/hiring-signals/internal/jobboards"
)

// attempt is the source of the board a crawl fetches from. A cached attempt
// that comes back empty is retried as a redetect; a redetect has no successor.
type attempt int

const (
	attemptCached attempt = iota
	attemptRedetect
)

func (a attempt) String() string {
	if a == attemptCached {
		return "cached"
	}
	return "redetect"
}

// next returns the attempt to try after an empty fetch, if any.
func (a attempt) next() (attempt, bool) {
	if a == attemptCached {
		return attemptRedetect, true
	}
	return a, false
}

// CollectCompany crawls one company and reports the outcome. Failures are
// recorded on the result and, where possible, on the company's ATS config.
func (c *Collector) CollectCompany(ctx context.Context, companyID uuid.UUID, forceRediscover bool) CollectionResult {
	start := time.Now()
	result := CollectionResult{CompanyID: companyID, ATSType: ats.Unknown}

	ctx, cancel := context.WithTimeout(ctx, c.opts.CompanyTimeout)
	defer cancel()

	err := c.withLock(ctx, companyID, func() error {
		return c.collect(ctx, companyID, forceRediscover, &result)
	})
	if err != nil {
		result.Error = err.Error()
		log.Printf("[COLLECT] %s failed: %v", displayName(result), err)
	}
	result.Duration = time.Since(start)

	if c.opts.Metrics != nil {
		status := string(db.CrawlSuccess)
		if err != nil {
			status = string(db.CrawlFailed)
		}
		c.opts.Metrics.CrawlFinished(string(result.ATSType), status, result.Duration)
		c.opts.Metrics.PostingsChanged(result.NewPostings, result.UpdatedPostings, result.ClosedPostings)
	}
	return result
}

func (c *Collector) withLock(ctx context.Context, companyID uuid.UUID, fn func() error) error {
	if c.opts.Locker == nil {
		return fn()
	}
	release, err := c.opts.Locker.Acquire(ctx, companyID.String())
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

func (c *Collector) collect(ctx context.Context, companyID uuid.UUID, forceRediscover bool, result *CollectionResult) error {
	company, err := c.store.GetCompany(ctx, companyID)
	if err != nil {
		return err
	}
	if company == nil {
		return fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}
	result.CompanyName = company.Name

	cached, err := c.store.GetATSConfig(ctx, companyID)
	if err != nil {
		return err
	}

	var target ats.Result
	current := attemptRedetect
	if !forceRediscover && cached != nil && cached.ATSType.Valid() && cached.ATSType != ats.Unknown {
		current = attemptCached
		target = resultFromConfig(cached)
	}

	var (
		client jobboards.Client
		raws   []jobboards.RawJob
	)
	for {
		if current == attemptRedetect {
			target = c.detect(ctx, company)
			result.Redetected = true
		}
		result.ATSType = target.ATSType

		if !target.Identified() {
			msg := target.Error
			if msg == "" {
				msg = "no careers page found"
			}
			c.recordFailure(ctx, companyID, cached, &target, "ATS detection failed: "+msg)
			return fmt.Errorf("ATS detection failed: %s", msg)
		}

		client, err = c.boards.For(target.ATSType)
		if err != nil {
			c.recordFailure(ctx, companyID, cached, &target, err.Error())
			return err
		}

		c.logf("Fetching %s board for %s (%s)", target.ATSType, company.Name, current)
		raws, err = client.FetchJobs(ctx, boardFor(target))
		if err != nil {
			c.recordFailure(ctx, companyID, cached, &target, err.Error())
			return err
		}

		if len(raws) > 0 {
			break
		}
		nextAttempt, ok := current.next()
		if !ok {
			break
		}
		c.logf("Cached %s config for %s returned no jobs, re-detecting", target.ATSType, company.Name)
		current = nextAttempt
	}
	result.TotalFetched = len(raws)

	now := c.now()
	incoming := c.normalizeAll(client, raws, target, companyID)

	err = c.store.InTx(ctx, func(tx Store) error {
		counts, err := syncPostings(ctx, tx, companyID, incoming, now)
		if err != nil {
			return err
		}
		result.NewPostings, result.UpdatedPostings, result.ClosedPostings = counts.inserted, counts.updated, counts.closed

		postings, err := tx.ListPostings(ctx, companyID)
		if err != nil {
			return err
		}
		snapshot := BuildSnapshot(companyID, now, postings)
		if err := tx.UpsertSnapshot(ctx, &snapshot); err != nil {
			return err
		}

		cfg := configFor(companyID, cached, target)
		cfg.LastCrawledAt = &now
		cfg.LastSuccessfulCrawl = &now
		cfg.TotalPostings = snapshot.TotalOpen
		cfg.CrawlStatus = db.CrawlSuccess
		cfg.ErrorMessage = nil
		return tx.UpsertATSConfig(ctx, cfg)
	})
	if err != nil {
		c.recordFailure(ctx, companyID, cached, &target, err.Error())
		return err
	}

	log.Printf("[COLLECT] %s (%s): fetched %d, new %d, updated %d, closed %d",
		company.Name, target.ATSType, result.TotalFetched,
		result.NewPostings, result.UpdatedPostings, result.ClosedPostings)

	if c.opts.Changes != nil {
		alerts, err := c.opts.Changes.Detect(ctx, companyID, now)
		if err != nil {
			log.Printf("[COLLECT] Change detection failed for %s: %v", company.Name, err)
		}
		result.Alerts = len(alerts)
	}
	return nil
}

func (c *Collector) detect(ctx context.Context, company *db.Company) ats.Result {
	res := c.detector.Detect(ctx, company.Name, deref(company.Website), deref(company.CareersPageURL))
	if c.opts.Metrics != nil {
		c.opts.Metrics.DetectionFinished(string(res.ATSType))
	}
	c.logf("Detected %s for %s (token %q)", res.ATSType, company.Name, res.BoardToken)
	return res
}

// recordFailure marks the ATS config failed. It runs on a context detached
// from ctx's deadline so a timed-out crawl is still recorded.
func (c *Collector) recordFailure(ctx context.Context, companyID uuid.UUID, cached *db.ATSConfig, target *ats.Result, msg string) {
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	now := c.now()
	cfg := configFor(companyID, cached, *target)
	cfg.LastCrawledAt = &now
	cfg.CrawlStatus = db.CrawlFailed
	cfg.ErrorMessage = &msg
	if err := c.store.UpsertATSConfig(wctx, cfg); err != nil {
		log.Printf("[COLLECT] Failed to record crawl failure for %s: %v", companyID, err)
	}
}

func boardFor(r ats.Result) jobboards.Board {
	return jobboards.Board{Token: r.BoardToken, CareersURL: r.CareersURL, APIURL: r.APIURL}
}

func resultFromConfig(cfg *db.ATSConfig) ats.Result {
	return ats.Result{
		ATSType:    cfg.ATSType,
		BoardToken: deref(cfg.BoardToken),
		CareersURL: deref(cfg.CareersURL),
		APIURL:     deref(cfg.APIURL),
	}
}

// configFor builds the config to persist for target, carrying over the
// crawl history of the previous config.
func configFor(companyID uuid.UUID, prev *db.ATSConfig, target ats.Result) *db.ATSConfig {
	cfg := &db.ATSConfig{CompanyID: companyID, CrawlStatus: db.CrawlPending}
	if prev != nil {
		cfg.LastCrawledAt = prev.LastCrawledAt
		cfg.LastSuccessfulCrawl = prev.LastSuccessfulCrawl
		cfg.TotalPostings = prev.TotalPostings
	}
	cfg.ATSType = target.ATSType
	if cfg.ATSType == "" {
		cfg.ATSType = ats.Unknown
	}
	cfg.BoardToken = optional(target.BoardToken)
	cfg.CareersURL = optional(target.CareersURL)
	cfg.APIURL = optional(target.APIURL)
	return cfg
}

func displayName(r CollectionResult) string {
	if r.CompanyName != "" {
		return r.CompanyName
	}
	return r.CompanyID.String()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
