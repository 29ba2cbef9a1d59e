package collector

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/db"
	"golang.org/x/sync/errgroup"
)

// CollectAll crawls every company that has a website and was not crawled in
// the last skipRecentHours, up to limit companies (zero means all). Companies
// run on a pool of Options.Concurrency workers; a failed company never stops
// the batch. Results keep selection order.
func (c *Collector) CollectAll(ctx context.Context, limit, skipRecentHours int) Summary {
	start := time.Now()
	var summary Summary

	companies, err := c.store.ListCompaniesForCollection(ctx, limit, skipRecentHours)
	if err != nil {
		summary.Error = err.Error()
		summary.Duration = time.Since(start)
		log.Printf("[COLLECT] Failed to select companies: %v", err)
		return summary
	}

	log.Printf("[COLLECT] Collecting %d companies with %d worker(s)", len(companies), c.opts.Concurrency)

	results := make([]CollectionResult, len(companies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Concurrency)

	for i, company := range companies {
		i, company := i, company
		g.Go(func() error {
			results[i] = c.CollectCompany(gctx, company.ID, false)
			if c.opts.OnProgress != nil {
				c.opts.OnProgress(ProgressEvent{Index: i, Total: len(companies), Result: results[i]})
			}
			return nil
		})
	}
	// Workers never return an error; failures live on each result.
	_ = g.Wait()

	summary.Companies = len(companies)
	summary.Results = results
	for _, r := range results {
		if r.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
		summary.TotalFetched += r.TotalFetched
		summary.NewPostings += r.NewPostings
		summary.UpdatedPostings += r.UpdatedPostings
		summary.ClosedPostings += r.ClosedPostings
		summary.Alerts += r.Alerts
	}
	summary.Duration = time.Since(start)
	return summary
}

// DiscoverATS runs detection for one company and stores the resulting config
// without fetching any postings. An identified platform is stored as pending;
// an unknown one as failed with the detection error.
func (c *Collector) DiscoverATS(ctx context.Context, companyID uuid.UUID) (*ATSResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CompanyTimeout)
	defer cancel()

	company, err := c.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: %s", ErrCompanyNotFound, companyID)
	}

	cached, err := c.store.GetATSConfig(ctx, companyID)
	if err != nil {
		return nil, err
	}

	res := c.detect(ctx, company)
	cfg := configFor(companyID, cached, res)
	if res.Identified() {
		cfg.CrawlStatus = db.CrawlPending
	} else {
		msg := res.Error
		if msg == "" {
			msg = "no careers page found"
		}
		cfg.CrawlStatus = db.CrawlFailed
		cfg.ErrorMessage = &msg
	}
	if err := c.store.UpsertATSConfig(ctx, cfg); err != nil {
		return nil, err
	}

	if res.ATSType == "" {
		res.ATSType = ats.Unknown
	}
	return &ATSResult{CompanyID: company.ID, CompanyName: company.Name, Result: res}, nil
}
