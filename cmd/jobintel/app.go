package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/changes"
	"github.com/jonathan/hiring-signals/internal/collector"
	"github.com/jonathan/hiring-signals/internal/config"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/jonathan/hiring-signals/internal/fetch"
	"github.com/jonathan/hiring-signals/internal/jobboards"
	"github.com/jonathan/hiring-signals/internal/lock"
	"github.com/jonathan/hiring-signals/internal/notify"
	"github.com/jonathan/hiring-signals/internal/observability"
)

// app holds the wired dependencies for one command invocation.
type app struct {
	cfg       config.Config
	db        *db.DB
	fetcher   *fetch.Client
	collector *collector.Collector
	changes   *changes.Detector
	metrics   *observability.Recorder
	printer   *observability.Printer

	closers []func()
}

// resolveConfig merges the config file and environment with CLI flags.
// Flags win over everything else.
func resolveConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if verbose {
		cfg.Verbose = true
	}
	if metricsAddr != "" {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg, nil
}

// newApp connects to every configured backend. Optional backends (Redis,
// NATS, metrics) are wired only when their address is set.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		metrics: observability.NewRecorder(),
		printer: observability.NewPrinter(os.Stdout),
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.db = database
	a.closers = append(a.closers, database.Close)

	a.fetcher = fetch.NewClient(&fetch.Options{
		Timeout:   cfg.HTTPTimeout(),
		UserAgent: cfg.UserAgent,
	})
	a.closers = append(a.closers, a.fetcher.Close)

	changeOpts := changes.Options{Metrics: a.metrics, Verbose: cfg.Verbose}
	if cfg.NATSURL != "" {
		nc, err := notify.Connect(cfg.NATSURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = nc.Drain() })
		changeOpts.Publisher = notify.NewPublisher(nc, cfg.AlertSubject)
	}
	a.changes = changes.NewDetector(database, changeOpts)

	opts := collector.Options{
		Changes:        a.changes,
		Metrics:        a.metrics,
		CompanyTimeout: cfg.CompanyTimeout(),
		Concurrency:    cfg.Concurrency,
		Verbose:        cfg.Verbose,
	}
	if cfg.RedisURL != "" {
		rdb, err := lock.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		opts.Locker = lock.NewRedisLocker(rdb, cfg.LockTTL())
	}

	boards := jobboards.DefaultRegistry(a.fetcher, jobboards.GenericOptions{
		UseBrowser:     cfg.UseBrowser,
		BrowserTimeout: cfg.HTTPTimeout(),
		Verbose:        cfg.Verbose,
	})
	detector := ats.NewDetector(a.fetcher, cfg.Verbose)
	a.collector = collector.New(collector.NewPostgresStore(database), detector, boards, opts)

	if cfg.MetricsAddr != "" {
		go func() {
			if err := a.metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Printf("[METRICS] Server stopped: %v", err)
			}
		}()
	}

	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// withApp resolves configuration, wires the app and runs fn.
func withApp(ctx context.Context, fn func(a *app) error) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

// parseCompanyID parses a company UUID argument.
func parseCompanyID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid company id %q: %w", s, err)
	}
	return id, nil
}

// parseDate parses a YYYY-MM-DD flag value; empty means today (UTC).
func parseDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return db.DateOf(now), nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}
