package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/jonathan/hiring-signals/internal/jobboards"
)

// memStore is an in-memory Store. InTx restores the previous state when fn fails.
type memStore struct {
	mu        sync.Mutex
	companies map[uuid.UUID]db.Company
	configs   map[uuid.UUID]db.ATSConfig
	postings  map[uuid.UUID]db.Posting
	snapshots map[string]db.Snapshot
	failOn    string
}

func newMemStore() *memStore {
	return &memStore{
		companies: map[uuid.UUID]db.Company{},
		configs:   map[uuid.UUID]db.ATSConfig{},
		postings:  map[uuid.UUID]db.Posting{},
		snapshots: map[string]db.Snapshot{},
	}
}

func (m *memStore) addCompany(name, website string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := db.Company{ID: uuid.New(), Name: name}
	if website != "" {
		c.Website = &website
	}
	m.companies[c.ID] = c
	return c.ID
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return fmt.Errorf("%s: simulated failure", method)
	}
	return nil
}

func snapshotKey(companyID uuid.UUID, date time.Time) string {
	return companyID.String() + "/" + db.DateOf(date).Format("2006-01-02")
}

func (m *memStore) GetCompany(_ context.Context, id uuid.UUID) (*db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetCompany"); err != nil {
		return nil, err
	}
	c, ok := m.companies[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memStore) ListCompaniesForCollection(_ context.Context, limit, skipRecentHours int) ([]db.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("ListCompaniesForCollection"); err != nil {
		return nil, err
	}
	cutoff := time.Now().Add(-time.Duration(skipRecentHours) * time.Hour)
	var out []db.Company
	for _, c := range m.companies {
		if c.Website == nil || *c.Website == "" {
			continue
		}
		if cfg, ok := m.configs[c.ID]; ok && cfg.LastCrawledAt != nil && !cfg.LastCrawledAt.Before(cutoff) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetATSConfig(_ context.Context, companyID uuid.UUID) (*db.ATSConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg, ok := m.configs[companyID]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (m *memStore) UpsertATSConfig(_ context.Context, cfg *db.ATSConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertATSConfig"); err != nil {
		return err
	}
	if prev, ok := m.configs[cfg.CompanyID]; ok {
		cfg.ID = prev.ID
	} else {
		cfg.ID = uuid.New()
	}
	m.configs[cfg.CompanyID] = *cfg
	return nil
}

func (m *memStore) ListPostings(_ context.Context, companyID uuid.UUID) ([]db.Posting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Posting
	for _, p := range m.postings {
		if p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ExternalJobID < out[j].ExternalJobID })
	return out, nil
}

func (m *memStore) InsertPosting(_ context.Context, p *db.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("InsertPosting"); err != nil {
		return err
	}
	for _, existing := range m.postings {
		if existing.CompanyID == p.CompanyID && existing.ExternalJobID == p.ExternalJobID {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	p.ID = uuid.New()
	m.postings[p.ID] = *p
	return nil
}

func (m *memStore) UpdatePosting(_ context.Context, p *db.Posting) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.postings[p.ID]; !ok {
		return fmt.Errorf("posting not found: %s", p.ID)
	}
	m.postings[p.ID] = *p
	return nil
}

func (m *memStore) ClosePostings(_ context.Context, ids []uuid.UUID, closedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		p, ok := m.postings[id]
		if !ok || p.Status != db.PostingOpen {
			continue
		}
		at := closedAt
		p.Status = db.PostingClosed
		p.ClosedAt = &at
		m.postings[id] = p
		n++
	}
	return n, nil
}

func (m *memStore) UpsertSnapshot(_ context.Context, s *db.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("UpsertSnapshot"); err != nil {
		return err
	}
	key := snapshotKey(s.CompanyID, s.SnapshotDate)
	if prev, ok := m.snapshots[key]; ok {
		s.ID = prev.ID
	} else {
		s.ID = uuid.New()
	}
	m.snapshots[key] = *s
	return nil
}

func (m *memStore) InTx(_ context.Context, fn func(tx Store) error) error {
	m.mu.Lock()
	configs := cloneMap(m.configs)
	postings := cloneMap(m.postings)
	snapshots := cloneMap(m.snapshots)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.configs, m.postings, m.snapshots = configs, postings, snapshots
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) snapshot(companyID uuid.UUID, date time.Time) (db.Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.snapshots[snapshotKey(companyID, date)]
	return s, ok
}

func (m *memStore) posting(companyID uuid.UUID, externalID string) (db.Posting, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.postings {
		if p.CompanyID == companyID && p.ExternalJobID == externalID {
			return p, true
		}
	}
	return db.Posting{}, false
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// fakeDetector answers detection by company name.
type fakeDetector struct {
	mu      sync.Mutex
	results map[string]ats.Result
	calls   int
}

func (d *fakeDetector) Detect(_ context.Context, companyName, _, _ string) ats.Result {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	if r, ok := d.results[companyName]; ok {
		return r
	}
	return ats.Result{ATSType: ats.Unknown, Error: "no careers page found for " + companyName}
}

func (d *fakeDetector) set(companyName string, r ats.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results[companyName] = r
}

func (d *fakeDetector) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type fakeJob struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Department  string `json:"department,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// fakeBoard serves jobs by board token.
type fakeBoard struct {
	mu    sync.Mutex
	typ   ats.Type
	jobs  map[string][]jobboards.RawJob
	err   error
	calls int
}

func newFakeBoard(typ ats.Type) *fakeBoard {
	return &fakeBoard{typ: typ, jobs: map[string][]jobboards.RawJob{}}
}

func (b *fakeBoard) Type() ats.Type { return b.typ }

func (b *fakeBoard) set(token string, jobs ...fakeJob) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raws := make([]jobboards.RawJob, 0, len(jobs))
	for _, j := range jobs {
		raw, _ := json.Marshal(j)
		raws = append(raws, raw)
	}
	b.jobs[token] = raws
}

func (b *fakeBoard) setRaw(token string, raws ...jobboards.RawJob) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jobs[token] = raws
}

func (b *fakeBoard) FetchJobs(_ context.Context, board jobboards.Board) ([]jobboards.RawJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.err != nil {
		return nil, &jobboards.Error{Platform: b.typ, Message: "failed to fetch board", Cause: b.err}
	}
	return b.jobs[board.Token], nil
}

func (b *fakeBoard) NormalizeJob(raw jobboards.RawJob, _ string) (*jobboards.Fields, error) {
	var j fakeJob
	if err := json.Unmarshal(raw, &j); err != nil {
		return nil, err
	}
	f := &jobboards.Fields{ExternalJobID: j.ID, Title: j.Title}
	if j.Department != "" {
		f.Department = &j.Department
	}
	if j.Location != "" {
		f.Location = &j.Location
	}
	if j.Description != "" {
		f.DescriptionText = &j.Description
	}
	return f, nil
}

type fakeChanges struct {
	calls int
	err   error
}

func (c *fakeChanges) Detect(context.Context, uuid.UUID, time.Time) ([]db.Alert, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []db.Alert{{AlertType: db.AlertHiringSurge}}, nil
}

type heldLocker struct{}

func (heldLocker) Acquire(context.Context, string) (func(), error) {
	return nil, errors.New("crawl lock held")
}
