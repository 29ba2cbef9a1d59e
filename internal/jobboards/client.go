// Package jobboards fetches postings from hosted ATS job boards and maps each
// platform's records onto one canonical field set.
package jobboards

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/fetch"
)

// maxPages guards paginated boards against APIs that never report an end.
const maxPages = 250

// Board identifies what to crawl. Hosted boards use Token and APIURL; Workday
// and generic pages are addressed by URL.
type Board struct {
	Token      string
	CareersURL string
	APIURL     string
}

// RawJob is one platform-native posting record as returned by FetchJobs.
type RawJob = json.RawMessage

// Fields is the canonical posting field set shared by every platform.
// Values the platform did not supply stay nil.
type Fields struct {
	ExternalJobID   string     `json:"external_job_id"`
	Title           string     `json:"title"`
	Department      *string    `json:"department,omitempty"`
	Team            *string    `json:"team,omitempty"`
	Location        *string    `json:"location,omitempty"`
	EmploymentType  *string    `json:"employment_type,omitempty"`
	WorkplaceType   *string    `json:"workplace_type,omitempty"`
	SalaryMin       *float64   `json:"salary_min,omitempty"`
	SalaryMax       *float64   `json:"salary_max,omitempty"`
	SalaryCurrency  *string    `json:"salary_currency,omitempty"`
	SalaryInterval  *string    `json:"salary_interval,omitempty"`
	DescriptionText *string    `json:"description_text,omitempty"`
	DescriptionHTML *string    `json:"description_html,omitempty"`
	SourceURL       *string    `json:"source_url,omitempty"`
	PostedDate      *time.Time `json:"posted_date,omitempty"`
}

// Client fetches and normalizes postings for one ATS platform.
type Client interface {
	Type() ats.Type
	FetchJobs(ctx context.Context, board Board) ([]RawJob, error)
	NormalizeJob(raw RawJob, token string) (*Fields, error)
}

// Transport is the HTTP surface the clients need.
type Transport interface {
	Get(ctx context.Context, urlStr string) (*fetch.Result, error)
	GetJSON(ctx context.Context, urlStr string, v any) error
	PostJSON(ctx context.Context, urlStr string, body, v any) error
}

// Error reports a failure fetching or decoding a board.
type Error struct {
	Platform ats.Type
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Platform, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Platform, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Registry dispatches an ATS type to its client.
type Registry struct {
	clients map[ats.Type]Client
}

// NewRegistry creates a registry from clients, keyed by their Type.
func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[ats.Type]Client, len(clients))}
	for _, c := range clients {
		r.clients[c.Type()] = c
	}
	return r
}

// DefaultRegistry wires every supported platform onto one transport.
func DefaultRegistry(t Transport, opts GenericOptions) *Registry {
	return NewRegistry(
		NewGreenhouse(t),
		NewLever(t),
		NewAshby(t),
		NewWorkday(t),
		NewSmartRecruiters(t),
		NewGeneric(t, opts),
	)
}

// For returns the client for t.
func (r *Registry) For(t ats.Type) (Client, error) {
	c, ok := r.clients[t]
	if !ok {
		return nil, fmt.Errorf("no job board client for ATS type %q", t)
	}
	return c, nil
}

func decodeRaw(platform ats.Type, raw RawJob, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &Error{Platform: platform, Message: "malformed job record", Cause: err}
	}
	return nil
}
