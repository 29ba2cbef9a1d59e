package jobboards

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/hiring-signals/internal/ats"
)

const workdayPageSize = 20

// workdayURLRe decomposes a Workday careers or CXS API URL into
// company slug, wd instance and site.
var workdayURLRe = regexp.MustCompile(`(?i)https?://([A-Za-z0-9_-]+)\.(wd\d+)\.myworkdayjobs\.com/(?:wday/cxs/[A-Za-z0-9_-]+/)?(?:[a-z]{2}-[a-z]{2}/)?([A-Za-z0-9_-]+)`)

var workdayDaysAgoRe = regexp.MustCompile(`(?i)(\d+)\+?\s+days?\s+ago`)

// Workday POSTs to the CXS jobs endpoint with offset/limit until offset reaches total.
type Workday struct {
	transport Transport
	now       func() time.Time
	// baseURL replaces https://{company}.{wd}.myworkdayjobs.com when set.
	baseURL string
}

// NewWorkday creates a Workday client.
func NewWorkday(t Transport) *Workday {
	return &Workday{transport: t, now: time.Now}
}

// Type returns ats.Workday.
func (w *Workday) Type() ats.Type { return ats.Workday }

type workdaySite struct {
	Company  string
	Instance string
	Site     string
}

func (s workdaySite) host() string {
	return fmt.Sprintf("https://%s.%s.myworkdayjobs.com", s.Company, s.Instance)
}

// parseWorkdayURL extracts the company slug, wd instance and site from a URL.
func parseWorkdayURL(rawURL string) (workdaySite, error) {
	m := workdayURLRe.FindStringSubmatch(rawURL)
	if m == nil {
		return workdaySite{}, fmt.Errorf("not a Workday URL: %q", rawURL)
	}
	return workdaySite{Company: m[1], Instance: strings.ToLower(m[2]), Site: m[3]}, nil
}

type workdayRequest struct {
	AppliedFacets map[string]any `json:"appliedFacets"`
	Limit         int            `json:"limit"`
	Offset        int            `json:"offset"`
	SearchText    string         `json:"searchText"`
}

type workdayPage struct {
	Total       int               `json:"total"`
	JobPostings []json.RawMessage `json:"jobPostings"`
}

// workdayEnvelope carries the context NormalizeJob needs alongside the posting.
type workdayEnvelope struct {
	Posting   json.RawMessage `json:"posting"`
	SiteURL   string          `json:"site_url"`
	FetchedAt time.Time       `json:"fetched_at"`
}

type workdayJob struct {
	Title         string   `json:"title"`
	ExternalPath  string   `json:"externalPath"`
	LocationsText string   `json:"locationsText"`
	PostedOn      string   `json:"postedOn"`
	TimeType      string   `json:"timeType"`
	RemoteType    string   `json:"remoteType"`
	BulletFields  []string `json:"bulletFields"`
}

// FetchJobs returns every posting on the site. The API URL is preferred; the
// careers URL is decomposed when no API URL is stored.
func (w *Workday) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	source := board.APIURL
	if source == "" {
		source = board.CareersURL
	}
	site, err := parseWorkdayURL(source)
	if err != nil {
		return nil, &Error{Platform: ats.Workday, Message: "cannot locate Workday site", Cause: err}
	}

	host := site.host()
	if w.baseURL != "" {
		host = w.baseURL
	}
	endpoint := fmt.Sprintf("%s/wday/cxs/%s/%s/jobs", host, site.Company, site.Site)
	siteURL := fmt.Sprintf("%s/%s", host, site.Site)
	fetchedAt := w.now().UTC()

	var all []RawJob
	total := -1
	offset := 0
	for page := 0; page < maxPages; page++ {
		req := workdayRequest{
			AppliedFacets: map[string]any{},
			Limit:         workdayPageSize,
			Offset:        offset,
		}
		var resp workdayPage
		if err := w.transport.PostJSON(ctx, endpoint, req, &resp); err != nil {
			return nil, &Error{Platform: ats.Workday, Message: fmt.Sprintf("offset %d", offset), Cause: err}
		}
		// Later pages may report a zero total; the first page is authoritative.
		if total < 0 {
			total = resp.Total
		}

		for _, posting := range resp.JobPostings {
			env, err := json.Marshal(workdayEnvelope{Posting: posting, SiteURL: siteURL, FetchedAt: fetchedAt})
			if err != nil {
				return nil, &Error{Platform: ats.Workday, Message: "failed to wrap posting", Cause: err}
			}
			all = append(all, env)
		}
		offset += workdayPageSize

		if len(resp.JobPostings) == 0 || offset >= total {
			break
		}
	}
	return all, nil
}

// NormalizeJob maps a Workday posting onto Fields.
func (w *Workday) NormalizeJob(raw RawJob, _ string) (*Fields, error) {
	var env workdayEnvelope
	if err := decodeRaw(ats.Workday, raw, &env); err != nil {
		return nil, err
	}
	var job workdayJob
	if err := decodeRaw(ats.Workday, RawJob(env.Posting), &job); err != nil {
		return nil, err
	}

	f := &Fields{
		Title:          strings.TrimSpace(job.Title),
		Location:       str(job.LocationsText),
		EmploymentType: str(job.TimeType),
		WorkplaceType:  str(job.RemoteType),
		PostedDate:     workdayPostedDate(job.PostedOn, env.FetchedAt),
	}

	if len(job.BulletFields) > 0 && strings.TrimSpace(job.BulletFields[0]) != "" {
		f.ExternalJobID = strings.TrimSpace(job.BulletFields[0])
	} else {
		f.ExternalJobID = job.ExternalPath
	}
	if job.ExternalPath != "" && env.SiteURL != "" {
		f.SourceURL = str(env.SiteURL + job.ExternalPath)
	}
	return f, nil
}

// workdayPostedDate resolves labels such as "Posted Today" or
// "Posted 3 Days Ago" against the fetch time.
func workdayPostedDate(label string, fetchedAt time.Time) *time.Time {
	if label == "" || fetchedAt.IsZero() {
		return nil
	}
	day := time.Date(fetchedAt.Year(), fetchedAt.Month(), fetchedAt.Day(), 0, 0, 0, 0, time.UTC)

	lower := strings.ToLower(label)
	switch {
	case strings.Contains(lower, "today"):
		return &day
	case strings.Contains(lower, "yesterday"):
		d := day.AddDate(0, 0, -1)
		return &d
	}
	if m := workdayDaysAgoRe.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return nil
		}
		d := day.AddDate(0, 0, -n)
		return &d
	}
	return nil
}
