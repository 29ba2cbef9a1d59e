package jobboards

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/fetch"
)

// jobHrefRe matches job-related keywords anywhere in an href's path or query.
var jobHrefRe = regexp.MustCompile(`(?i)(?:jobs?|careers?|positions?|openings?|opportunit(?:y|ies)|vacanc(?:y|ies)|requisitions?|postings?|/roles?/|apply)`)

// jobTitleRe matches anchor text that reads like a role title.
var jobTitleRe = regexp.MustCompile(`(?i)\b(?:engineer|developer|programmer|manager|analyst|designer|scientist|architect|specialist|coordinator|director|intern|internship|consultant|administrator|accountant|representative|recruiter|technician|officer|associate|executive|nurse|driver|operator|assistant|job|position|vacancy|opening)s?\b`)

// navigationText is anchor text that links around the careers site rather than to a job.
var navigationText = map[string]bool{
	"about": true, "about us": true, "all jobs": true, "all openings": true,
	"apply": true, "apply now": true, "back": true, "benefits": true, "blog": true,
	"careers": true, "contact": true, "contact us": true, "culture": true,
	"home": true, "job openings": true, "jobs": true, "join us": true,
	"learn more": true, "life at": true, "log in": true, "login": true,
	"next": true, "open positions": true, "our team": true, "previous": true,
	"privacy": true, "privacy policy": true, "read more": true, "search": true,
	"search jobs": true, "see all jobs": true, "sign in": true, "teams": true,
	"terms": true, "view all": true, "view all jobs": true, "view jobs": true,
}

const (
	minAnchorTitle = 4
	maxAnchorTitle = 150
)

// GenericOptions configures careers page scraping.
type GenericOptions struct {
	// UseBrowser renders pages in headless Chrome when static HTML yields no jobs.
	UseBrowser     bool
	BrowserTimeout time.Duration
	Verbose        bool
}

// Generic scrapes a careers page: JSON-LD JobPosting blocks first, falling
// back to job-like anchors.
type Generic struct {
	transport Transport
	opts      GenericOptions
	render    func(ctx context.Context, pageURL string, timeout time.Duration, verbose bool) (string, error)
}

// NewGeneric creates a Generic client.
func NewGeneric(t Transport, opts GenericOptions) *Generic {
	if opts.BrowserTimeout <= 0 {
		opts.BrowserTimeout = fetch.DefaultTimeout
	}
	return &Generic{transport: t, opts: opts, render: fetch.RenderWithBrowser}
}

// Type returns ats.Generic.
func (g *Generic) Type() ats.Type { return ats.Generic }

// genericJob is the raw record produced by page scraping.
type genericJob struct {
	Source          string   `json:"source"`
	Identifier      string   `json:"identifier,omitempty"`
	Title           string   `json:"title"`
	URL             string   `json:"url,omitempty"`
	Department      string   `json:"department,omitempty"`
	Location        string   `json:"location,omitempty"`
	EmploymentType  string   `json:"employment_type,omitempty"`
	WorkplaceType   string   `json:"workplace_type,omitempty"`
	DescriptionHTML string   `json:"description_html,omitempty"`
	DatePosted      string   `json:"date_posted,omitempty"`
	SalaryMin       *float64 `json:"salary_min,omitempty"`
	SalaryMax       *float64 `json:"salary_max,omitempty"`
	SalaryCurrency  string   `json:"salary_currency,omitempty"`
	SalaryInterval  string   `json:"salary_interval,omitempty"`
}

// FetchJobs scrapes the careers page at board.CareersURL.
func (g *Generic) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	if board.CareersURL == "" {
		return nil, &Error{Platform: ats.Generic, Message: "missing careers URL"}
	}

	page, err := g.transport.Get(ctx, board.CareersURL)
	if err != nil {
		return nil, &Error{Platform: ats.Generic, Message: "failed to fetch careers page", Cause: err}
	}

	jobs, err := extractJobs(page.URL, page.HTML)
	if err != nil {
		return nil, &Error{Platform: ats.Generic, Message: "failed to parse careers page", Cause: err}
	}

	if len(jobs) == 0 && g.opts.UseBrowser {
		rendered, err := g.render(ctx, page.URL, g.opts.BrowserTimeout, g.opts.Verbose)
		if err != nil {
			log.Printf("[FETCH] Browser render failed for %s: %v", page.URL, err)
		} else if jobs, err = extractJobs(page.URL, rendered); err != nil {
			return nil, &Error{Platform: ats.Generic, Message: "failed to parse rendered careers page", Cause: err}
		}
	}

	raws := make([]RawJob, 0, len(jobs))
	for _, j := range jobs {
		b, err := json.Marshal(j)
		if err != nil {
			return nil, &Error{Platform: ats.Generic, Message: "failed to encode scraped job", Cause: err}
		}
		raws = append(raws, b)
	}
	return raws, nil
}

// NormalizeJob maps a scraped job onto Fields.
func (g *Generic) NormalizeJob(raw RawJob, _ string) (*Fields, error) {
	var job genericJob
	if err := decodeRaw(ats.Generic, raw, &job); err != nil {
		return nil, err
	}

	f := &Fields{
		Title:           strings.TrimSpace(job.Title),
		Department:      str(job.Department),
		Location:        str(job.Location),
		EmploymentType:  str(job.EmploymentType),
		WorkplaceType:   str(job.WorkplaceType),
		SourceURL:       str(job.URL),
		DescriptionHTML: str(job.DescriptionHTML),
		DescriptionText: text(job.DescriptionHTML),
		PostedDate:      parseTime(job.DatePosted),
		SalaryMin:       float(job.SalaryMin),
		SalaryMax:       float(job.SalaryMax),
		SalaryCurrency:  str(job.SalaryCurrency),
		SalaryInterval:  salaryInterval(job.SalaryInterval),
	}

	switch {
	case job.Identifier != "":
		f.ExternalJobID = job.Identifier
	case job.URL != "":
		f.ExternalJobID = stableID(job.URL)
	case f.Title != "":
		f.ExternalJobID = stableID(f.Title + "|" + job.Location)
	}
	return f, nil
}

// extractJobs prefers structured JSON-LD postings and only falls back to
// anchors when the page has none.
func extractJobs(pageURL, html string) ([]genericJob, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, err
	}
	if jobs := extractJSONLD(doc, pageURL); len(jobs) > 0 {
		return jobs, nil
	}
	return extractAnchors(doc, pageURL), nil
}

func extractJSONLD(doc *goquery.Document, pageURL string) []genericJob {
	var jobs []genericJob
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		for _, node := range jobPostingNodes(payload) {
			if job, ok := jobFromLD(node, pageURL); ok {
				jobs = append(jobs, job)
			}
		}
	})
	return jobs
}

// jobPostingNodes walks arrays and @graph containers for JobPosting objects.
func jobPostingNodes(v any) []map[string]any {
	switch t := v.(type) {
	case []any:
		var out []map[string]any
		for _, item := range t {
			out = append(out, jobPostingNodes(item)...)
		}
		return out
	case map[string]any:
		if isJobPosting(t["@type"]) {
			return []map[string]any{t}
		}
		if graph, ok := t["@graph"]; ok {
			return jobPostingNodes(graph)
		}
		if items, ok := t["itemListElement"]; ok {
			return jobPostingNodes(items)
		}
		if item, ok := t["item"]; ok {
			return jobPostingNodes(item)
		}
	}
	return nil
}

func isJobPosting(v any) bool {
	switch t := v.(type) {
	case string:
		return t == "JobPosting"
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

func jobFromLD(node map[string]any, pageURL string) (genericJob, bool) {
	job := genericJob{
		Source:          "json-ld",
		Title:           ldString(node["title"]),
		DescriptionHTML: ldString(node["description"]),
		DatePosted:      ldString(node["datePosted"]),
		EmploymentType:  ldString(node["employmentType"]),
		Department:      ldString(node["occupationalCategory"]),
		Location:        ldLocation(node["jobLocation"]),
		Identifier:      ldIdentifier(node["identifier"]),
	}
	if job.Title == "" {
		job.Title = ldString(node["name"])
	}
	if job.Title == "" {
		return genericJob{}, false
	}
	if u := ldString(node["url"]); u != "" {
		job.URL = fetch.ResolveReference(pageURL, u)
	}
	if strings.EqualFold(ldString(node["jobLocationType"]), "TELECOMMUTE") {
		job.WorkplaceType = "remote"
	}

	if salary, ok := node["baseSalary"].(map[string]any); ok {
		job.SalaryCurrency = ldString(salary["currency"])
		if value, ok := salary["value"].(map[string]any); ok {
			job.SalaryMin = ldNumber(value["minValue"])
			job.SalaryMax = ldNumber(value["maxValue"])
			if job.SalaryMin == nil && job.SalaryMax == nil {
				job.SalaryMin = ldNumber(value["value"])
				job.SalaryMax = job.SalaryMin
			}
			job.SalaryInterval = ldString(value["unitText"])
		}
	}
	return job, true
}

// ldString flattens a JSON-LD value into a string; arrays yield their first entry.
func ldString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return ldString(t[0])
		}
	case map[string]any:
		if name, ok := t["name"]; ok {
			return ldString(name)
		}
	}
	return ""
}

func ldNumber(v any) *float64 {
	if f, ok := v.(float64); ok && f > 0 {
		return &f
	}
	return nil
}

func ldIdentifier(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		b, _ := json.Marshal(t)
		return string(b)
	case map[string]any:
		return ldIdentifier(t["value"])
	}
	return ""
}

func ldLocation(v any) string {
	switch t := v.(type) {
	case []any:
		var parts []string
		for _, item := range t {
			if loc := ldLocation(item); loc != "" {
				parts = append(parts, loc)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		switch addr := t["address"].(type) {
		case string:
			return strings.TrimSpace(addr)
		case map[string]any:
			return joinNonEmpty(", ",
				ldString(addr["addressLocality"]),
				ldString(addr["addressRegion"]),
				ldString(addr["addressCountry"]),
			)
		}
		return ldString(t["name"])
	case string:
		return strings.TrimSpace(t)
	}
	return ""
}

// extractAnchors collects job-like links, deduplicated by absolute URL.
func extractAnchors(doc *goquery.Document, pageURL string) []genericJob {
	seen := make(map[string]bool)
	page, _ := url.Parse(pageURL)

	var jobs []genericJob
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		lowerHref := strings.ToLower(href)
		if href == "" || strings.HasPrefix(lowerHref, "#") ||
			strings.HasPrefix(lowerHref, "mailto:") || strings.HasPrefix(lowerHref, "tel:") ||
			strings.HasPrefix(lowerHref, "javascript:") {
			return
		}

		title := fetch.CollapseWhitespace(s.Text())
		if len(title) < minAnchorTitle || len(title) > maxAnchorTitle {
			return
		}
		if navigationText[strings.ToLower(strings.TrimRight(title, " ›»→>"))] {
			return
		}

		abs := fetch.ResolveReference(pageURL, href)
		if abs == "" || seen[abs] {
			return
		}
		u, err := url.Parse(abs)
		if err != nil || (page != nil && u.Path == page.Path && u.Host == page.Host) {
			return
		}
		if !isJobAnchor(u, title) {
			return
		}

		seen[abs] = true
		jobs = append(jobs, genericJob{Source: "anchor", Title: title, URL: abs})
	})
	return jobs
}

// isJobAnchor reports whether a link looks like a posting, by its href path
// and query or by its text.
func isJobAnchor(u *url.URL, title string) bool {
	target := u.Path
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return jobHrefRe.MatchString(target) || jobTitleRe.MatchString(title)
}

// stableID derives a deterministic external id from a URL or title.
func stableID(s string) string {
	sum := sha256.Sum256([]byte(s))
	return "gen-" + hex.EncodeToString(sum[:8])
}
