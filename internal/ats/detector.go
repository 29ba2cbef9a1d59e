package ats

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/url"
	"strings"

	"github.com/jonathan/hiring-signals/internal/fetch"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentProbes bounds in-flight candidate requests per detection.
const maxConcurrentProbes = 3

// careersPaths are appended to the company website when looking for a careers page.
var careersPaths = []string{
	"/careers",
	"/jobs",
	"/careers/",
	"/join-us",
	"/join",
	"/about/careers",
	"/company/careers",
	"/work-with-us",
}

// careersSubdomains are prefixed to the bare company domain.
var careersSubdomains = []string{"careers", "jobs"}

// Fetcher is the subset of the HTTP client the detector needs.
type Fetcher interface {
	GetLimited(ctx context.Context, urlStr string, limit int64) (*fetch.Result, error)
	Exists(ctx context.Context, urlStr string) (string, bool)
}

// Detector identifies a company's ATS from its website or careers URL.
type Detector struct {
	fetcher Fetcher
	verbose bool
}

// NewDetector creates a Detector backed by f.
func NewDetector(f Fetcher, verbose bool) *Detector {
	return &Detector{fetcher: f, verbose: verbose}
}

// Detect runs the detection chain: URL patterns on the careers URL, then the
// careers page content, then candidate careers pages derived from the website.
// Network and parse failures never escape; they end in an Unknown result.
func (d *Detector) Detect(ctx context.Context, companyName, website, careersURL string) Result {
	var fallback *Result

	if careersURL != "" {
		if res, ok := MatchURL(careersURL); ok {
			d.logf("%s: %s matched by careers URL (token=%q)", companyName, res.ATSType, res.BoardToken)
			return res
		}
		res, fetched := d.inspect(ctx, careersURL)
		if res.Identified() {
			d.logf("%s: %s found on careers page", companyName, res.ATSType)
			return res
		}
		if fetched {
			fallback = &Result{ATSType: Generic, CareersURL: careersURL}
		}
	}

	if website == "" {
		if fallback != nil {
			return *fallback
		}
		return Result{ATSType: Unknown, Error: fmt.Sprintf("no website or careers URL for %s", companyName)}
	}

	candidates, host, err := candidateURLs(website)
	if err != nil {
		if fallback != nil {
			return *fallback
		}
		return Result{ATSType: Unknown, Error: fmt.Sprintf("invalid website %q: %v", website, err)}
	}

	page, ok := d.probe(ctx, candidates)
	if !ok {
		if fallback != nil {
			return *fallback
		}
		return Result{ATSType: Unknown, Error: fmt.Sprintf("no careers page found for %s", host)}
	}

	if res, ok := MatchURL(page); ok {
		d.logf("%s: %s matched by discovered URL %s", companyName, res.ATSType, page)
		return res
	}
	if res, _ := d.inspect(ctx, page); res.Identified() {
		d.logf("%s: %s found on discovered page %s", companyName, res.ATSType, page)
		return res
	}

	d.logf("%s: no hosted ATS, using generic careers page %s", companyName, page)
	return Result{ATSType: Generic, CareersURL: page}
}

// inspect fetches the head of a page and checks its final URL and content.
// The second return value reports whether the page could be fetched at all.
func (d *Detector) inspect(ctx context.Context, pageURL string) (Result, bool) {
	page, err := d.fetcher.GetLimited(ctx, pageURL, fetch.DetectionReadLimit)
	if err != nil {
		d.logf("could not fetch %s: %v", pageURL, err)
		return Result{}, false
	}

	if res, ok := MatchURL(page.URL); ok {
		return res, true
	}
	if res, ok := MatchHTML(page.URL, page.HTML); ok {
		return res, true
	}
	return Result{}, true
}

// probe checks candidates concurrently and returns the first responsive one
// in candidate order, as its post-redirect URL.
func (d *Detector) probe(ctx context.Context, candidates []string) (string, bool) {
	found := make([]string, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentProbes)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if final, ok := d.fetcher.Exists(gctx, candidate); ok {
				found[i] = final
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, f := range found {
		if f != "" {
			return f, true
		}
	}
	return "", false
}

// candidateURLs derives careers page candidates from a website. Subdomain
// candidates are skipped for IP hosts.
func candidateURLs(website string) ([]string, string, error) {
	if !strings.Contains(website, "://") {
		website = "https://" + website
	}
	u, err := url.Parse(website)
	if err != nil {
		return nil, "", err
	}
	if u.Hostname() == "" {
		return nil, "", fmt.Errorf("missing host")
	}

	origin := u.Scheme + "://" + u.Host
	candidates := make([]string, 0, len(careersPaths)+len(careersSubdomains))
	for _, p := range careersPaths {
		candidates = append(candidates, origin+p)
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		bare := strings.TrimPrefix(host, "www.")
		for _, sub := range careersSubdomains {
			candidates = append(candidates, u.Scheme+"://"+sub+"."+bare)
		}
	}
	return candidates, host, nil
}

func (d *Detector) logf(format string, args ...any) {
	if d.verbose {
		log.Printf("[DETECT] "+format, args...)
	}
}
