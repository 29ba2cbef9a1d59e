package ats

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// platform describes how one hosted ATS is recognized. The pattern's first
// capture group is the board token; apiURL receives every submatch.
type platform struct {
	atsType    Type
	pattern    *regexp.Regexp
	signatures []string
	apiURL     func(m []string) string
}

// platforms is evaluated in order; the first match wins.
var platforms = []platform{
	{
		atsType:    Greenhouse,
		pattern:    regexp.MustCompile(`(?i)(?:job-)?boards(?:-api)?(?:\.eu)?\.greenhouse\.io/(?:v1/boards/|embed/job_board(?:/js)?\?for=)?([A-Za-z0-9_-]+)`),
		signatures: []string{"boards.greenhouse.io", "job-boards.greenhouse.io", "boards-api.greenhouse.io", "greenhouse.io/embed"},
		apiURL: func(m []string) string {
			return fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", m[1])
		},
	},
	{
		atsType:    Lever,
		pattern:    regexp.MustCompile(`(?i)(?:jobs|api)\.(eu\.)?lever\.co/(?:v0/postings/)?([A-Za-z0-9_-]+)`),
		signatures: []string{"jobs.lever.co", "api.lever.co", "jobs.eu.lever.co"},
		apiURL: func(m []string) string {
			return fmt.Sprintf("https://api.%slever.co/v0/postings/%s?mode=json", strings.ToLower(m[1]), m[2])
		},
	},
	{
		atsType:    Ashby,
		pattern:    regexp.MustCompile(`(?i)(?:jobs\.ashbyhq\.com|api\.ashbyhq\.com/posting-api/job-board)/([A-Za-z0-9_.%-]*[A-Za-z0-9_%-])`),
		signatures: []string{"jobs.ashbyhq.com", "ashbyhq.com"},
		apiURL: func(m []string) string {
			return fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s?includeCompensation=true", m[1])
		},
	},
	{
		atsType:    Workday,
		pattern:    regexp.MustCompile(`(?i)([A-Za-z0-9_-]+)\.(wd\d+)\.myworkdayjobs\.com/(?:wday/cxs/[A-Za-z0-9_-]+/)?(?:[a-z]{2}-[a-z]{2}/)?([A-Za-z0-9_-]+)`),
		signatures: []string{"myworkdayjobs.com"},
		apiURL: func(m []string) string {
			return fmt.Sprintf("https://%s.%s.myworkdayjobs.com/wday/cxs/%s/%s/jobs", m[1], m[2], m[1], m[3])
		},
	},
	{
		atsType:    SmartRecruiters,
		pattern:    regexp.MustCompile(`(?i)(?:(?:careers|jobs)\.smartrecruiters\.com/|api\.smartrecruiters\.com/v1/companies/)([A-Za-z0-9_-]+)`),
		signatures: []string{"smartrecruiters.com"},
		apiURL: func(m []string) string {
			return fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings", m[1])
		},
	},
}

// token returns the board token captured by a match.
func (p platform) token(m []string) string {
	if p.atsType == Lever {
		return m[2]
	}
	return m[1]
}

func (p platform) result(m []string, careersURL string) Result {
	return Result{
		ATSType:    p.atsType,
		BoardToken: p.token(m),
		CareersURL: careersURL,
		APIURL:     p.apiURL(m),
	}
}

// MatchURL matches a URL against the platform pattern table.
func MatchURL(rawURL string) (Result, bool) {
	for _, p := range platforms {
		if m := p.pattern.FindStringSubmatch(rawURL); m != nil {
			return p.result(m, rawURL), true
		}
	}
	return Result{}, false
}

// MatchHTML scans page content for platform signatures in table order. When a
// signature is present the token is re-derived from an embedded link if one
// exists; a platform without a recoverable token still counts as identified.
func MatchHTML(pageURL, html string) (Result, bool) {
	lower := strings.ToLower(html)
	for _, p := range platforms {
		if !containsAny(lower, p.signatures) {
			continue
		}
		if m := p.pattern.FindStringSubmatch(html); m != nil {
			return p.result(m, pageURL), true
		}
		return Result{ATSType: p.atsType, CareersURL: pageURL}, true
	}
	return Result{}, false
}

// APIURLFor rebuilds the API URL for a stored type and token. Workday needs the
// full careers URL, so it is rebuilt from careersURL instead.
func APIURLFor(t Type, token, careersURL string) string {
	for _, p := range platforms {
		if p.atsType != t {
			continue
		}
		if t == Workday {
			if m := p.pattern.FindStringSubmatch(careersURL); m != nil {
				return p.apiURL(m)
			}
			return ""
		}
		if token == "" {
			return ""
		}
		if m := p.pattern.FindStringSubmatch(canonicalBoardURL(t, token)); m != nil {
			return p.apiURL(m)
		}
	}
	return ""
}

func canonicalBoardURL(t Type, token string) string {
	token = url.PathEscape(token)
	switch t {
	case Greenhouse:
		return "https://boards.greenhouse.io/" + token
	case Lever:
		return "https://jobs.lever.co/" + token
	case Ashby:
		return "https://jobs.ashbyhq.com/" + token
	case SmartRecruiters:
		return "https://careers.smartrecruiters.com/" + token
	}
	return ""
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
