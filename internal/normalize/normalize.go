// Package normalize maps platform-specific posting values onto canonical
// seniority, employment type and workplace type buckets.
package normalize

import (
	"regexp"
	"strings"

	"github.com/jonathan/hiring-signals/internal/jobboards"
)

// Seniority levels
const (
	SeniorityCSuite   = "c_suite"
	SeniorityVP       = "vp"
	SeniorityDirector = "director"
	SeniorityLead     = "lead"
	SenioritySenior   = "senior"
	SeniorityMid      = "mid"
	SeniorityEntry    = "entry"
)

// Employment types
const (
	FullTime   = "full_time"
	PartTime   = "part_time"
	Contract   = "contract"
	Temporary  = "temporary"
	Internship = "internship"
)

// Workplace types
const (
	Remote = "remote"
	Hybrid = "hybrid"
	Onsite = "onsite"
)

type seniorityRule struct {
	level   string
	pattern *regexp.Regexp
}

// seniorityRules is evaluated in order; the first match wins.
var seniorityRules = []seniorityRule{
	{SeniorityCSuite, regexp.MustCompile(`(?i)\b(?:chief\s+\w+(?:\s+\w+)?\s+officer|ceo|cto|cfo|coo|cio|ciso|cmo|cpo|cro|c-level)\b`)},
	{SeniorityVP, regexp.MustCompile(`(?i)\b(?:vp|svp|evp|avp|vice\s+president)\b`)},
	{SeniorityDirector, regexp.MustCompile(`(?i)\b(?:director|head\s+of)\b`)},
	{SeniorityLead, regexp.MustCompile(`(?i)\b(?:lead|manager|principal|staff|architect|supervisor)\b`)},
	{SenioritySenior, regexp.MustCompile(`(?i)\b(?:senior|sr|iii|iv)\b`)},
	{SeniorityEntry, regexp.MustCompile(`(?i)\b(?:junior|jr|entry[\s-]level|entry|intern|internship|graduate|new\s+grad|trainee|apprentice)\b`)},
	{SeniorityMid, regexp.MustCompile(`(?i)\b(?:associate|intermediate|mid[\s-]level|ii)\b`)},
}

var employmentAliases = map[string]string{
	"full time":  FullTime,
	"full-time":  FullTime,
	"fulltime":   FullTime,
	"full_time":  FullTime,
	"permanent":  FullTime,
	"regular":    FullTime,
	"ft":         FullTime,
	"part time":  PartTime,
	"part-time":  PartTime,
	"parttime":   PartTime,
	"part_time":  PartTime,
	"pt":         PartTime,
	"contract":   Contract,
	"contractor": Contract,
	"freelance":  Contract,
	"temporary":  Temporary,
	"temp":       Temporary,
	"seasonal":   Temporary,
	"intern":     Internship,
	"internship": Internship,
}

var workplaceAliases = map[string]string{
	"remote":         Remote,
	"fully remote":   Remote,
	"remote-first":   Remote,
	"telecommute":    Remote,
	"work from home": Remote,
	"hybrid":         Hybrid,
	"flexible":       Hybrid,
	"onsite":         Onsite,
	"on-site":        Onsite,
	"on site":        Onsite,
	"in office":      Onsite,
	"in-office":      Onsite,
	"office":         Onsite,
	"in person":      Onsite,
	"in-person":      Onsite,
}

var (
	whitespaceRe        = regexp.MustCompile(`\s+`)
	trailingPunctuation = regexp.MustCompile(`[\s.,;:|/\\\-–—]+$`)
)

// Seniority returns the canonical seniority for a title, defaulting to mid.
func Seniority(title string) string {
	for _, rule := range seniorityRules {
		if rule.pattern.MatchString(title) {
			return rule.level
		}
	}
	return SeniorityMid
}

// EmploymentType maps an employment type alias to its canonical value.
// Unmapped values are returned lowercased and trimmed; empty input yields nil.
func EmploymentType(v *string) *string {
	return canonical(v, employmentAliases)
}

// WorkplaceType maps a workplace type alias to its canonical value.
// Unmapped values are returned lowercased and trimmed; empty input yields nil.
func WorkplaceType(v *string) *string {
	return canonical(v, workplaceAliases)
}

func canonical(v *string, aliases map[string]string) *string {
	if v == nil {
		return nil
	}
	key := strings.ToLower(strings.TrimSpace(*v))
	if key == "" {
		return nil
	}
	if mapped, ok := aliases[key]; ok {
		return &mapped
	}
	// Retry with underscores and dashes read as spaces.
	if mapped, ok := aliases[strings.NewReplacer("_", " ", "-", " ").Replace(key)]; ok {
		return &mapped
	}
	return &key
}

// Title collapses whitespace and strips trailing punctuation. Nothing else
// about the title is changed.
func Title(title string) string {
	t := whitespaceRe.ReplaceAllString(strings.TrimSpace(title), " ")
	return trailingPunctuation.ReplaceAllString(t, "")
}

// Apply canonicalizes the employment and workplace type of f in place.
func Apply(f *jobboards.Fields) {
	f.EmploymentType = EmploymentType(f.EmploymentType)
	f.WorkplaceType = WorkplaceType(f.WorkplaceType)
}
