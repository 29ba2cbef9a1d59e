// Package skills extracts skills, certifications, education and experience
// requirements from job posting text using a declarative taxonomy.
package skills

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/hiring-signals/internal/fetch"
)

// maxYearsExperience bounds plausible experience requirements.
const maxYearsExperience = 30

// Requirements is the structured signal extracted from one posting.
type Requirements struct {
	Skills             []string `json:"skills"`
	SoftSkills         []string `json:"soft_skills"`
	Certifications     []string `json:"certifications"`
	Education          *string  `json:"education"`
	YearsExperience    *int     `json:"years_experience"`
	YearsExperienceRaw *string  `json:"years_experience_raw"`
	SkillCount         int      `json:"skill_count"`
}

// Extractor applies a compiled taxonomy to posting text.
type Extractor struct {
	technical      []compiledTerm
	soft           []compiledTerm
	certifications []compiledTerm
	education      []compiledTerm
	experience     []*regexp.Regexp
}

// NewExtractor compiles every pattern in t.
func NewExtractor(t *Taxonomy) (*Extractor, error) {
	e := &Extractor{}
	var err error
	if e.technical, err = compileTerms("technical", t.Technical); err != nil {
		return nil, err
	}
	if e.soft, err = compileTerms("soft", t.Soft); err != nil {
		return nil, err
	}
	if e.certifications, err = compileTerms("certifications", t.Certifications); err != nil {
		return nil, err
	}
	if e.education, err = compileTerms("education", t.Education); err != nil {
		return nil, err
	}
	for _, pattern := range t.Experience {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("experience: invalid pattern %q: %w", pattern, err)
		}
		if re.NumSubexp() < 1 {
			return nil, fmt.Errorf("experience: pattern %q has no capture group", pattern)
		}
		e.experience = append(e.experience, re)
	}
	return e, nil
}

// ExtractSkills runs the default extractor. See Extractor.Extract.
func ExtractSkills(description, title string) Requirements {
	return MustDefault().Extract(description, title)
}

// Extract pulls requirements out of a description (HTML or plain text) and a
// title. Technical skills found in the title come first; the rest follow in
// taxonomy order without duplicates.
func (e *Extractor) Extract(description, title string) Requirements {
	text := clean(description)
	titleText := clean(title)

	req := Requirements{
		Skills:         dedupe(matchTerms(e.technical, titleText), matchTerms(e.technical, text)),
		SoftSkills:     matchTerms(e.soft, text),
		Certifications: matchTerms(e.certifications, text),
	}

	for _, level := range e.education {
		if level.matches(text) {
			name := level.name
			req.Education = &name
			break
		}
	}

	req.YearsExperience, req.YearsExperienceRaw = e.yearsOfExperience(text)
	req.SkillCount = len(req.Skills)
	return req
}

// yearsOfExperience returns the first match whose year count is in (0, 30].
func (e *Extractor) yearsOfExperience(text string) (*int, *string) {
	for _, re := range e.experience {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			n, err := strconv.Atoi(m[1])
			if err != nil || n <= 0 || n > maxYearsExperience {
				continue
			}
			raw := strings.TrimSpace(m[0])
			return &n, &raw
		}
	}
	return nil, nil
}

func matchTerms(terms []compiledTerm, text string) []string {
	out := make([]string, 0)
	if text == "" {
		return out
	}
	for _, t := range terms {
		if t.matches(text) {
			out = append(out, t.name)
		}
	}
	return out
}

func dedupe(lists ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0)
	for _, list := range lists {
		for _, s := range list {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	return out
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// clean strips markup, folds typographic apostrophes, collapses whitespace and lowercases.
func clean(s string) string {
	if s == "" {
		return ""
	}
	return strings.ToLower(apostrophes.Replace(fetch.HTMLToText(s)))
}
