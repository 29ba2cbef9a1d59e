package skills

import (
	"embed"
	"encoding/json"
	"fmt"
	"regexp"
	"sync"

	"github.com/jonathan/hiring-signals/internal/schemas"
)

//go:embed taxonomy.json taxonomy.schema.json
var taxonomyFiles embed.FS

// Term is one named entry in a taxonomy list. A term matches when any of its
// patterns matches the cleaned, lowercased text.
type Term struct {
	Name     string   `json:"name"`
	Patterns []string `json:"patterns"`
}

// Taxonomy is the declarative skill vocabulary. List order is significant:
// extraction output follows it, and education levels are ranked by it.
type Taxonomy struct {
	Version        int      `json:"version"`
	Technical      []Term   `json:"technical"`
	Soft           []Term   `json:"soft"`
	Certifications []Term   `json:"certifications"`
	Education      []Term   `json:"education"`
	Experience     []string `json:"experience"`
}

// LoadTaxonomy validates data against the taxonomy schema and parses it.
func LoadTaxonomy(data []byte) (*Taxonomy, error) {
	schema, err := taxonomyFiles.ReadFile("taxonomy.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read taxonomy schema: %w", err)
	}
	if err := schemas.Validate("taxonomy.schema.json", schema, data); err != nil {
		return nil, fmt.Errorf("invalid taxonomy: %w", err)
	}

	var t Taxonomy
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	return &t, nil
}

// DefaultTaxonomy returns the embedded taxonomy.
func DefaultTaxonomy() (*Taxonomy, error) {
	data, err := taxonomyFiles.ReadFile("taxonomy.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded taxonomy: %w", err)
	}
	return LoadTaxonomy(data)
}

type compiledTerm struct {
	name     string
	patterns []*regexp.Regexp
}

func (c compiledTerm) matches(text string) bool {
	for _, p := range c.patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compileTerms(section string, terms []Term) ([]compiledTerm, error) {
	out := make([]compiledTerm, 0, len(terms))
	for _, term := range terms {
		ct := compiledTerm{name: term.Name}
		for _, pattern := range term.Patterns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("%s term %q: invalid pattern %q: %w", section, term.Name, pattern, err)
			}
			ct.patterns = append(ct.patterns, re)
		}
		out = append(out, ct)
	}
	return out, nil
}

var (
	defaultOnce      sync.Once
	defaultExtractor *Extractor
	defaultErr       error
)

// Default returns the extractor built from the embedded taxonomy. The
// taxonomy is loaded and compiled once per process.
func Default() (*Extractor, error) {
	defaultOnce.Do(func() {
		t, err := DefaultTaxonomy()
		if err != nil {
			defaultErr = err
			return
		}
		defaultExtractor, defaultErr = NewExtractor(t)
	})
	return defaultExtractor, defaultErr
}

// MustDefault returns the default extractor, panicking if the embedded
// taxonomy is broken.
func MustDefault() *Extractor {
	e, err := Default()
	if err != nil {
		panic(fmt.Sprintf("failed to load skills taxonomy: %v", err))
	}
	return e
}
