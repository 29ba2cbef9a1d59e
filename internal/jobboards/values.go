package jobboards

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonathan/hiring-signals/internal/fetch"
)

// str returns nil for empty or whitespace-only strings.
func str(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func float(f *float64) *float64 {
	if f == nil || *f <= 0 {
		return nil
	}
	v := *f
	return &v
}

// text converts an HTML description to plain text, nil when empty.
func text(html string) *string {
	return str(fetch.HTMLToText(html))
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTime accepts the timestamp layouts boards commonly emit.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func millisTime(ms int64) *time.Time {
	if ms <= 0 {
		return nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t
}

// salaryInterval maps a platform's pay period onto year, month, week, day or hour.
func salaryInterval(s string) *string {
	lower := strings.ToLower(s)
	switch {
	case lower == "":
		return nil
	case strings.Contains(lower, "year"), strings.Contains(lower, "annual"):
		return str("year")
	case strings.Contains(lower, "month"):
		return str("month")
	case strings.Contains(lower, "week"):
		return str("week")
	case strings.Contains(lower, "day"), strings.Contains(lower, "daily"):
		return str("day")
	case strings.Contains(lower, "hour"):
		return str("hour")
	}
	return str(lower)
}

// withQuery returns rawURL with the given query parameters set.
func withQuery(rawURL string, params map[string]int) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, strconv.Itoa(v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
