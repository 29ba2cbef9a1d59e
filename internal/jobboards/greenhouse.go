package jobboards

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/jonathan/hiring-signals/internal/ats"
)

// Greenhouse reads the public board API, which returns every job in one response.
type Greenhouse struct {
	transport Transport
}

// NewGreenhouse creates a Greenhouse client.
func NewGreenhouse(t Transport) *Greenhouse {
	return &Greenhouse{transport: t}
}

// Type returns ats.Greenhouse.
func (g *Greenhouse) Type() ats.Type { return ats.Greenhouse }

type greenhouseResponse struct {
	Jobs []RawJob `json:"jobs"`
}

type greenhouseJob struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	UpdatedAt      string `json:"updated_at"`
	FirstPublished string `json:"first_published"`
	AbsoluteURL    string `json:"absolute_url"`
	Content        string `json:"content"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
	Offices []struct {
		Name string `json:"name"`
	} `json:"offices"`
	Metadata []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"metadata"`
	PayInputRanges []struct {
		MinCents     int64  `json:"min_cents"`
		MaxCents     int64  `json:"max_cents"`
		CurrencyType string `json:"currency_type"`
	} `json:"pay_input_ranges"`
}

// FetchJobs returns every job on the board.
func (g *Greenhouse) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	endpoint := board.APIURL
	if endpoint == "" {
		if board.Token == "" {
			return nil, &Error{Platform: ats.Greenhouse, Message: "missing board token"}
		}
		endpoint = fmt.Sprintf("https://boards-api.greenhouse.io/v1/boards/%s/jobs?content=true", board.Token)
	}

	var resp greenhouseResponse
	if err := g.transport.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, &Error{Platform: ats.Greenhouse, Message: "failed to fetch board", Cause: err}
	}
	return resp.Jobs, nil
}

// NormalizeJob maps a Greenhouse job onto Fields.
func (g *Greenhouse) NormalizeJob(raw RawJob, _ string) (*Fields, error) {
	var job greenhouseJob
	if err := decodeRaw(ats.Greenhouse, raw, &job); err != nil {
		return nil, err
	}

	f := &Fields{
		Title:     strings.TrimSpace(job.Title),
		Location:  str(job.Location.Name),
		SourceURL: str(job.AbsoluteURL),
	}
	if job.ID != 0 {
		f.ExternalJobID = strconv.FormatInt(job.ID, 10)
	}
	if len(job.Departments) > 0 {
		f.Department = str(job.Departments[0].Name)
	}
	if len(job.Departments) > 1 {
		f.Team = str(job.Departments[1].Name)
	}
	if f.Location == nil && len(job.Offices) > 0 {
		f.Location = str(job.Offices[0].Name)
	}
	if f.Location != nil && strings.Contains(strings.ToLower(*f.Location), "remote") {
		f.WorkplaceType = str("remote")
	}

	for _, m := range job.Metadata {
		name := strings.ToLower(m.Name)
		value, ok := m.Value.(string)
		if !ok {
			continue
		}
		switch {
		case strings.Contains(name, "employment type"), strings.Contains(name, "job type"):
			f.EmploymentType = str(value)
		case strings.Contains(name, "workplace"), strings.Contains(name, "remote"):
			f.WorkplaceType = str(value)
		}
	}

	if len(job.PayInputRanges) > 0 {
		pay := job.PayInputRanges[0]
		minVal := float64(pay.MinCents) / 100
		maxVal := float64(pay.MaxCents) / 100
		f.SalaryMin = float(&minVal)
		f.SalaryMax = float(&maxVal)
		f.SalaryCurrency = str(pay.CurrencyType)
		if f.SalaryMin != nil || f.SalaryMax != nil {
			f.SalaryInterval = str("year")
		}
	}

	if job.Content != "" {
		f.DescriptionHTML = str(html.UnescapeString(job.Content))
		f.DescriptionText = text(job.Content)
	}

	f.PostedDate = parseTime(job.FirstPublished)
	if f.PostedDate == nil {
		f.PostedDate = parseTime(job.UpdatedAt)
	}
	return f, nil
}
