package jobboards

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/hiring-signals/internal/ats"
)

// Ashby reads the posting API, which returns the whole board in one response.
type Ashby struct {
	transport Transport
}

// NewAshby creates an Ashby client.
func NewAshby(t Transport) *Ashby {
	return &Ashby{transport: t}
}

// Type returns ats.Ashby.
func (a *Ashby) Type() ats.Type { return ats.Ashby }

type ashbyResponse struct {
	Jobs []RawJob `json:"jobs"`
}

type ashbyJob struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	Department       string `json:"department"`
	Team             string `json:"team"`
	EmploymentType   string `json:"employmentType"`
	Location         string `json:"location"`
	IsRemote         bool   `json:"isRemote"`
	WorkplaceType    string `json:"workplaceType"`
	IsListed         *bool  `json:"isListed"`
	PublishedAt      string `json:"publishedAt"`
	JobURL           string `json:"jobUrl"`
	DescriptionPlain string `json:"descriptionPlain"`
	DescriptionHTML  string `json:"descriptionHtml"`
	Compensation     *struct {
		SummaryComponents []struct {
			CompensationType string   `json:"compensationType"`
			Interval         string   `json:"interval"`
			CurrencyCode     string   `json:"currencyCode"`
			MinValue         *float64 `json:"minValue"`
			MaxValue         *float64 `json:"maxValue"`
		} `json:"summaryComponents"`
	} `json:"compensation"`
}

// FetchJobs returns every listed job on the board.
func (a *Ashby) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	endpoint := board.APIURL
	if endpoint == "" {
		if board.Token == "" {
			return nil, &Error{Platform: ats.Ashby, Message: "missing board token"}
		}
		endpoint = fmt.Sprintf("https://api.ashbyhq.com/posting-api/job-board/%s?includeCompensation=true", board.Token)
	}

	var resp ashbyResponse
	if err := a.transport.GetJSON(ctx, endpoint, &resp); err != nil {
		return nil, &Error{Platform: ats.Ashby, Message: "failed to fetch board", Cause: err}
	}

	listed := resp.Jobs[:0]
	for _, raw := range resp.Jobs {
		var probe struct {
			IsListed *bool `json:"isListed"`
		}
		if decodeRaw(ats.Ashby, raw, &probe) == nil && probe.IsListed != nil && !*probe.IsListed {
			continue
		}
		listed = append(listed, raw)
	}
	return listed, nil
}

// NormalizeJob maps an Ashby job onto Fields.
func (a *Ashby) NormalizeJob(raw RawJob, _ string) (*Fields, error) {
	var job ashbyJob
	if err := decodeRaw(ats.Ashby, raw, &job); err != nil {
		return nil, err
	}

	f := &Fields{
		ExternalJobID:   job.ID,
		Title:           strings.TrimSpace(job.Title),
		Department:      str(job.Department),
		Team:            str(job.Team),
		Location:        str(job.Location),
		EmploymentType:  str(job.EmploymentType),
		WorkplaceType:   str(job.WorkplaceType),
		SourceURL:       str(job.JobURL),
		DescriptionHTML: str(job.DescriptionHTML),
		PostedDate:      parseTime(job.PublishedAt),
	}
	if f.WorkplaceType == nil && job.IsRemote {
		f.WorkplaceType = str("remote")
	}
	if job.DescriptionPlain != "" {
		f.DescriptionText = text(job.DescriptionPlain)
	} else {
		f.DescriptionText = text(job.DescriptionHTML)
	}

	if job.Compensation != nil {
		for _, c := range job.Compensation.SummaryComponents {
			if !strings.EqualFold(c.CompensationType, "Salary") {
				continue
			}
			f.SalaryMin = float(c.MinValue)
			f.SalaryMax = float(c.MaxValue)
			f.SalaryCurrency = str(c.CurrencyCode)
			f.SalaryInterval = salaryInterval(c.Interval)
			break
		}
	}
	return f, nil
}
