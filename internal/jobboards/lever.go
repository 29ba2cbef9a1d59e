package jobboards

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/hiring-signals/internal/ats"
)

const leverPageSize = 100

// Lever pages through the postings API with skip/limit until a short page.
type Lever struct {
	transport Transport
}

// NewLever creates a Lever client.
func NewLever(t Transport) *Lever {
	return &Lever{transport: t}
}

// Type returns ats.Lever.
func (l *Lever) Type() ats.Type { return ats.Lever }

type leverJob struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	HostedURL  string `json:"hostedUrl"`
	CreatedAt  int64  `json:"createdAt"`
	Categories struct {
		Team         string   `json:"team"`
		Department   string   `json:"department"`
		Location     string   `json:"location"`
		Commitment   string   `json:"commitment"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
	WorkplaceType    string `json:"workplaceType"`
	Description      string `json:"description"`
	DescriptionPlain string `json:"descriptionPlain"`
	Lists            []struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	} `json:"lists"`
	Additional      string `json:"additional"`
	AdditionalPlain string `json:"additionalPlain"`
	SalaryRange     *struct {
		Min      *float64 `json:"min"`
		Max      *float64 `json:"max"`
		Currency string   `json:"currency"`
		Interval string   `json:"interval"`
	} `json:"salaryRange"`
}

// FetchJobs returns every posting, following skip/limit pagination.
func (l *Lever) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	endpoint := board.APIURL
	if endpoint == "" {
		if board.Token == "" {
			return nil, &Error{Platform: ats.Lever, Message: "missing board token"}
		}
		endpoint = fmt.Sprintf("https://api.lever.co/v0/postings/%s?mode=json", board.Token)
	}

	var all []RawJob
	for page := 0; page < maxPages; page++ {
		pageURL, err := withQuery(endpoint, map[string]int{"skip": page * leverPageSize, "limit": leverPageSize})
		if err != nil {
			return nil, &Error{Platform: ats.Lever, Message: "invalid API URL", Cause: err}
		}

		var batch []RawJob
		if err := l.transport.GetJSON(ctx, pageURL, &batch); err != nil {
			return nil, &Error{Platform: ats.Lever, Message: fmt.Sprintf("page %d", page), Cause: err}
		}
		all = append(all, batch...)

		if len(batch) < leverPageSize {
			break
		}
	}
	return all, nil
}

// NormalizeJob maps a Lever posting onto Fields.
func (l *Lever) NormalizeJob(raw RawJob, _ string) (*Fields, error) {
	var job leverJob
	if err := decodeRaw(ats.Lever, raw, &job); err != nil {
		return nil, err
	}

	f := &Fields{
		ExternalJobID:  job.ID,
		Title:          strings.TrimSpace(job.Text),
		Department:     str(job.Categories.Department),
		Team:           str(job.Categories.Team),
		Location:       str(job.Categories.Location),
		EmploymentType: str(job.Categories.Commitment),
		SourceURL:      str(job.HostedURL),
		PostedDate:     millisTime(job.CreatedAt),
	}
	if f.Location == nil && len(job.Categories.AllLocations) > 0 {
		f.Location = str(strings.Join(job.Categories.AllLocations, "; "))
	}
	if job.WorkplaceType != "" && job.WorkplaceType != "unspecified" {
		f.WorkplaceType = str(job.WorkplaceType)
	}

	if sr := job.SalaryRange; sr != nil {
		f.SalaryMin = float(sr.Min)
		f.SalaryMax = float(sr.Max)
		f.SalaryCurrency = str(sr.Currency)
		f.SalaryInterval = salaryInterval(sr.Interval)
	}

	var htmlParts, textParts []string
	htmlParts = append(htmlParts, job.Description)
	if job.DescriptionPlain != "" {
		textParts = append(textParts, job.DescriptionPlain)
	} else {
		textParts = append(textParts, job.Description)
	}
	for _, list := range job.Lists {
		htmlParts = append(htmlParts, "<h3>"+list.Text+"</h3><ul>"+list.Content+"</ul>")
		textParts = append(textParts, list.Text, list.Content)
	}
	htmlParts = append(htmlParts, job.Additional)
	if job.AdditionalPlain != "" {
		textParts = append(textParts, job.AdditionalPlain)
	} else {
		textParts = append(textParts, job.Additional)
	}

	f.DescriptionHTML = str(joinNonEmpty("\n", htmlParts...))
	f.DescriptionText = text(joinNonEmpty("\n", textParts...))
	return f, nil
}
