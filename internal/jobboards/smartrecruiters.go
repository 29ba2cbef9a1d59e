package jobboards

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jonathan/hiring-signals/internal/ats"
)

const smartRecruitersPageSize = 100

// SmartRecruiters pages through the postings API with offset/limit until
// offset reaches totalFound.
type SmartRecruiters struct {
	transport Transport
}

// NewSmartRecruiters creates a SmartRecruiters client.
func NewSmartRecruiters(t Transport) *SmartRecruiters {
	return &SmartRecruiters{transport: t}
}

// Type returns ats.SmartRecruiters.
func (s *SmartRecruiters) Type() ats.Type { return ats.SmartRecruiters }

type smartRecruitersPage struct {
	Offset     int      `json:"offset"`
	Limit      int      `json:"limit"`
	TotalFound int      `json:"totalFound"`
	Content    []RawJob `json:"content"`
}

type smartRecruitersLabel struct {
	Label string `json:"label"`
}

type smartRecruitersJob struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	RefNumber    string `json:"refNumber"`
	ReleasedDate string `json:"releasedDate"`
	Location     struct {
		City         string `json:"city"`
		Region       string `json:"region"`
		Country      string `json:"country"`
		FullLocation string `json:"fullLocation"`
		Remote       bool   `json:"remote"`
		Hybrid       bool   `json:"hybrid"`
	} `json:"location"`
	Department       smartRecruitersLabel `json:"department"`
	Function         smartRecruitersLabel `json:"function"`
	TypeOfEmployment smartRecruitersLabel `json:"typeOfEmployment"`
}

// FetchJobs returns every posting, following offset/limit pagination.
func (s *SmartRecruiters) FetchJobs(ctx context.Context, board Board) ([]RawJob, error) {
	endpoint := board.APIURL
	if endpoint == "" {
		if board.Token == "" {
			return nil, &Error{Platform: ats.SmartRecruiters, Message: "missing board token"}
		}
		endpoint = fmt.Sprintf("https://api.smartrecruiters.com/v1/companies/%s/postings", board.Token)
	}

	var all []RawJob
	offset := 0
	for page := 0; page < maxPages; page++ {
		pageURL, err := withQuery(endpoint, map[string]int{"offset": offset, "limit": smartRecruitersPageSize})
		if err != nil {
			return nil, &Error{Platform: ats.SmartRecruiters, Message: "invalid API URL", Cause: err}
		}

		var resp smartRecruitersPage
		if err := s.transport.GetJSON(ctx, pageURL, &resp); err != nil {
			return nil, &Error{Platform: ats.SmartRecruiters, Message: fmt.Sprintf("offset %d", offset), Cause: err}
		}
		all = append(all, resp.Content...)
		offset += len(resp.Content)

		if len(resp.Content) == 0 || offset >= resp.TotalFound {
			break
		}
	}
	return all, nil
}

// NormalizeJob maps a SmartRecruiters posting onto Fields. The token is the
// company identifier used to build the public posting URL.
func (s *SmartRecruiters) NormalizeJob(raw RawJob, token string) (*Fields, error) {
	var job smartRecruitersJob
	if err := decodeRaw(ats.SmartRecruiters, raw, &job); err != nil {
		return nil, err
	}

	f := &Fields{
		ExternalJobID:  job.ID,
		Title:          strings.TrimSpace(job.Name),
		Department:     str(job.Department.Label),
		Team:           str(job.Function.Label),
		EmploymentType: str(job.TypeOfEmployment.Label),
		PostedDate:     parseTime(job.ReleasedDate),
	}

	f.Location = str(job.Location.FullLocation)
	if f.Location == nil {
		f.Location = str(joinNonEmpty(", ", job.Location.City, job.Location.Region, strings.ToUpper(job.Location.Country)))
	}
	switch {
	case job.Location.Remote:
		f.WorkplaceType = str("remote")
	case job.Location.Hybrid:
		f.WorkplaceType = str("hybrid")
	}

	if token != "" && job.ID != "" {
		f.SourceURL = str(fmt.Sprintf("https://jobs.smartrecruiters.com/%s/%s", url.PathEscape(token), url.PathEscape(job.ID)))
	}
	return f, nil
}
