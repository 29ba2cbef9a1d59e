package jobboards

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTransport() *fetch.Client {
	return fetch.NewClient(&fetch.Options{Timeout: 5 * time.Second})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry(newTransport(), GenericOptions{})

	for _, typ := range []ats.Type{ats.Greenhouse, ats.Lever, ats.Ashby, ats.Workday, ats.SmartRecruiters, ats.Generic} {
		c, err := reg.For(typ)
		require.NoError(t, err, typ)
		assert.Equal(t, typ, c.Type())
	}

	_, err := reg.For(ats.Unknown)
	assert.Error(t, err)
}

func TestGreenhouse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/boards/acme/jobs", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("content"))
		_, _ = w.Write([]byte(`{"jobs":[
			{"id":4012345,"title":" Senior Backend Engineer ","updated_at":"2024-03-02T10:00:00-05:00",
			 "absolute_url":"https://boards.greenhouse.io/acme/jobs/4012345",
			 "location":{"name":"Remote - US"},
			 "departments":[{"name":"Engineering"}],
			 "content":"&lt;p&gt;Build APIs in Go.&lt;/p&gt;&lt;p&gt;5+ years required.&lt;/p&gt;",
			 "metadata":[{"name":"Employment Type","value":"Full-time"}],
			 "pay_input_ranges":[{"min_cents":15000000,"max_cents":20000000,"currency_type":"USD"}]},
			{"id":4012346,"title":"Recruiter","location":{"name":""},"departments":[],"content":""}
		],"meta":{"total":2}}`))
	}))
	defer server.Close()

	gh := NewGreenhouse(newTransport())
	raws, err := gh.FetchJobs(context.Background(), Board{Token: "acme", APIURL: server.URL + "/v1/boards/acme/jobs?content=true"})
	require.NoError(t, err)
	require.Len(t, raws, 2)

	f, err := gh.NormalizeJob(raws[0], "acme")
	require.NoError(t, err)
	assert.Equal(t, "4012345", f.ExternalJobID)
	assert.Equal(t, "Senior Backend Engineer", f.Title)
	require.NotNil(t, f.Department)
	assert.Equal(t, "Engineering", *f.Department)
	require.NotNil(t, f.Location)
	assert.Equal(t, "Remote - US", *f.Location)
	require.NotNil(t, f.WorkplaceType)
	assert.Equal(t, "remote", *f.WorkplaceType)
	require.NotNil(t, f.EmploymentType)
	assert.Equal(t, "Full-time", *f.EmploymentType)
	require.NotNil(t, f.DescriptionText)
	assert.Equal(t, "Build APIs in Go. 5+ years required.", *f.DescriptionText)
	require.NotNil(t, f.SalaryMin)
	assert.InDelta(t, 150000.0, *f.SalaryMin, 0.001)
	assert.InDelta(t, 200000.0, *f.SalaryMax, 0.001)
	assert.Equal(t, "USD", *f.SalaryCurrency)
	require.NotNil(t, f.PostedDate)
	assert.Equal(t, 2024, f.PostedDate.Year())
	assert.Nil(t, f.Team)

	sparse, err := gh.NormalizeJob(raws[1], "acme")
	require.NoError(t, err)
	assert.Nil(t, sparse.Department)
	assert.Nil(t, sparse.Location)
	assert.Nil(t, sparse.DescriptionText)
	assert.Nil(t, sparse.SalaryMin)
	assert.Nil(t, sparse.PostedDate)
}

func TestGreenhouse_MissingToken(t *testing.T) {
	_, err := NewGreenhouse(newTransport()).FetchJobs(context.Background(), Board{})
	require.Error(t, err)

	var boardErr *Error
	require.ErrorAs(t, err, &boardErr)
	assert.Equal(t, ats.Greenhouse, boardErr.Platform)
}

func TestGreenhouse_MalformedRecord(t *testing.T) {
	_, err := NewGreenhouse(newTransport()).NormalizeJob(RawJob(`{"id":"not-a-number"}`), "acme")
	assert.Error(t, err)
}

func TestLever_PaginatesUntilShortPage(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		assert.Equal(t, "100", r.URL.Query().Get("limit"))

		n := 100
		if skip >= 100 {
			n = 30
		}
		jobs := make([]map[string]any, n)
		for i := range jobs {
			jobs[i] = map[string]any{"id": fmt.Sprintf("job-%d", skip+i), "text": "Engineer"}
		}
		writeJSON(t, w, jobs)
	}))
	defer server.Close()

	raws, err := NewLever(newTransport()).FetchJobs(context.Background(), Board{APIURL: server.URL + "/v0/postings/acme?mode=json"})
	require.NoError(t, err)
	assert.Len(t, raws, 130)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestLever_NormalizeJob(t *testing.T) {
	raw := RawJob(`{
		"id":"abc-123","text":"Staff Data Engineer","hostedUrl":"https://jobs.lever.co/acme/abc-123",
		"createdAt":1709251200000,
		"categories":{"team":"Data Platform","department":"Engineering","location":"Berlin","commitment":"Full Time"},
		"workplaceType":"hybrid",
		"descriptionPlain":"Work on pipelines.",
		"lists":[{"text":"Requirements","content":"<li>Spark</li><li>Airflow</li>"}],
		"salaryRange":{"min":90000,"max":120000,"currency":"EUR","interval":"per-year-salary"}
	}`)

	f, err := NewLever(newTransport()).NormalizeJob(raw, "acme")
	require.NoError(t, err)
	assert.Equal(t, "abc-123", f.ExternalJobID)
	assert.Equal(t, "Data Platform", *f.Team)
	assert.Equal(t, "Engineering", *f.Department)
	assert.Equal(t, "Full Time", *f.EmploymentType)
	assert.Equal(t, "hybrid", *f.WorkplaceType)
	assert.Equal(t, "year", *f.SalaryInterval)
	assert.Contains(t, *f.DescriptionText, "Spark Airflow")
	require.NotNil(t, f.PostedDate)
	assert.Equal(t, time.March, f.PostedDate.Month())
}

func TestAshby(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"jobs":[
			{"id":"a1","title":"Product Designer","department":"Design","employmentType":"FullTime",
			 "location":"New York","workplaceType":"Hybrid","isListed":true,
			 "publishedAt":"2024-05-01T12:00:00.000+00:00","jobUrl":"https://jobs.ashbyhq.com/acme/a1",
			 "descriptionPlain":"Figma experience.",
			 "compensation":{"summaryComponents":[
				{"compensationType":"EquityPercentage","minValue":0.1,"maxValue":0.2},
				{"compensationType":"Salary","interval":"1 YEAR","currencyCode":"USD","minValue":120000,"maxValue":150000}]}},
			{"id":"a2","title":"Hidden","isListed":false}
		]}`))
	}))
	defer server.Close()

	a := NewAshby(newTransport())
	raws, err := a.FetchJobs(context.Background(), Board{APIURL: server.URL})
	require.NoError(t, err)
	require.Len(t, raws, 1)

	f, err := a.NormalizeJob(raws[0], "acme")
	require.NoError(t, err)
	assert.Equal(t, "a1", f.ExternalJobID)
	assert.Equal(t, "FullTime", *f.EmploymentType)
	assert.Equal(t, "Hybrid", *f.WorkplaceType)
	assert.InDelta(t, 120000.0, *f.SalaryMin, 0.001)
	assert.Equal(t, "year", *f.SalaryInterval)
	assert.Equal(t, "Figma experience.", *f.DescriptionText)
	assert.Nil(t, f.Team)
}

func TestSmartRecruiters_PaginatesUntilTotalFound(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		n := 100
		if offset >= 100 {
			n = 50
		}
		content := make([]map[string]any, n)
		for i := range content {
			content[i] = map[string]any{"id": strconv.Itoa(offset + i), "name": "Nurse"}
		}
		writeJSON(t, w, map[string]any{"offset": offset, "limit": 100, "totalFound": 150, "content": content})
	}))
	defer server.Close()

	raws, err := NewSmartRecruiters(newTransport()).FetchJobs(context.Background(), Board{APIURL: server.URL + "/v1/companies/acme/postings"})
	require.NoError(t, err)
	assert.Len(t, raws, 150)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestSmartRecruiters_NormalizeJob(t *testing.T) {
	raw := RawJob(`{"id":"744000","name":"Registered Nurse","releasedDate":"2024-02-10T08:00:00.000Z",
		"location":{"city":"Austin","region":"TX","country":"us","remote":false},
		"department":{"label":"Clinical"},"typeOfEmployment":{"label":"Full-time"}}`)

	f, err := NewSmartRecruiters(newTransport()).NormalizeJob(raw, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Austin, TX, US", *f.Location)
	assert.Equal(t, "https://jobs.smartrecruiters.com/acme/744000", *f.SourceURL)
	assert.Nil(t, f.WorkplaceType)
	assert.Nil(t, f.DescriptionText)
}

func TestWorkday_PaginatesUsingFirstPageTotal(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/wday/cxs/acme/External/jobs", r.URL.Path)

		var req workdayRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 20, req.Limit)

		n := 20
		if req.Offset == 40 {
			n = 5
		}
		total := 45
		if req.Offset > 0 {
			total = 0
		}
		postings := make([]map[string]any, n)
		for i := range postings {
			postings[i] = map[string]any{
				"title":        "Analyst",
				"externalPath": fmt.Sprintf("/job/NYC/Analyst_R%d", req.Offset+i),
				"bulletFields": []string{fmt.Sprintf("R%d", req.Offset+i)},
				"postedOn":     "Posted 3 Days Ago",
			}
		}
		writeJSON(t, w, map[string]any{"total": total, "jobPostings": postings})
	}))
	defer server.Close()

	wd := NewWorkday(newTransport())
	wd.baseURL = server.URL
	wd.now = func() time.Time { return time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC) }

	raws, err := wd.FetchJobs(context.Background(), Board{Token: "acme", CareersURL: "https://acme.wd5.myworkdayjobs.com/External"})
	require.NoError(t, err)
	assert.Len(t, raws, 45)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))

	f, err := wd.NormalizeJob(raws[0], "acme")
	require.NoError(t, err)
	assert.Equal(t, "R0", f.ExternalJobID)
	assert.Equal(t, server.URL+"/External/job/NYC/Analyst_R0", *f.SourceURL)
	require.NotNil(t, f.PostedDate)
	assert.Equal(t, time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), *f.PostedDate)
}

func TestWorkday_RejectsNonWorkdayURL(t *testing.T) {
	_, err := NewWorkday(newTransport()).FetchJobs(context.Background(), Board{CareersURL: "https://acme.com/careers"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot locate Workday site")
}

func TestParseWorkdayURL(t *testing.T) {
	site, err := parseWorkdayURL("https://acme.wd5.myworkdayjobs.com/wday/cxs/acme/External/jobs")
	require.NoError(t, err)
	assert.Equal(t, workdaySite{Company: "acme", Instance: "wd5", Site: "External"}, site)

	site, err = parseWorkdayURL("https://acme.WD1.myworkdayjobs.com/en-US/Careers")
	require.NoError(t, err)
	assert.Equal(t, workdaySite{Company: "acme", Instance: "wd1", Site: "Careers"}, site)
}

func TestWorkdayPostedDate(t *testing.T) {
	fetched := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	day := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		label string
		want  *time.Time
	}{
		{"Posted Today", &day},
		{"Posted Yesterday", ptrTime(day.AddDate(0, 0, -1))},
		{"Posted 30+ Days Ago", ptrTime(day.AddDate(0, 0, -30))},
		{"", nil},
		{"Recently", nil},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, workdayPostedDate(tt.label, fetched))
		})
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
