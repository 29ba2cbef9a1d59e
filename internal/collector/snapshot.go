package collector

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/db"
)

// UnknownBucket collects open postings with no value for a breakdown dimension.
const UnknownBucket = "Unknown"

// BuildSnapshot aggregates a company's postings for the UTC day of date.
// Breakdowns count open postings only.
func BuildSnapshot(companyID uuid.UUID, date time.Time, postings []db.Posting) db.Snapshot {
	day := db.DateOf(date)
	s := db.Snapshot{
		CompanyID:        companyID,
		SnapshotDate:     day,
		ByDepartment:     map[string]int{},
		ByLocation:       map[string]int{},
		BySeniority:      map[string]int{},
		ByEmploymentType: map[string]int{},
	}

	for _, p := range postings {
		if db.DateOf(p.FirstSeenAt).Equal(day) {
			s.NewPostings++
		}
		if p.Status == db.PostingClosed && p.ClosedAt != nil && db.DateOf(*p.ClosedAt).Equal(day) {
			s.ClosedPostings++
		}
		if p.Status != db.PostingOpen {
			continue
		}

		s.TotalOpen++
		s.ByDepartment[bucket(p.Department)]++
		s.ByLocation[bucket(p.Location)]++
		s.BySeniority[bucket(p.SeniorityLevel)]++
		s.ByEmploymentType[bucket(p.EmploymentType)]++
	}
	return s
}

func bucket(v *string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return UnknownBucket
	}
	return strings.TrimSpace(*v)
}
