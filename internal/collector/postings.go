package collector

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/ats"
	"github.com/jonathan/hiring-signals/internal/db"
	"github.com/jonathan/hiring-signals/internal/fetch"
	"github.com/jonathan/hiring-signals/internal/jobboards"
	"github.com/jonathan/hiring-signals/internal/normalize"
	"github.com/jonathan/hiring-signals/internal/skills"
)

// normalizeAll maps raw jobs onto postings. Jobs that fail to normalize or
// carry no external ID are skipped; duplicate IDs keep the first record.
func (c *Collector) normalizeAll(client jobboards.Client, raws []jobboards.RawJob, target ats.Result, companyID uuid.UUID) []db.Posting {
	postings := make([]db.Posting, 0, len(raws))
	seen := make(map[string]bool, len(raws))
	skipped := 0

	for i, raw := range raws {
		fields, err := client.NormalizeJob(raw, target.BoardToken)
		if err != nil {
			log.Printf("[COLLECT] Skipping %s job %d: %v", target.ATSType, i, err)
			skipped++
			continue
		}
		if fields == nil || strings.TrimSpace(fields.ExternalJobID) == "" {
			skipped++
			continue
		}
		if seen[fields.ExternalJobID] {
			continue
		}
		seen[fields.ExternalJobID] = true
		postings = append(postings, buildPosting(companyID, target.ATSType, fields))
	}

	if skipped > 0 {
		c.logf("Skipped %d of %d %s jobs", skipped, len(raws), target.ATSType)
	}
	return postings
}

// buildPosting applies cross-platform normalization and skill extraction.
func buildPosting(companyID uuid.UUID, atsType ats.Type, f *jobboards.Fields) db.Posting {
	normalize.Apply(f)

	description := f.DescriptionText
	if description == nil && f.DescriptionHTML != nil {
		if text := fetch.HTMLToText(*f.DescriptionHTML); text != "" {
			description = &text
		}
	}

	title := normalize.Title(f.Title)
	seniority := normalize.Seniority(title)
	requirements := skills.ExtractSkills(deref(description), title)

	return db.Posting{
		CompanyID:       companyID,
		ExternalJobID:   strings.TrimSpace(f.ExternalJobID),
		Title:           strings.TrimSpace(f.Title),
		TitleNormalized: optional(title),
		Department:      f.Department,
		Team:            f.Team,
		Location:        f.Location,
		EmploymentType:  f.EmploymentType,
		WorkplaceType:   f.WorkplaceType,
		SeniorityLevel:  &seniority,
		SalaryMin:       f.SalaryMin,
		SalaryMax:       f.SalaryMax,
		SalaryCurrency:  f.SalaryCurrency,
		SalaryInterval:  f.SalaryInterval,
		DescriptionText: description,
		Requirements:    &requirements,
		SourceURL:       f.SourceURL,
		ATSType:         atsType,
		Status:          db.PostingOpen,
		PostedDate:      f.PostedDate,
	}
}

type syncCounts struct {
	inserted int
	updated  int
	closed   int
}

// syncPostings upserts incoming postings and closes open postings that are
// missing from them. Nothing is closed when incoming is empty, so a failed
// or empty fetch never wipes out a board.
func syncPostings(ctx context.Context, tx Store, companyID uuid.UUID, incoming []db.Posting, now time.Time) (syncCounts, error) {
	var counts syncCounts

	existing, err := tx.ListPostings(ctx, companyID)
	if err != nil {
		return counts, err
	}
	byExternalID := make(map[string]db.Posting, len(existing))
	for _, p := range existing {
		byExternalID[p.ExternalJobID] = p
	}

	seen := make(map[string]bool, len(incoming))
	for i := range incoming {
		p := incoming[i]
		seen[p.ExternalJobID] = true

		if stored, ok := byExternalID[p.ExternalJobID]; ok {
			merged := mergePosting(stored, p, now)
			if err := tx.UpdatePosting(ctx, &merged); err != nil {
				return counts, err
			}
			counts.updated++
			continue
		}

		p.Status = db.PostingOpen
		p.FirstSeenAt = now
		p.LastSeenAt = now
		p.ClosedAt = nil
		if err := tx.InsertPosting(ctx, &p); err != nil {
			return counts, err
		}
		counts.inserted++
	}

	if len(seen) == 0 {
		return counts, nil
	}

	var vanished []uuid.UUID
	for _, p := range existing {
		if p.Status == db.PostingOpen && !seen[p.ExternalJobID] {
			vanished = append(vanished, p.ID)
		}
	}
	closed, err := tx.ClosePostings(ctx, vanished, now)
	if err != nil {
		return counts, err
	}
	counts.closed = closed
	return counts, nil
}

// mergePosting overlays non-null incoming values on the stored posting and
// marks it seen and open. A re-appearing closed posting is reopened.
func mergePosting(stored, incoming db.Posting, now time.Time) db.Posting {
	m := stored

	if incoming.Title != "" {
		m.Title = incoming.Title
	}
	overlay(&m.TitleNormalized, incoming.TitleNormalized)
	overlay(&m.Department, incoming.Department)
	overlay(&m.Team, incoming.Team)
	overlay(&m.Location, incoming.Location)
	overlay(&m.EmploymentType, incoming.EmploymentType)
	overlay(&m.WorkplaceType, incoming.WorkplaceType)
	overlay(&m.SeniorityLevel, incoming.SeniorityLevel)
	overlay(&m.SalaryMin, incoming.SalaryMin)
	overlay(&m.SalaryMax, incoming.SalaryMax)
	overlay(&m.SalaryCurrency, incoming.SalaryCurrency)
	overlay(&m.SalaryInterval, incoming.SalaryInterval)
	overlay(&m.SourceURL, incoming.SourceURL)
	overlay(&m.PostedDate, incoming.PostedDate)

	// Requirements follow the description they were extracted from.
	if incoming.DescriptionText != nil {
		m.DescriptionText = incoming.DescriptionText
		m.Requirements = incoming.Requirements
	} else if m.Requirements == nil {
		m.Requirements = incoming.Requirements
	}

	if incoming.ATSType != "" {
		m.ATSType = incoming.ATSType
	}
	m.Status = db.PostingOpen
	m.ClosedAt = nil
	m.LastSeenAt = now
	return m
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
