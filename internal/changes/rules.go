// Package changes compares daily posting snapshots a week apart and raises
// hiring alerts when a company or department changes sharply.
package changes

import (
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/jonathan/hiring-signals/internal/db"
)

// Thresholds for the alert rules. Percentages are in percent, not fractions.
const (
	// MinBase is the total below which company-level changes are noise.
	MinBase = 10

	SurgePct          = 50.0
	SurgeSmallBase    = 40
	SurgeSmallBaseAbs = 20
	// SurgeHighPct follows the worked example (20 -> 35 is high) over the
	// stated >= 100% threshold, which would rate that case medium. See the
	// surge severity decision in DESIGN.md before changing it.
	SurgeHighPct = 75.0

	FreezePct        = -30.0
	FreezeFloorBase  = 20
	FreezeFloor      = 5
	FreezeHighPct    = -60.0
	DepartmentMinAbs = 5
	DeptSurgePct     = 100.0
	DeptDeclinePct   = -50.0
)

// Lookback is the distance between the compared snapshots.
const Lookback = 7

// Evaluate applies the alert rules to a snapshot pair. It is pure: the
// returned alerts are not persisted and have no ID.
func Evaluate(companyID uuid.UUID, current, previous *db.Snapshot) []db.Alert {
	if current == nil || previous == nil {
		return nil
	}

	var alerts []db.Alert
	base := db.Alert{
		CompanyID:    companyID,
		SnapshotDate: db.DateOf(current.SnapshotDate),
	}
	prevDate := db.DateOf(previous.SnapshotDate).Format("2006-01-02")

	cur, prev := current.TotalOpen, previous.TotalOpen
	if cur >= MinBase || prev >= MinBase {
		abs := cur - prev
		pct := PercentChange(prev, cur)

		switch {
		case pct >= SurgePct || (prev < SurgeSmallBase && abs >= SurgeSmallBaseAbs):
			a := base
			a.AlertType = db.AlertHiringSurge
			a.Severity = db.SeverityMedium
			if pct >= SurgeHighPct {
				a.Severity = db.SeverityHigh
			}
			a.CurrentTotal, a.PreviousTotal, a.ChangePct, a.ChangeAbs = cur, prev, pct, abs
			a.Details = map[string]any{
				"previous_snapshot_date": prevDate,
				"new_postings":           current.NewPostings,
				"closed_postings":        current.ClosedPostings,
			}
			alerts = append(alerts, a)

		case pct <= FreezePct || (prev >= FreezeFloorBase && cur <= FreezeFloor):
			a := base
			a.AlertType = db.AlertHiringFreeze
			a.Severity = db.SeverityMedium
			if (cur <= FreezeFloor && prev >= FreezeFloorBase) || pct <= FreezeHighPct {
				a.Severity = db.SeverityHigh
			}
			a.CurrentTotal, a.PreviousTotal, a.ChangePct, a.ChangeAbs = cur, prev, pct, abs
			a.Details = map[string]any{
				"previous_snapshot_date": prevDate,
				"new_postings":           current.NewPostings,
				"closed_postings":        current.ClosedPostings,
			}
			alerts = append(alerts, a)
		}
	}

	for _, dept := range departmentKeys(current.ByDepartment, previous.ByDepartment) {
		c, p := current.ByDepartment[dept], previous.ByDepartment[dept]
		abs := c - p
		if abs < DepartmentMinAbs && abs > -DepartmentMinAbs {
			continue
		}
		pct := PercentChange(p, c)

		var alertType string
		switch {
		case pct >= DeptSurgePct:
			alertType = db.AlertDepartmentSurge
		case pct <= DeptDeclinePct:
			alertType = db.AlertDepartmentDecline
		default:
			continue
		}

		name := dept
		a := base
		a.AlertType = alertType
		a.Severity = db.SeverityLow
		a.Department = &name
		a.CurrentTotal, a.PreviousTotal, a.ChangePct, a.ChangeAbs = c, p, pct, abs
		a.Details = map[string]any{
			"previous_snapshot_date": prevDate,
			"company_current_total":  cur,
			"company_previous_total": prev,
		}
		alerts = append(alerts, a)
	}

	return alerts
}

// PercentChange returns the change from previous to current in percent,
// rounded to two decimals. A zero base yields 100 for growth and 0 otherwise.
func PercentChange(previous, current int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	pct := float64(current-previous) / float64(previous) * 100
	return math.Round(pct*100) / 100
}

func departmentKeys(a, b map[string]int) []string {
	seen := make(map[string]bool, len(a)+len(b))
	keys := make([]string, 0, len(a)+len(b))
	for _, m := range []map[string]int{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}
