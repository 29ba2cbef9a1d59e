// Package observability provides formatted CLI output and Prometheus metrics
// for collection runs.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/hiring-signals/internal/collector"
	"github.com/jonathan/hiring-signals/internal/db"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for CLI commands
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDetection outputs the ATS detected for a company.
func (p *Printer) PrintDetection(res *collector.ATSResult) {
	if res == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", res.CompanyName))
	sb.WriteString(fmt.Sprintf("ATS:      %s\n", res.ATSType))
	if res.BoardToken != "" {
		sb.WriteString(fmt.Sprintf("Token:    %s\n", res.BoardToken))
	}
	if res.CareersURL != "" {
		sb.WriteString(fmt.Sprintf("Careers:  %s\n", res.CareersURL))
	}
	if res.APIURL != "" {
		sb.WriteString(fmt.Sprintf("API:      %s\n", res.APIURL))
	}
	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("Error:    %s\n", res.Error))
	}

	p.printBox("ATS DETECTION", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintCollectionResult outputs the outcome of one company crawl.
func (p *Printer) PrintCollectionResult(res collector.CollectionResult) {
	var sb strings.Builder
	name := res.CompanyName
	if name == "" {
		name = res.CompanyID.String()
	}
	sb.WriteString(fmt.Sprintf("Company:  %s\n", name))
	sb.WriteString(fmt.Sprintf("ATS:      %s", res.ATSType))
	if res.Redetected {
		sb.WriteString(" (re-detected)")
	}
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Fetched:  %d\n", res.TotalFetched))
	sb.WriteString(fmt.Sprintf("New:      %d\n", res.NewPostings))
	sb.WriteString(fmt.Sprintf("Updated:  %d\n", res.UpdatedPostings))
	sb.WriteString(fmt.Sprintf("Closed:   %d\n", res.ClosedPostings))
	if res.Alerts > 0 {
		sb.WriteString(fmt.Sprintf("Alerts:   %d\n", res.Alerts))
	}
	sb.WriteString(fmt.Sprintf("Duration: %s", res.Duration.Round(time.Millisecond)))
	if res.Error != "" {
		sb.WriteString(fmt.Sprintf("\n\n⚠ %s", res.Error))
	}

	title := "✅ COLLECTION COMPLETE"
	if !res.Succeeded() {
		title = "❌ COLLECTION FAILED"
	}
	p.printBox(title, sb.String())
}

// PrintSummary outputs batch totals and the failed companies.
func (p *Printer) PrintSummary(s collector.Summary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Companies: %d (%d ok, %d failed)\n", s.Companies, s.Succeeded, s.Failed))
	sb.WriteString(fmt.Sprintf("Fetched:   %d\n", s.TotalFetched))
	sb.WriteString(fmt.Sprintf("New:       %d\n", s.NewPostings))
	sb.WriteString(fmt.Sprintf("Updated:   %d\n", s.UpdatedPostings))
	sb.WriteString(fmt.Sprintf("Closed:    %d\n", s.ClosedPostings))
	sb.WriteString(fmt.Sprintf("Alerts:    %d\n", s.Alerts))
	sb.WriteString(fmt.Sprintf("Duration:  %s", s.Duration.Round(time.Millisecond)))
	if s.Error != "" {
		sb.WriteString(fmt.Sprintf("\n\n⚠ %s", s.Error))
	}

	var failed []collector.CollectionResult
	for _, r := range s.Results {
		if !r.Succeeded() {
			failed = append(failed, r)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\n\nFailures:\n")
		count := min(len(failed), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", failed[i].CompanyName, failed[i].Error))
		}
		if len(failed) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(failed)-maxItemsToShow))
		}
	}

	p.printBox("COLLECTION SUMMARY", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintAlerts outputs the alerts raised for a snapshot date.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintAlerts(alerts []db.Alert) {
	if len(alerts) == 0 {
		fmt.Fprintf(p.out, "┌%s┐\n", strings.Repeat("─", boxWidth-2))
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, "✅ NO HIRING CHANGES DETECTED")
		fmt.Fprintf(p.out, "└%s┘\n", strings.Repeat("─", boxWidth-2))
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Raised %d alerts:\n\n", len(alerts)))

	for i, a := range alerts {
		label := a.AlertType
		if a.Department != nil {
			label += " · " + *a.Department
		}
		sb.WriteString(fmt.Sprintf("⚠ %s [%s]\n", label, a.Severity))
		sb.WriteString(fmt.Sprintf("  %d → %d (%+.1f%%, %+d)\n", a.PreviousTotal, a.CurrentTotal, a.ChangePct, a.ChangeAbs))
		if i < len(alerts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("HIRING ALERTS", sb.String())
}
