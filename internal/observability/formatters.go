// Package observability formats job and export summaries for the CLI.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/nyc-theater/internal/export"
	"github.com/jonathan/nyc-theater/internal/jobs"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes boxed summaries.
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
	fmt.Fprintf(p.out, "│ %s │\n", pad(title))
	fmt.Fprintf(p.out, "├%s┤\n", border)
	for _, line := range strings.Split(content, "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line))
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads line to the box's inner width in runes.
func pad(line string) string {
	width := boxWidth - 4
	n := utf8.RuneCountInString(line)
	if n > width {
		runes := []rune(line)
		return string(runes[:width-3]) + "..."
	}
	return line + strings.Repeat(" ", width-n)
}

// listSection renders up to maxItemsToShow items under a heading.
func listSection(sb *strings.Builder, heading string, items []string) {
	if len(items) == 0 {
		return
	}
	sb.WriteString(fmt.Sprintf("\n%s (%d):\n", heading, len(items)))
	count := min(len(items), maxItemsToShow)
	for i := 0; i < count; i++ {
		sb.WriteString(fmt.Sprintf("  • %s\n", items[i]))
	}
	if len(items) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(items)-maxItemsToShow))
	}
}

// PrintRunReport outputs a job run's counts, warnings and errors.
func (p *Printer) PrintRunReport(r *jobs.Report) {
	if r == nil {
		return
	}

	var sb strings.Builder
	status := "SUCCESS"
	if !r.Success {
		status = "FAILED"
	}
	sb.WriteString(fmt.Sprintf("Run:       #%d %s\n", r.RunID, r.JobName))
	sb.WriteString(fmt.Sprintf("Status:    %s\n", status))
	if !r.CompletedAt.IsZero() {
		sb.WriteString(fmt.Sprintf("Duration:  %s\n", r.CompletedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	}
	label := "Venues:"
	if r.JobName == jobs.DiscoverJobName {
		label = "Sources:"
	}
	sb.WriteString(fmt.Sprintf("%-10s %d\n", label, r.VenuesScraped))
	sb.WriteString(fmt.Sprintf("Processed: %d (added %d, updated %d)\n", r.ItemsProcessed, r.ItemsAdded, r.ItemsUpdated))
	if r.ShowsExpired > 0 {
		sb.WriteString(fmt.Sprintf("Expired:   %d\n", r.ShowsExpired))
	}
	listSection(&sb, "Warnings", r.Warnings)
	listSection(&sb, "Errors", r.Errors)

	p.printBox(strings.ToUpper(strings.ReplaceAll(r.JobName, "_", " ")), strings.TrimSuffix(sb.String(), "\n"))
}

// PrintExportSummary outputs what was written to the export file.
func (p *Printer) PrintExportSummary(s *export.Summary) {
	if s == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("File:      %s\n", s.Path))
	sb.WriteString(fmt.Sprintf("Size:      %d bytes\n", s.Bytes))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", s.Metadata.GeneratedAt))
	sb.WriteString(fmt.Sprintf("Venues:    %d\n", s.Metadata.TotalVenues))
	sb.WriteString(fmt.Sprintf("Shows:     %d (active %d, upcoming %d)\n",
		s.Metadata.TotalShows, s.Metadata.ActiveShows, s.Metadata.UpcomingShows))
	if len(s.Metadata.Sources) > 0 {
		sb.WriteString(fmt.Sprintf("Sources:   %s\n", strings.Join(s.Metadata.Sources, ", ")))
	}

	p.printBox("EXPORT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintPublishResult outputs the uploaded locations.
func (p *Printer) PrintPublishResult(r *export.PublishResult) {
	if r == nil {
		return
	}
	p.printBox("PUBLISHED", fmt.Sprintf("Latest:    %s\nVersioned: %s", r.Latest, r.Versioned))
}
