package observability

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jonathan/nyc-theater/internal/export"
	"github.com/jonathan/nyc-theater/internal/jobs"
	"github.com/stretchr/testify/assert"
)

func TestPrintRunReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	p.PrintRunReport(&jobs.Report{
		RunID:          7,
		JobName:        jobs.ScrapeJobName,
		StartedAt:      start,
		CompletedAt:    start.Add(90 * time.Second),
		ItemsProcessed: 12,
		ItemsAdded:     5,
		ItemsUpdated:   7,
		VenuesScraped:  4,
		ShowsExpired:   2,
		Warnings:       []string{"Cherry Lane: no shows found"},
		Errors:         []string{"The Tank: panic: boom"},
		Success:        false,
	})
	output := buf.String()

	assert.Contains(t, output, "SCRAPE SHOWS")
	assert.Contains(t, output, "#7")
	assert.Contains(t, output, "FAILED")
	assert.Contains(t, output, "1m30s")
	assert.Contains(t, output, "added 5, updated 7")
	assert.Contains(t, output, "Expired:   2")
	assert.Contains(t, output, "Warnings (1)")
	assert.Contains(t, output, "The Tank: panic: boom")
}

func TestPrintRunReport_DiscoveryLabel(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunReport(&jobs.Report{JobName: jobs.DiscoverJobName, VenuesScraped: 3, Success: true})

	assert.Contains(t, buf.String(), "Sources:")
	assert.Contains(t, buf.String(), "SUCCESS")
}

func TestPrintRunReport_TruncatesLists(t *testing.T) {
	var buf bytes.Buffer
	errs := make([]string, 8)
	for i := range errs {
		errs[i] = fmt.Sprintf("venue %d failed", i)
	}
	NewPrinter(&buf).PrintRunReport(&jobs.Report{JobName: jobs.ScrapeJobName, Errors: errs})

	assert.Contains(t, buf.String(), "... and 3 more")
	assert.NotContains(t, buf.String(), "venue 6 failed")
}

func TestPrintRunReport_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunReport(nil)
	assert.Empty(t, buf.String())
}

func TestPrintExportSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintExportSummary(&export.Summary{
		Path:  "public/theater-data.json",
		Bytes: 2048,
		Metadata: export.Metadata{
			GeneratedAt: "2025-06-01T12:00:00Z", TotalVenues: 3, TotalShows: 10,
			ActiveShows: 4, UpcomingShows: 6, Sources: []string{"registry", "squarespace"},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "EXPORT")
	assert.Contains(t, output, "public/theater-data.json")
	assert.Contains(t, output, "active 4, upcoming 6")
	assert.Contains(t, output, "registry, squarespace")
}

func TestPrintPublishResult(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintPublishResult(&export.PublishResult{Latest: "gs://b/theater-data.json", Versioned: "gs://b/versions/x.json"})
	assert.Contains(t, buf.String(), "gs://b/theater-data.json")
}

func TestPrintBox_LineWidths(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "short\n"+strings.Repeat("é", 100))

	for _, line := range strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, utf8.RuneCountInString(line), line)
	}
	assert.Contains(t, buf.String(), "...")
}
