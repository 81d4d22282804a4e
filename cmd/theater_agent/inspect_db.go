package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/db"
	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/spf13/cobra"
)

func newInspectDBCmd(g *globalOptions) *cobra.Command {
	var (
		runs          int
		showVenues    bool
		showPlatforms bool
	)

	cmd := &cobra.Command{
		Use:   "inspect-db",
		Short: "Print store counts, recent runs and optionally venues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, nil)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()

			stats, err := store.Stats(ctx)
			if err != nil {
				return err
			}
			renderStats(out, stats)

			recent, err := store.ListRuns(ctx, runs)
			if err != nil {
				return err
			}
			renderRuns(out, recent)

			if showVenues {
				venues, err := store.ListVenues(ctx, db.VenueFilter{})
				if err != nil {
					return err
				}
				renderVenues(out, venues)
			}

			if showPlatforms {
				reg, err := a.loadRegistry()
				if err != nil {
					return err
				}
				factory := scrapers.NewFactory(scrapers.Deps{Logger: a.logger, Now: a.now}, reg.PlatformDefaults)
				renderPlatforms(out, factory.Platforms(), reg)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&runs, "runs", 10, "Number of recent runs to list")
	cmd.Flags().BoolVar(&showVenues, "venues", false, "Also list every venue")
	cmd.Flags().BoolVar(&showPlatforms, "platforms", false, "Also list extractor platforms and their registry entries")
	return cmd
}

func newTable(out io.Writer, title string) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(out)
	t.SetTitle(title)
	return t
}

func renderStats(out io.Writer, s *db.Stats) {
	t := newTable(out, "Store")
	t.AppendHeader(table.Row{"Table", "Total", "Active"})
	t.AppendRows([]table.Row{
		{"venues", s.Venues, s.ActiveVenues},
		{"shows", s.Shows, s.ActiveShows},
		{"scraper_runs", s.Runs, ""},
	})
	t.Render()
}

func renderRuns(out io.Writer, runs []types.ScraperRun) {
	t := newTable(out, "Recent runs")
	t.AppendHeader(table.Row{"ID", "Job", "Started", "Status", "Processed", "Added", "Updated", "Errors"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.JobName,
			r.StartedAt.In(types.NYC).Format("2006-01-02 15:04"),
			runStatus(r),
			r.ItemsProcessed,
			r.ItemsAdded,
			r.ItemsUpdated,
			len(r.Errors),
		})
	}
	if len(runs) == 0 {
		t.AppendRow(table.Row{"-", "no runs recorded"})
	}
	t.Render()
}

func runStatus(r types.ScraperRun) string {
	switch {
	case !r.Sealed():
		return "started"
	case r.Success:
		return "ok"
	default:
		return "failed"
	}
}

func renderVenues(out io.Writer, venues []types.Venue) {
	t := newTable(out, fmt.Sprintf("Venues (%d)", len(venues)))
	t.AppendHeader(table.Row{"Name", "Category", "Neighborhood", "Active", "Last scraped"})
	for _, v := range venues {
		lastScraped := "never"
		if v.LastScrapedAt != nil {
			lastScraped = v.LastScrapedAt.In(types.NYC).Format("2006-01-02 15:04")
		}
		t.AppendRow(table.Row{
			v.Name,
			string(v.Category),
			strings.TrimSpace(v.Neighborhood),
			v.IsActive,
			lastScraped,
		})
	}
	t.Render()
}

// renderPlatforms counts active registry entries per platform. Platforms the
// registry names but no extractor serves are listed as unsupported.
func renderPlatforms(out io.Writer, supported []string, reg *config.Registry) {
	counts := make(map[string]int)
	for _, e := range reg.ActiveEntries() {
		p := e.Platform
		if p == "" {
			p = "auto"
		}
		counts[p]++
	}

	t := newTable(out, "Platforms")
	t.AppendHeader(table.Row{"Platform", "Supported", "Active venues"})
	known := make(map[string]bool, len(supported))
	for _, p := range supported {
		known[p] = true
		t.AppendRow(table.Row{p, "yes", counts[p]})
	}
	var unknown []string
	for p := range counts {
		if !known[p] {
			unknown = append(unknown, p)
		}
	}
	sort.Strings(unknown)
	for _, p := range unknown {
		t.AppendRow(table.Row{p, "no", counts[p]})
	}
	t.Render()
}
