package main

import (
	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/jobs"
	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/spf13/cobra"
)

func newScrapeShowsCmd(g *globalOptions) *cobra.Command {
	var (
		venue       string
		concurrency int
		noCache     bool
	)

	cmd := &cobra.Command{
		Use:   "scrape-shows",
		Short: "Scrape show listings for every active venue",
		Long: `Expires shows whose end date has passed, then runs the configured extractor
for each active venue and upserts the shows it returns. A failing venue is
recorded on the run and does not stop the others.

--venue limits the run to one registry key, venue name, venue id or platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, func(c *config.Config) {
				if cmd.Flags().Changed("concurrency") {
					c.Concurrency = concurrency
				}
				if cmd.Flags().Changed("no-cache") {
					c.SkipCache = noCache
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			reg, err := a.loadRegistry()
			if err != nil {
				return err
			}
			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			deps, err := a.scraperDeps()
			if err != nil {
				return err
			}
			classifier, release, err := a.classifier(ctx)
			if err != nil {
				return err
			}
			defer release()

			opts := []jobs.Option{jobs.WithClock(a.now)}
			if classifier != nil {
				opts = append(opts, jobs.WithClassifier(classifier))
			}
			job := jobs.NewShowScraper(store, scrapers.NewFactory(deps, reg.PlatformDefaults), reg, a.logger, opts...)

			report, err := job.Run(ctx, jobs.ScrapeOptions{
				Only:        venue,
				Concurrency: a.cfg.Concurrency,
				OnProgress:  a.progress(),
			})
			return a.finish(report, err)
		},
	}

	cmd.Flags().StringVar(&venue, "venue", "", "Only scrape the venue with this registry key, name, id or platform")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Venues scraped in parallel (default from config, 1)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the page cache")
	return cmd
}
