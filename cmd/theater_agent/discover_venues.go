package main

import (
	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/jobs"
	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/spf13/cobra"
)

func newDiscoverVenuesCmd(g *globalOptions) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "discover-venues",
		Short: "Discover venues from the registry and directory listings",
		Long: `Reads every active registry entry and every enabled directory source and
reconciles the venues found against the store. Existing venues are matched by
id, exact normalized name or fuzzy name and merged rather than duplicated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, func(c *config.Config) {
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
			factory := scrapers.NewFactory(deps, reg.PlatformDefaults)

			report, err := jobs.DiscoverVenues(ctx, store, factory.DiscoverySources(reg), a.logger, jobs.DiscoverOptions{
				Now:        a.now,
				OnProgress: a.progress(),
			})
			return a.finish(report, err)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the page cache")
	return cmd
}
