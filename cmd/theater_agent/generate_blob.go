package main

import (
	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/export"
	"github.com/spf13/cobra"
)

func newGenerateBlobCmd(g *globalOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "generate-blob",
		Short: "Export active venues and shows as a static JSON blob",
		Long: `Writes every active venue and show to a single JSON document validated
against the published schema. The file is replaced atomically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd, g, func(c *config.Config) {
				if cmd.Flags().Changed("out") {
					c.ExportPath = out
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			store, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			summary, err := export.Generate(ctx, store, a.cfg.ExportPath, a.now())
			if err != nil {
				return err
			}
			a.logger.Info().
				Str("path", summary.Path).
				Int("venues", summary.Metadata.TotalVenues).
				Int("shows", summary.Metadata.TotalShows).
				Msg("blob written")
			a.printer.PrintExportSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "Output path (default public/theater-data.json)")
	return cmd
}
