package main

import (
	"fmt"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/export"
	"github.com/spf13/cobra"
)

func newPublishCmd(g *globalOptions) *cobra.Command {
	var (
		bucket string
		dir    string
		in     string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload the generated blob to a bucket or directory",
		Long: `Validates the generated blob and uploads it twice: as theater-data.json and
as a timestamped copy under versions/. Exactly one of --bucket or --dir must be
given, by flag, config or environment.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("bucket") && cmd.Flags().Changed("dir") {
				return fmt.Errorf("--bucket and --dir are mutually exclusive; provide only one")
			}
			a, err := newApp(cmd, g, func(c *config.Config) {
				// A flag replaces the other target from config or env.
				if cmd.Flags().Changed("bucket") {
					c.PublishBucket, c.PublishDir = bucket, ""
				}
				if cmd.Flags().Changed("dir") {
					c.PublishDir, c.PublishBucket = dir, ""
				}
				if cmd.Flags().Changed("in") {
					c.ExportPath = in
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			var uploader export.Uploader
			switch {
			case a.cfg.PublishBucket != "":
				gcs, err := export.NewGCSUploader(ctx, a.cfg.PublishBucket, a.cfg.PublishPrefix)
				if err != nil {
					return err
				}
				uploader = gcs
			case a.cfg.PublishDir != "":
				uploader = &export.DirUploader{Dir: a.cfg.PublishDir}
			default:
				return fmt.Errorf("either --bucket or --dir must be provided (via flag, config or environment)")
			}

			data, err := export.ReadBlob(a.cfg.ExportPath)
			if err != nil {
				return err
			}
			result, err := export.Publish(ctx, uploader, data, a.now(), a.logger)
			if err != nil {
				return err
			}
			a.printer.PrintPublishResult(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&bucket, "bucket", "", "Google Cloud Storage bucket")
	cmd.Flags().StringVar(&dir, "dir", "", "Local directory to publish into")
	cmd.Flags().StringVar(&in, "in", "", "Blob to publish (default public/theater-data.json)")
	return cmd
}
