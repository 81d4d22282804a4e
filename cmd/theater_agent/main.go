// Package main provides the theater_agent CLI: venue discovery, show
// scraping, blob generation and publishing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "theater_agent",
		Short: "NYC theater listings scraper",
		Long: `theater_agent discovers New York City theater venues, scrapes their show
listings into a local store and exports the result as a static JSON blob.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Path to config.json file (values can be overridden by flags and environment)")
	root.PersistentFlags().StringVar(&g.dbURL, "db", "", "SQLite file path or postgres:// URL (defaults to THEATER_DB or data/theater.db)")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Print detailed debug information")

	root.AddCommand(
		newDiscoverVenuesCmd(g),
		newScrapeShowsCmd(g),
		newGenerateBlobCmd(g),
		newPublishCmd(g),
		newInspectDBCmd(g),
	)
	return root
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
