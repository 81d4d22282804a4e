package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/db"
	"github.com/jonathan/nyc-theater/internal/fetch"
	"github.com/jonathan/nyc-theater/internal/jobs"
	"github.com/jonathan/nyc-theater/internal/llm"
	"github.com/jonathan/nyc-theater/internal/observability"
	"github.com/jonathan/nyc-theater/internal/scrapers"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// errJobFailed is returned when a job ran to completion but recorded errors.
var errJobFailed = errors.New("job finished with errors")

type globalOptions struct {
	configPath string
	dbURL      string
	verbose    bool
}

// app is the per-command wiring: resolved configuration, logger and output.
type app struct {
	cfg     config.Config
	logger  zerolog.Logger
	printer *observability.Printer
	now     func() time.Time
}

// newApp resolves configuration in order: defaults, config file, environment,
// flags. override applies command-specific flags.
func newApp(cmd *cobra.Command, g *globalOptions, override func(*config.Config)) (*app, error) {
	var cfg config.Config
	if g.configPath != "" {
		loaded, err := config.LoadConfig(g.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DatabaseURL = g.dbURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = g.verbose
	}
	if override != nil {
		override(&cfg)
	}
	cfg = cfg.MergeWithDefaults(config.Default())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		logger:  newLogger(cmd.ErrOrStderr(), cfg.Verbose),
		printer: observability.NewPrinter(cmd.OutOrStdout()),
		now:     time.Now,
	}, nil
}

func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

func (a *app) openStore(ctx context.Context) (*db.DB, error) {
	store, err := db.Open(ctx, a.cfg.DatabaseURL, db.WithLogger(a.logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func (a *app) loadRegistry() (*config.Registry, error) {
	reg, err := config.LoadRegistry(a.cfg.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue registry: %w", err)
	}
	return reg, nil
}

// scraperDeps builds the shared fetch stack. The browser renderer draws on
// the HTTP client's limiter so both paths share one request budget.
func (a *app) scraperDeps() (scrapers.Deps, error) {
	client := fetch.NewClient(&fetch.Options{
		Timeout:     a.cfg.RequestTimeout.Std(),
		MinDelay:    a.cfg.MinDelay.Std(),
		MaxAttempts: a.cfg.MaxAttempts,
		BaseDelay:   a.cfg.BaseDelay.Std(),
	}, a.logger)

	cached, err := fetch.NewCachedFetcher(client, &fetch.CachedFetcherConfig{
		CacheDir:  a.cfg.CacheDir,
		CacheTTL:  a.cfg.CacheTTL.Std(),
		SkipCache: a.cfg.SkipCache,
	}, a.logger)
	if err != nil {
		return scrapers.Deps{}, fmt.Errorf("failed to create page cache: %w", err)
	}

	return scrapers.Deps{
		Getter:   cached,
		Renderer: fetch.NewChromeRenderer(client.Limiter(), a.cfg.BrowserTimeout.Std(), a.logger),
		Logger:   a.logger,
		Now:      a.now,
	}, nil
}

// classifier returns the Gemini genre classifier when an API key is
// configured, or nil. The returned func releases the client.
func (a *app) classifier(ctx context.Context) (jobs.GenreClassifier, func(), error) {
	if a.cfg.APIKey == "" {
		return nil, func() {}, nil
	}
	client, err := llm.NewGeminiClient(ctx, a.llmConfig(), a.cfg.APIKey)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create genre classifier: %w", err)
	}
	return llm.NewGenreClassifier(client, a.logger), func() { _ = client.Close() }, nil
}

// llmConfig applies the configured genre model, if any, to both tiers.
func (a *app) llmConfig() *llm.Config {
	cfg := llm.DefaultConfig()
	if a.cfg.GenreModel != "" {
		cfg = cfg.WithModel(llm.TierLite, a.cfg.GenreModel).WithModel(llm.TierStandard, a.cfg.GenreModel)
	}
	return cfg
}

func (a *app) progress() jobs.ProgressCallback {
	return func(e jobs.ProgressEvent) {
		a.logger.Debug().
			Str("step", e.Step).
			Str("venue", e.Venue).
			Int64("run_id", e.RunID).
			Msg(e.Message)
	}
}

// finish prints the report and maps an unsuccessful run to errJobFailed.
func (a *app) finish(report *jobs.Report, err error) error {
	if report != nil {
		a.printer.PrintRunReport(report)
	}
	if err != nil {
		return err
	}
	if !report.Success {
		return errJobFailed
	}
	return nil
}
