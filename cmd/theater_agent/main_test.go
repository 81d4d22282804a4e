package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/jonathan/nyc-theater/internal/llm"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable ApplyEnv reads so a developer's .env does
// not leak into the commands under test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		config.EnvDatabaseURL, config.EnvRegistry, config.EnvCacheDir, config.EnvExportPath,
		config.EnvBucket, config.EnvPublishDir, config.EnvConcurrency, config.EnvAPIKey,
		config.EnvGenreModel,
	} {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

type workspace struct {
	dir      string
	config   string
	registry string
}

// newWorkspace writes a config pointing the store, cache and export into a
// temp dir, plus a registry with the given venues block.
func newWorkspace(t *testing.T, venues string) workspace {
	t.Helper()
	clearEnv(t)
	dir := t.TempDir()
	registry := writeFile(t, dir, "venues.json5", fmt.Sprintf("{\n  venues: %s,\n}\n", venues))
	cfg := map[string]any{
		"database_url":  filepath.Join(dir, "theater.db"),
		"registry_path": registry,
		"cache_dir":     filepath.Join(dir, "cache"),
		"export_path":   filepath.Join(dir, "public", "theater-data.json"),
		"min_delay":     "1ms",
		"max_attempts":  1,
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	return workspace{dir: dir, config: writeFile(t, dir, "config.json", string(data)), registry: registry}
}

func calendarServer(t *testing.T, start, end time.Time) *httptest.Server {
	t.Helper()
	page := fmt.Sprintf(`<html><body>
<article class="eventlist-event">
  <div class="eventlist-column-info">
    <h1 class="eventlist-title"><a href="/calendar/the-seagull">The Seagull</a></h1>
    <time class="event-date" datetime="%s">opening</time>
    <time class="event-date" datetime="%s">closing</time>
    <div class="eventlist-excerpt">Chekhov's drama. Tickets $30.</div>
  </div>
</article>
</body></html>`, start.Format(types.DateLayout), end.Format(types.DateLayout))

	mux := http.NewServeMux()
	mux.HandleFunc("/calendar", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestPipeline_EndToEnd(t *testing.T) {
	today := time.Now().In(types.NYC)
	srv := calendarServer(t, today.AddDate(0, 0, 20), today.AddDate(0, 0, 40))
	ws := newWorkspace(t, fmt.Sprintf(`{
    "playhouse": {
      name: "Little Playhouse",
      url: %q,
      address: "12 Bleecker St",
      neighborhood: "Greenwich Village",
      category: "independent",
      platform: "squarespace",
    },
  }`, srv.URL))

	out, err := execute(t, "discover-venues", "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "DISCOVER VENUES")
	assert.Contains(t, out, "SUCCESS")

	out, err = execute(t, "scrape-shows", "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "SCRAPE SHOWS")
	assert.Contains(t, out, "added 1")

	blobPath := filepath.Join(ws.dir, "out", "blob.json")
	out, err = execute(t, "generate-blob", "--config", ws.config, "--out", blobPath)
	require.NoError(t, err)
	assert.Contains(t, out, "EXPORT")

	data, err := os.ReadFile(blobPath)
	require.NoError(t, err)
	var blob struct {
		Metadata struct {
			TotalVenues   int `json:"totalVenues"`
			TotalShows    int `json:"totalShows"`
			UpcomingShows int `json:"upcomingShows"`
		} `json:"metadata"`
		Shows []struct {
			Title string `json:"title"`
		} `json:"shows"`
	}
	require.NoError(t, json.Unmarshal(data, &blob))
	assert.Equal(t, 1, blob.Metadata.TotalVenues)
	assert.Equal(t, 1, blob.Metadata.TotalShows)
	assert.Equal(t, 1, blob.Metadata.UpcomingShows)
	require.Len(t, blob.Shows, 1)
	assert.Equal(t, "The Seagull", blob.Shows[0].Title)

	publishDir := filepath.Join(ws.dir, "site")
	out, err = execute(t, "publish", "--config", ws.config, "--in", blobPath, "--dir", publishDir)
	require.NoError(t, err)
	assert.Contains(t, out, "PUBLISHED")
	assert.FileExists(t, filepath.Join(publishDir, "theater-data.json"))
	versions, err := filepath.Glob(filepath.Join(publishDir, "versions", "theater-data-*.json"))
	require.NoError(t, err)
	assert.Len(t, versions, 1)

	out, err = execute(t, "inspect-db", "--config", ws.config, "--venues")
	require.NoError(t, err)
	assert.Contains(t, out, "Little Playhouse")
	assert.Contains(t, out, "discover_venues")
	assert.Contains(t, out, "scrape_shows")
}

func TestInspectDB_Platforms(t *testing.T) {
	ws := newWorkspace(t, `{
    "tank": { name: "The Tank", url: "https://tank.example.org", platform: "squarespace" },
    "odd": { name: "Odd Space", url: "https://odd.example.org", platform: "wix" },
  }`)

	out, err := execute(t, "inspect-db", "--config", ws.config, "--platforms")
	require.NoError(t, err)
	assert.Contains(t, out, "Platforms")
	assert.Contains(t, out, "ovationtix")
	assert.Contains(t, out, "squarespace")
	assert.Contains(t, out, "wix")
}

func TestScrapeShows_ConfigErrorExitsNonZero(t *testing.T) {
	ws := newWorkspace(t, `{
    "box": { name: "Box Theater", url: "https://box.example.org", platform: "ovationtix" },
  }`)

	_, err := execute(t, "discover-venues", "--config", ws.config)
	require.NoError(t, err)

	out, err := execute(t, "scrape-shows", "--config", ws.config)
	require.ErrorIs(t, err, errJobFailed)
	assert.Contains(t, out, "FAILED")
	assert.Contains(t, out, "Box Theater: config error")
}

func TestScrapeShows_RejectsExcessiveConcurrency(t *testing.T) {
	ws := newWorkspace(t, `{}`)

	_, err := execute(t, "scrape-shows", "--config", ws.config, "--concurrency", "32")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at most 16")
}

func TestDiscoverVenues_MissingRegistry(t *testing.T) {
	ws := newWorkspace(t, `{}`)
	require.NoError(t, os.Remove(ws.registry))

	_, err := execute(t, "discover-venues", "--config", ws.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load venue registry")
}

func TestGenerateBlob_EmptyStore(t *testing.T) {
	ws := newWorkspace(t, `{}`)

	out, err := execute(t, "generate-blob", "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "Shows:     0")
	assert.FileExists(t, filepath.Join(ws.dir, "public", "theater-data.json"))
}

func TestPublish_Targets(t *testing.T) {
	ws := newWorkspace(t, `{}`)

	_, err := execute(t, "publish", "--config", ws.config)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "either --bucket or --dir")

	_, err = execute(t, "publish", "--config", ws.config, "--bucket", "b", "--dir", ws.dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestPublish_MissingBlob(t *testing.T) {
	ws := newWorkspace(t, `{}`)

	_, err := execute(t, "publish", "--config", ws.config, "--dir", filepath.Join(ws.dir, "site"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read export")
}

func TestInspectDB_Empty(t *testing.T) {
	ws := newWorkspace(t, `{}`)

	out, err := execute(t, "inspect-db", "--config", ws.config)
	require.NoError(t, err)
	assert.Contains(t, out, "no runs recorded")
	assert.NotContains(t, out, "Venues (")
}

func TestNewApp_Precedence(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "config.json", `{"database_url": "from-file.db", "concurrency": 2}`)

	g := &globalOptions{configPath: cfgPath}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&g.dbURL, "db", "", "")
	cmd.Flags().BoolVar(&g.verbose, "verbose", false, "")

	a, err := newApp(cmd, g, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", a.cfg.DatabaseURL)
	assert.Equal(t, 2, a.cfg.Concurrency)
	assert.Equal(t, "config/venues.json5", a.cfg.RegistryPath)

	t.Setenv(config.EnvDatabaseURL, "from-env.db")
	a, err = newApp(cmd, g, nil)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", a.cfg.DatabaseURL)

	require.NoError(t, cmd.Flags().Set("db", "from-flag.db"))
	a, err = newApp(cmd, g, func(c *config.Config) { c.Concurrency = 4 })
	require.NoError(t, err)
	assert.Equal(t, "from-flag.db", a.cfg.DatabaseURL)
	assert.Equal(t, 4, a.cfg.Concurrency)
}

func TestApp_LLMConfig(t *testing.T) {
	a := &app{cfg: config.Default()}
	assert.Equal(t, "gemini-2.5-flash-lite", a.llmConfig().GetModel(llm.TierLite))

	a.cfg.GenreModel = "gemini-2.5-pro"
	cfg := a.llmConfig()
	assert.Equal(t, "gemini-2.5-pro", cfg.GetModel(llm.TierLite))
	assert.Equal(t, "gemini-2.5-pro", cfg.GetModel(llm.TierStandard))
}

func TestNewApp_InvalidEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv(config.EnvConcurrency, "many")

	g := &globalOptions{}
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVar(&g.dbURL, "db", "", "")
	cmd.Flags().BoolVar(&g.verbose, "verbose", false, "")

	_, err := newApp(cmd, g, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.EnvConcurrency)
}
