package scrapers

import (
	"context"
	"testing"

	"github.com/jonathan/nyc-theater/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFactory_ForVenue(t *testing.T) {
	deps := testDeps()
	deps.Renderer = &fakeRenderer{}
	f := NewFactory(deps, nil)

	tests := []struct {
		platform string
		options  map[string]any
		wantName string
	}{
		{"squarespace", nil, "squarespace"},
		{"spektrix", nil, "spektrix"},
		{"ovationtix", map[string]any{"storeId": "99"}, "ovationtix"},
		{"jsonld", nil, "jsonld"},
		{"", nil, "auto"},
	}
	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			s, err := f.ForVenue(config.VenueEntry{Key: "v", Name: "V", URL: "https://v.example.org", Platform: tt.platform, Options: tt.options})
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, s.Name())
		})
	}
}

func TestFactory_UnknownPlatform(t *testing.T) {
	f := NewFactory(testDeps(), nil)

	_, err := f.ForVenue(config.VenueEntry{Key: "mystery", Platform: "wix"})
	var upErr *UnknownPlatformError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, "wix", upErr.Platform)
	assert.Equal(t, "mystery", upErr.Venue)
}

func TestFactory_DisabledVenue(t *testing.T) {
	f := NewFactory(testDeps(), nil)
	inactive := false

	_, err := f.ForVenue(config.VenueEntry{Key: "old", Platform: "squarespace", Active: &inactive})
	assert.ErrorIs(t, err, ErrVenueDisabled)
}

func TestFactory_OptionPrecedence(t *testing.T) {
	f := NewFactory(testDeps(), map[string]map[string]any{
		"squarespace": {"calendarPath": "/events", "calendarUrl": "https://registry.example.org/cal"},
	})

	opts, err := f.mergedOptions("squarespace", map[string]any{"calendarUrl": "https://venue.example.org/cal"})
	require.NoError(t, err)
	assert.Equal(t, "/events", opts["calendarPath"])
	assert.Equal(t, "https://venue.example.org/cal", opts["calendarUrl"])

	opts, err = f.mergedOptions("ovationtix", nil)
	require.NoError(t, err)
	assert.Equal(t, ovationTixCalendarBase, opts["calendarBase"])
}

func TestFactory_VenueOptionsNotMutated(t *testing.T) {
	f := NewFactory(testDeps(), nil)
	venueOpts := map[string]any{"storeId": "1"}

	_, err := f.mergedOptions("ovationtix", venueOpts)
	require.NoError(t, err)
	assert.Len(t, venueOpts, 1)
}

func TestFactory_DiscoverySources(t *testing.T) {
	f := NewFactory(testDeps(), nil)
	reg := &config.Registry{
		Venues: map[string]config.VenueEntry{"a": {Key: "a", Name: "A", URL: "https://a.example.org"}},
		Discovery: []config.DiscoverySource{
			{Name: "on", URL: "https://on.example.org", Enabled: true},
			{Name: "off", URL: "https://off.example.org", Enabled: false},
		},
	}

	sources := f.DiscoverySources(reg)
	require.Len(t, sources, 2)
	assert.Equal(t, "registry", sources[0].Name())
	assert.Equal(t, "on", sources[1].Name())
}

func TestFactory_Platforms(t *testing.T) {
	f := NewFactory(testDeps(), nil)
	assert.Equal(t, []string{"auto", "jsonld", "ovationtix", "spektrix", "squarespace"}, f.Platforms())
}

func TestAutoScraper_DelegatesToDetectedPlatform(t *testing.T) {
	page := `<html><head><script type="application/ld+json">
{"@type": "TheaterEvent", "name": "Detected Show", "startDate": "2025-08-08"}
</script></head></html>`
	srv := newTestServer(t, map[string]string{"/": page})
	f := NewFactory(testDeps(), nil)

	s, err := f.ForVenue(config.VenueEntry{Key: "x", Name: "X", URL: srv.URL + "/"})
	require.NoError(t, err)

	res, err := s.ScrapeShows(context.Background(), "venue-x", srv.URL+"/")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data.Shows, 1)
	assert.Equal(t, "Detected Show", res.Data.Shows[0].Title)
}

func TestAutoScraper_UnknownPlatformIsEmptySuccess(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/": "<html><body>hello</body></html>"})
	f := NewFactory(testDeps(), nil)

	s, err := f.ForVenue(config.VenueEntry{Key: "x", Name: "X", URL: srv.URL + "/", Platform: "auto"})
	require.NoError(t, err)

	res, err := s.ScrapeShows(context.Background(), "venue-x", srv.URL+"/")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Data.Shows)
}
