package scrapers

import (
	"context"
	"testing"

	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const spektrixAPIEvents = `{"events": [
  {"name": "The Seagull", "start_date": "2025-06-05T19:30:00", "end_date": "2025-07-13T15:00:00",
   "synopsis": "<p>Chekhov&rsquo;s drama, newly translated.</p>", "instanceId": 4411,
   "imageUrl": "/wp-content/uploads/seagull.jpg", "pricing": "$30 - $85", "duration": 135,
   "className": "main-stage"},
  {"title": "Gala Night", "start": "2025-06-20", "price": 250, "status": "Cancelled"},
  {"title": "No Date Listing"}
]}`

const spektrixPage = `<html><head><script>
  window.config = {};
  var events = [
    {title: 'Uncle Vanya', start: '2025-09-01', end: '2025-09-30', url: '/shows/uncle-vanya', className: 'perfs'},
    {title: 'Holiday Kids Show', start: '2025-12-10', description: 'Fun for the whole family', },
  ];
</script></head><body></body></html>`

func TestSpektrixScraper_API(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/wp-json/spektrix/v1/events": spektrixAPIEvents})
	s := NewSpektrixScraper(testDeps(), nil)

	res, err := s.ScrapeShows(context.Background(), "venue-2", srv.URL)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data.Shows, 2)

	seagull := res.Data.Shows[0]
	assert.Equal(t, "The Seagull", seagull.Title)
	assert.Equal(t, "2025-06-05", seagull.StartDate)
	assert.Equal(t, "2025-07-13", seagull.EndDate)
	assert.Equal(t, "Chekhov’s drama, newly translated.", seagull.Description)
	assert.Equal(t, srv.URL+"/performances/?instanceId=4411", seagull.Website)
	assert.Equal(t, srv.URL+"/wp-content/uploads/seagull.jpg", seagull.ImageURL)
	require.True(t, seagull.PriceRange.Bounded())
	assert.Equal(t, 30.0, *seagull.PriceRange.Min)
	assert.Equal(t, 85.0, *seagull.PriceRange.Max)
	require.NotNil(t, seagull.RuntimeMinutes)
	assert.Equal(t, 135, *seagull.RuntimeMinutes)
	assert.Equal(t, types.StatusRunning, seagull.Status)
	assert.Equal(t, types.GenreDrama, seagull.Genre)

	gala := res.Data.Shows[1]
	assert.Equal(t, types.StatusCanceled, gala.Status)
	assert.Equal(t, "2025-06-20", gala.EndDate)
	assert.Equal(t, 250.0, *gala.PriceRange.Min)
}

func TestSpektrixScraper_FallsBackToEmbeddedArray(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"/wp-json/spektrix/v1/events":       `{"events": []}`,
		"/wp-json/spektrix/v1/performances": `not json`,
		"/": spektrixPage,
	})
	s := NewSpektrixScraper(testDeps(), nil)

	res, err := s.ScrapeShows(context.Background(), "venue-2", srv.URL+"/")
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Len(t, res.Data.Shows, 2)

	vanya := res.Data.Shows[0]
	assert.Equal(t, "Uncle Vanya", vanya.Title)
	assert.Equal(t, "2025-09-30", vanya.EndDate)
	assert.Equal(t, srv.URL+"/shows/uncle-vanya", vanya.Website)
	assert.Equal(t, types.StatusRunning, vanya.Status)

	kids := res.Data.Shows[1]
	assert.Equal(t, "2025-12-10", kids.EndDate)
	assert.Equal(t, types.GenreFamily, kids.Genre)
}

func TestSpektrixScraper_CustomAPIBase(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/api/calendar": `[{"title": "Cabaret Night", "startDate": "June 30, 2025"}]`})
	s := NewSpektrixScraper(testDeps(), map[string]any{
		"apiBase":   srv.URL + "/api",
		"endpoints": []any{"calendar"},
	})

	res, err := s.ScrapeShows(context.Background(), "venue-2", srv.URL)
	require.NoError(t, err)
	require.Len(t, res.Data.Shows, 1)
	assert.Equal(t, "2025-06-30", res.Data.Shows[0].StartDate)
	assert.Equal(t, types.GenreCabaret, res.Data.Shows[0].Genre)
}

func TestSpektrixScraper_NothingFound(t *testing.T) {
	srv := newTestServer(t, map[string]string{"/": "<html><body>Coming soon</body></html>"})
	s := NewSpektrixScraper(testDeps(), nil)

	res, err := s.ScrapeShows(context.Background(), "venue-2", srv.URL+"/")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Empty(t, res.Data.Shows)
}

func TestSpektrixScraper_EverythingUnreachable(t *testing.T) {
	srv := newTestServer(t, map[string]string{})
	s := NewSpektrixScraper(testDeps(), nil)

	res, err := s.ScrapeShows(context.Background(), "venue-2", srv.URL+"/missing")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}
