package scrapers

import (
	"testing"

	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInferStatus(t *testing.T) {
	tests := []struct {
		text string
		want types.ShowStatus
	}{
		{"Performance CANCELLED due to weather", types.StatusCanceled},
		{"This show has been canceled", types.StatusCanceled},
		{"SOLD OUT", types.StatusUpcoming},
		{"Tickets on sale now", types.StatusUpcoming},
		{"", types.StatusUpcoming},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferStatus(tt.text))
		})
	}
}

func TestSpacedText(t *testing.T) {
	doc, err := newDocument(`<table><tr><td>Reading</td><td><b>CANCELED</b></td><td>Lobby<script>var x;</script></td></tr></table>`)
	require.NoError(t, err)

	text := spacedText(doc.Find("tr"))
	assert.Equal(t, "Reading CANCELED Lobby", text)
	assert.Equal(t, types.StatusCanceled, InferStatus(text))
}

func TestInferGenre(t *testing.T) {
	tests := []struct {
		title, desc string
		want        types.Genre
	}{
		{"Carmen", "Bizet's opera in four acts", types.GenreOpera},
		{"Starlight", "A new musical about the cosmos", types.GenreMusical},
		{"Spring Gala", "An evening of ballet", types.GenreDance},
		{"Late Night", "Stand-up and improv", types.GenreComedy},
		{"Hamlet", "Shakespeare's tragedy", types.GenreDrama},
		{"Untitled", "", types.GenreOther},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, InferGenre(tt.title, tt.desc))
		})
	}
}

func TestFinalizeShows(t *testing.T) {
	in := []types.Show{
		{Title: "Hamlet", StartDate: "2025-06-10"},
		{Title: "hamlet", StartDate: "2025-06-10"},
		{Title: "No Date"},
		{Title: "", StartDate: "2025-06-11"},
		{Title: "Backwards", StartDate: "2025-06-12", EndDate: "2025-06-01"},
	}

	out := finalizeShows(in, zerolog.Nop())

	require.Len(t, out, 2)
	assert.Equal(t, "Hamlet", out[0].Title)
	assert.Equal(t, "2025-06-10", out[0].EndDate)
	assert.Equal(t, types.GenreOther, out[0].Genre)
	assert.Equal(t, types.StatusUpcoming, out[0].Status)
	assert.Equal(t, "2025-06-12", out[1].EndDate)
}

func TestOptionHelpers(t *testing.T) {
	opts := map[string]any{
		"path":     "/events",
		"store":    float64(1234),
		"list":     []any{"a", "", "b"},
		"empty":    []any{},
		"wait":     float64(2),
		"waitText": "1500ms",
	}

	assert.Equal(t, "/events", optString(opts, "path", "x"))
	assert.Equal(t, "1234", optString(opts, "store", ""))
	assert.Equal(t, "x", optString(opts, "missing", "x"))
	assert.Equal(t, []string{"a", "b"}, optStrings(opts, "list", nil))
	assert.Equal(t, []string{"d"}, optStrings(opts, "empty", []string{"d"}))
	assert.Equal(t, "2s", optSeconds(opts, "wait", 0).String())
	assert.Equal(t, "1.5s", optSeconds(opts, "waitText", 0).String())
	assert.Equal(t, "https://x.org/calendar", joinURL("https://x.org/", "/calendar"))
}
