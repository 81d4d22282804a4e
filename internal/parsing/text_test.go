package parsing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "collapses whitespace", input: "  Hamlet \n\n\t at  the Tank  ", want: "Hamlet at the Tank"},
		{name: "decodes entities", input: "Rock &amp; Roll &#8217;n&#8217; more", want: "Rock & Roll \u2019n\u2019 more"},
		{name: "strips nbsp", input: "Nov\u00a014", want: "Nov 14"},
		{name: "strips zero width", input: "Ham\u200blet\ufeff", want: "Hamlet"},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanText(tt.input))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := strings.Repeat("a", 600)
	got := Truncate(long, MaxDescriptionLength)
	assert.Len(t, got, MaxDescriptionLength)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestExtractRuntime(t *testing.T) {
	tests := []struct {
		input string
		want  int
	}{
		{input: "Running time: 90 minutes", want: 90},
		{input: "2 hours", want: 120},
		{input: "1hr 30min with intermission", want: 90},
		{input: "1 hour and 15 minutes", want: 75},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ExtractRuntime(tt.input)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}

	assert.Nil(t, ExtractRuntime("no intermission"))
}

func TestNormalizeURL(t *testing.T) {
	base := "https://thetank.org/calendar"

	assert.Equal(t, "https://thetank.org/shows/hamlet", NormalizeURL("/shows/hamlet", base))
	assert.Equal(t, "https://thetank.org/shows/hamlet", NormalizeURL("shows/hamlet", "https://thetank.org/"))
	assert.Equal(t, "https://cdn.example.com/a.jpg", NormalizeURL("//cdn.example.com/a.jpg", base))
	assert.Equal(t, "https://other.org/x", NormalizeURL("https://other.org/x", base))
	assert.Equal(t, "", NormalizeURL("", base))
	assert.Equal(t, "", NormalizeURL("#top", base))
	assert.Equal(t, "", NormalizeURL("javascript:void(0)", base))
}
