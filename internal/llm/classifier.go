package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/jonathan/nyc-theater/internal/parsing"
	"github.com/jonathan/nyc-theater/internal/prompts"
	"github.com/jonathan/nyc-theater/internal/types"
	"github.com/rs/zerolog"
)

// GenreClassifier asks the model for a genre constrained to the known set.
type GenreClassifier struct {
	client Client
	logger zerolog.Logger
}

// longDescription is the description length, in runes, above which the
// standard tier is used.
const longDescription = 200

// NewGenreClassifier creates a classifier on top of client.
func NewGenreClassifier(client Client, logger zerolog.Logger) *GenreClassifier {
	return &GenreClassifier{
		client: client,
		logger: logger.With().Str("component", "genre_classifier").Logger(),
	}
}

func genreSchema() *genai.Schema {
	enum := make([]string, len(types.Genres))
	for i, g := range types.Genres {
		enum[i] = string(g)
	}
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"genre": {Type: genai.TypeString, Enum: enum},
		},
		Required: []string{"genre"},
	}
}

// ClassifyGenre returns the model's genre for a show. Unrecognized answers
// map to other.
func (c *GenreClassifier) ClassifyGenre(ctx context.Context, title, description string) (types.Genre, error) {
	names := make([]string, len(types.Genres))
	for i, g := range types.Genres {
		names[i] = string(g)
	}
	tmpl, err := prompts.Get("genre.json", "classify-genre")
	if err != nil {
		return types.GenreOther, err
	}
	prompt := prompts.Render(tmpl, map[string]string{
		"Genres":      strings.Join(names, ", "),
		"Title":       title,
		"Description": parsing.Truncate(description, parsing.MaxDescriptionLength),
	})

	tier := TierLite
	if len([]rune(description)) > longDescription {
		tier = TierStandard
	}
	raw, err := c.client.GenerateJSON(ctx, prompt, tier, genreSchema())
	if err != nil {
		return types.GenreOther, fmt.Errorf("failed to classify %q: %w", title, err)
	}

	var answer struct {
		Genre string `json:"genre"`
	}
	if err := json.Unmarshal([]byte(raw), &answer); err != nil {
		return types.GenreOther, fmt.Errorf("failed to parse classification for %q: %w", title, err)
	}
	genre := types.ParseGenre(answer.Genre)
	c.logger.Debug().Str("title", title).Str("genre", string(genre)).Msg("classified")
	return genre, nil
}
