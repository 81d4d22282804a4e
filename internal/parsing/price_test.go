package parsing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPriceRange(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		input   string
		wantMin *float64
		wantMax *float64
		wantNil bool
	}{
		{name: "range beats open-ended", input: "Tickets $20-$65, or $20+ rush", wantMin: f(20), wantMax: f(65)},
		{name: "spaced en dash range", input: "$20 – $65", wantMin: f(20), wantMax: f(65)},
		{name: "range without second dollar", input: "$35.50-75", wantMin: f(35.5), wantMax: f(75)},
		{name: "open ended", input: "Rush tickets $20+", wantMin: f(20)},
		{name: "starting at", input: "Starting at $5", wantMin: f(5)},
		{name: "from", input: "Tickets from $45", wantMin: f(45)},
		{name: "single", input: "Price: $35", wantMin: f(35), wantMax: f(35)},
		{name: "thousands separator", input: "$1,250", wantMin: f(1250), wantMax: f(1250)},
		{name: "no price", input: "Pay what you can", wantNil: true},
		{name: "empty", input: "", wantNil: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractPriceRange(tt.input)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.wantMin, got.Min)
			assert.Equal(t, tt.wantMax, got.Max)
		})
	}
}
