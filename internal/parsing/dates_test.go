package parsing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var refTime = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func TestParseDateRelative(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "iso date", input: "2025-11-14", want: "2025-11-14"},
		{name: "iso datetime attribute", input: "2025-11-14T19:30:00-05:00", want: "2025-11-14"},
		{name: "month name with year", input: "November 14th, 2025", want: "2025-11-14"},
		{name: "abbreviated month without year", input: "Nov 14", want: "2025-11-14"},
		{name: "weekday prefix and time", input: "Fri, Nov 14 2025 7:30 PM", want: "2025-11-14"},
		{name: "day first", input: "31 October 2025", want: "2025-10-31"},
		{name: "day first with clock time", input: "15 Nov 7:30 PM", want: "2025-11-15"},
		{name: "day first with short time", input: "Sat 15 Nov 7pm", want: "2025-11-15"},
		{name: "us numeric", input: "11/14/2025", want: "2025-11-14"},
		{name: "us numeric short year", input: "3/7/26", want: "2026-03-07"},
		{name: "entities and nbsp", input: "Nov&nbsp;14,&nbsp;2025", want: "2025-11-14"},
		{name: "impossible day", input: "February 30, 2025", want: ""},
		{name: "garbage", input: "coming soon", want: ""},
		{name: "empty", input: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDateRelative(tt.input, refTime))
		})
	}
}

func TestParseDateRangeRelative(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart string
		wantEnd   string
	}{
		{name: "same month hyphen", input: "Nov 14-22, 2025", wantStart: "2025-11-14", wantEnd: "2025-11-22"},
		{name: "en dash across months", input: "Feb 21 – Mar 29, 2026", wantStart: "2026-02-21", wantEnd: "2026-03-29"},
		{name: "to separator", input: "October 3 to October 19", wantStart: "2025-10-03", wantEnd: "2025-10-19"},
		{name: "ampersand", input: "November 14 & 15, 2025", wantStart: "2025-11-14", wantEnd: "2025-11-15"},
		{name: "year wrap without years", input: "Dec 28 - Jan 4", wantStart: "2025-12-28", wantEnd: "2026-01-04"},
		{name: "year wrap with end year", input: "Dec 28 - Jan 4, 2026", wantStart: "2025-12-28", wantEnd: "2026-01-04"},
		{name: "single date", input: "March 3, 2026", wantStart: "2026-03-03", wantEnd: "2026-03-03"},
		{name: "time range is not a date range", input: "Nov 14, 2025 7:30 PM - 9:30 PM", wantStart: "2025-11-14", wantEnd: "2025-11-14"},
		{name: "iso pair", input: "2025-11-14 through 2025-11-30", wantStart: "2025-11-14", wantEnd: "2025-11-30"},
		{name: "unparseable", input: "TBA", wantStart: "", wantEnd: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := ParseDateRangeRelative(tt.input, refTime)
			assert.Equal(t, tt.wantStart, start)
			assert.Equal(t, tt.wantEnd, end)
		})
	}
}
