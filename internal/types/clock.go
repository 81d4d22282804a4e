package types

import (
	"time"
	_ "time/tzdata" // zone data for hosts without a system zoneinfo
)

// NYC is the timezone listing dates are interpreted in.
var NYC = mustLoadLocation("America/New_York")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic("types: failed to load time zone " + name + ": " + err.Error())
	}
	return loc
}

// DateOf returns the NYC calendar date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.In(NYC).Format(DateLayout)
}
