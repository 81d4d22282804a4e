// Package schemas embeds the JSON Schemas for published artifacts.
package schemas

import _ "embed"

// TheaterData is the schema of the public theater data blob.
//
//go:embed theater_data.schema.json
var TheaterData string
