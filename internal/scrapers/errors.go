package scrapers

import (
	"errors"
	"fmt"
)

// ErrVenueDisabled is returned by the factory for registry entries marked inactive.
var ErrVenueDisabled = errors.New("venue is disabled in the registry")

// UnknownPlatformError is returned when no extractor is registered for a platform.
type UnknownPlatformError struct {
	Platform string
	Venue    string
}

func (e *UnknownPlatformError) Error() string {
	return fmt.Sprintf("unknown platform %q for venue %q", e.Platform, e.Venue)
}

// ConfigError reports a venue entry missing a platform-specific setting.
type ConfigError struct {
	Venue   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error for venue %q: %s", e.Venue, e.Message)
}
