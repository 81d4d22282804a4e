package db

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by store operations.
var (
	ErrVenueNotFound = errors.New("venue not found")
	ErrRunNotFound   = errors.New("scraper run not found")
	ErrRunSealed     = errors.New("scraper run already completed")
)

// ValidationError is returned when a candidate record is rejected before persistence.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("validation error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("validation error: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
