package types

import (
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterStructValidation(showStructLevel, Show{})
	})
	return validate
}

func showStructLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(Show)
	// ISO dates compare lexically
	if s.StartDate != "" && s.EndDate != "" && s.EndDate < s.StartDate {
		sl.ReportError(s.EndDate, "EndDate", "EndDate", "gtefield", "StartDate")
	}
	if s.PriceRange.Bounded() && *s.PriceRange.Min > *s.PriceRange.Max {
		sl.ReportError(s.PriceRange, "PriceRange", "PriceRange", "minmax", "")
	}
	if s.PriceRange != nil && s.PriceRange.Min != nil && *s.PriceRange.Min < 0 {
		sl.ReportError(s.PriceRange, "PriceRange", "PriceRange", "gte", "0")
	}
}

// Validate validates the venue using the validator.
func (v *Venue) Validate() error {
	if err := getValidator().Struct(v); err != nil {
		return fmt.Errorf("invalid venue %q: %w", v.Name, err)
	}
	return nil
}

// Validate validates the show using the validator.
func (s *Show) Validate() error {
	if err := getValidator().Struct(s); err != nil {
		return fmt.Errorf("invalid show %q: %w", s.Title, err)
	}
	return nil
}
