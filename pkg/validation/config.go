package validation

import (
	"errors"
	"fmt"
	"time"
)

// ConfigValidator checks configuration values fluently and collects every
// failure instead of stopping at the first one.
type ConfigValidator struct {
	section string
	errs    []error
}

// NewConfigValidator starts validating the named config section.
func NewConfigValidator(section string) *ConfigValidator {
	return &ConfigValidator{section: section}
}

func (cv *ConfigValidator) fail(field, format string, args ...any) *ConfigValidator {
	cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %s", cv.section, field, fmt.Sprintf(format, args...)))
	return cv
}

// Required fails when value is empty.
func (cv *ConfigValidator) Required(field, value string) *ConfigValidator {
	if value == "" {
		return cv.fail(field, "required field is empty")
	}
	return cv
}

// Positive fails unless value > 0.
func (cv *ConfigValidator) Positive(field string, value int) *ConfigValidator {
	if value <= 0 {
		return cv.fail(field, "value %d must be positive", value)
	}
	return cv
}

// NonNegative fails when value < 0.
func (cv *ConfigValidator) NonNegative(field string, value int) *ConfigValidator {
	if value < 0 {
		return cv.fail(field, "value %d must be non-negative", value)
	}
	return cv
}

// RangeInt fails unless min <= value <= max.
func (cv *ConfigValidator) RangeInt(field string, value, min, max int) *ConfigValidator {
	if value < min || value > max {
		return cv.fail(field, "value %d is outside range [%d, %d]", value, min, max)
	}
	return cv
}

// MinDuration fails when value < min.
func (cv *ConfigValidator) MinDuration(field string, value, min time.Duration) *ConfigValidator {
	if value < min {
		return cv.fail(field, "duration %v is below minimum %v", value, min)
	}
	return cv
}

// NonNegativeFloat fails when value < 0.
func (cv *ConfigValidator) NonNegativeFloat(field string, value float64) *ConfigValidator {
	if value < 0 {
		return cv.fail(field, "value %g must be non-negative", value)
	}
	return cv
}

// OneOf fails unless value is one of allowed.
func (cv *ConfigValidator) OneOf(field, value string, allowed ...string) *ConfigValidator {
	for _, a := range allowed {
		if value == a {
			return cv
		}
	}
	return cv.fail(field, "value %q must be one of %v", value, allowed)
}

// Custom records the error returned by fn, if any.
func (cv *ConfigValidator) Custom(field string, fn func() error) *ConfigValidator {
	if err := fn(); err != nil {
		cv.errs = append(cv.errs, fmt.Errorf("%s.%s: %w", cv.section, field, err))
	}
	return cv
}

// When runs validations only if condition holds.
func (cv *ConfigValidator) When(condition bool, validations func(*ConfigValidator)) *ConfigValidator {
	if condition {
		validations(cv)
	}
	return cv
}

// HasErrors reports whether any check failed.
func (cv *ConfigValidator) HasErrors() bool {
	return len(cv.errs) > 0
}

// Errors returns every recorded failure.
func (cv *ConfigValidator) Errors() []error {
	return cv.errs
}

// Validate joins all failures, or returns nil.
func (cv *ConfigValidator) Validate() error {
	return errors.Join(cv.errs...)
}

// DefaultOr returns value unless it is the zero value.
func DefaultOr[T comparable](value, defaultValue T) T {
	var zero T
	if value == zero {
		return defaultValue
	}
	return value
}

// DefaultOrDuration returns value if positive, otherwise the default.
func DefaultOrDuration(value, defaultValue time.Duration) time.Duration {
	if value <= 0 {
		return defaultValue
	}
	return value
}
