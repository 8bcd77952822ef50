// Package validate checks request fields for the storefront handlers and
// collects every failure of a request into one MultiError.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// ValidationError describes a single field validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// MultiError collects multiple validation errors for a single request.
type MultiError struct {
	Errors []ValidationError
}

// Add appends a validation error. If err is nil, Add is a no-op.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	if ve, ok := err.(*ValidationError); ok {
		m.Errors = append(m.Errors, *ve)
	} else {
		m.Errors = append(m.Errors, ValidationError{Field: "request", Message: err.Error()})
	}
}

// HasErrors reports whether any errors have been collected.
func (m *MultiError) HasErrors() bool { return len(m.Errors) > 0 }

// Error returns a pipe-delimited summary of all errors.
func (m *MultiError) Error() string {
	parts := make([]string, len(m.Errors))
	for i, e := range m.Errors {
		parts[i] = e.Error()
	}
	return strings.Join(parts, " | ")
}

// NonEmptyString validates that value is not empty or whitespace-only.
func NonEmptyString(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Message: "must not be empty"}
	}
	return nil
}

// MinLength validates that value contains at least min runes.
func MinLength(field, value string, min int) error {
	if utf8.RuneCountInString(value) < min {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be at least %d characters", min)}
	}
	return nil
}

// MaxLength validates that value does not exceed max runes.
func MaxLength(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must not exceed %d characters", max)}
	}
	return nil
}

// IsUUID accepts only the canonical 36-character hyphenated form.
func IsUUID(field, value string) error {
	v := strings.TrimSpace(value)
	if len(v) != 36 {
		return &ValidationError{Field: field, Message: "must be a valid UUID"}
	}
	if _, err := uuid.Parse(v); err != nil {
		return &ValidationError{Field: field, Message: "must be a valid UUID"}
	}
	return nil
}

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsEmail validates that value looks like an email address.
func IsEmail(field, value string) error {
	v := strings.TrimSpace(value)
	if len(v) > 254 || !emailRE.MatchString(v) {
		return &ValidationError{Field: field, Message: "must be a valid email address"}
	}
	return nil
}

// IsHTTPURL validates an absolute http(s) URL such as a cover image.
func IsHTTPURL(field, value string) error {
	u, err := url.ParseRequestURI(strings.TrimSpace(value))
	if err != nil || u.Host == "" {
		return &ValidationError{Field: field, Message: "must be a valid URL"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ValidationError{Field: field, Message: "must use http or https"}
	}
	return nil
}

// OptionalHTTPURL is IsHTTPURL that lets an empty value through.
func OptionalHTTPURL(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return IsHTTPURL(field, value)
}

var slugRE = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// IsSlug accepts lowercase letters, digits and hyphens, up to 200 chars.
func IsSlug(field, value string) error {
	if len(value) > 200 {
		return &ValidationError{Field: field, Message: "must be 200 characters or fewer"}
	}
	if !slugRE.MatchString(value) {
		return &ValidationError{Field: field, Message: "must contain only lowercase letters, digits and hyphens"}
	}
	return nil
}

// OneOf validates that value is one of allowed.
func OneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return &ValidationError{Field: field, Message: "must be one of: " + strings.Join(allowed, ", ")}
}

// PositiveInt validates value > 0. msg overrides the default message.
func PositiveInt(field string, value int, msg string) error {
	if value > 0 {
		return nil
	}
	if msg == "" {
		msg = "must be a positive integer"
	}
	return &ValidationError{Field: field, Message: msg}
}

// IntInRange validates that value is within [min, max] inclusive.
func IntInRange(field string, value, min, max int) error {
	if value < min || value > max {
		return &ValidationError{Field: field, Message: fmt.Sprintf("must be between %d and %d", min, max)}
	}
	return nil
}
