package config

import (
	"fmt"
	"strings"
)

// ValidationErrors accumulates field-level violations so a single pass over
// the configuration reports every problem instead of the first one.
type ValidationErrors struct {
	errors []string
}

// Add records a violation.
func (v *ValidationErrors) Add(format string, args ...interface{}) {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
}

// AddField records a violation for a named configuration key.
func (v *ValidationErrors) AddField(key, message string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", key, message))
}

func (v *ValidationErrors) Error() string {
	return strings.Join(v.errors, "; ")
}

// HasErrors reports whether any violation was recorded.
func (v *ValidationErrors) HasErrors() bool { return len(v.errors) > 0 }

// Count returns the number of recorded violations.
func (v *ValidationErrors) Count() int { return len(v.errors) }

// Errors returns the recorded violations.
func (v *ValidationErrors) Errors() []string { return v.errors }
