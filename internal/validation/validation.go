// Package validation applies declarative field rules and aggregates
// failures into per-field messages suitable for direct display.
//
// Rules are pure and total: a Rule never panics and performs no I/O.
// Apply evaluates every rule so a caller receives all field failures in
// one pass rather than the first.
package validation

import (
	"fmt"
	"strings"
)

// FieldError is a single field-level validation failure. Message is
// user-facing and surfaced verbatim.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors aggregates failures across fields. It implements error.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, fmt.Sprintf("%s: %s", e.Field, e.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Has reports whether any failure was recorded for the field.
func (fe FieldErrors) Has(field string) bool {
	for _, e := range fe {
		if e.Field == field {
			return true
		}
	}
	return false
}

// Get returns the messages recorded for the field, in rule order.
func (fe FieldErrors) Get(field string) []string {
	var messages []string
	for _, e := range fe {
		if e.Field == field {
			messages = append(messages, e.Message)
		}
	}
	return messages
}

// Fields returns the distinct failed fields, in first-failure order.
func (fe FieldErrors) Fields() []string {
	var fields []string
	seen := make(map[string]bool)
	for _, e := range fe {
		if !seen[e.Field] {
			fields = append(fields, e.Field)
			seen[e.Field] = true
		}
	}
	return fields
}

// ByField returns the first message per failed field, keyed by field
// name. Transports serialize this map directly.
func (fe FieldErrors) ByField() map[string]string {
	out := make(map[string]string, len(fe))
	for _, e := range fe {
		if _, ok := out[e.Field]; !ok {
			out[e.Field] = e.Message
		}
	}
	return out
}

// IsEmpty reports whether no failures were recorded.
func (fe FieldErrors) IsEmpty() bool { return len(fe) == 0 }

// Rule pairs a predicate with the failure to record when it is false.
type Rule struct {
	Check func() bool
	Error FieldError
}

// Apply evaluates all rules and returns the aggregated failures, or nil
// when every rule passes. The returned error is always a FieldErrors.
func Apply(rules ...Rule) error {
	var failures FieldErrors
	for _, rule := range rules {
		if !rule.Check() {
			failures = append(failures, rule.Error)
		}
	}
	if failures.IsEmpty() {
		return nil
	}
	return failures
}

// AsFieldErrors extracts FieldErrors from an error returned by Apply.
func AsFieldErrors(err error) (FieldErrors, bool) {
	fe, ok := err.(FieldErrors)
	return fe, ok
}
