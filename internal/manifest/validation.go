package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/conduit-lang/apphost/internal/resource"
)

// Violation is one structural problem found while validating the registry.
type Violation struct {
	Resource string `json:"resource"`
	Field    string `json:"field,omitempty"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("%s: %s", v.Resource, v.Message)
	}
	return fmt.Sprintf("%s.%s: %s", v.Resource, v.Field, v.Message)
}

// ValidationErrors collects every violation found in one validation pass, in registry order.
type ValidationErrors struct {
	Violations []Violation
}

// NewValidationErrors creates a new ValidationErrors instance
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{}
}

// Add adds a violation
func (ve *ValidationErrors) Add(resourceName, field, code, message string) {
	ve.Violations = append(ve.Violations, Violation{
		Resource: resourceName,
		Field:    field,
		Code:     code,
		Message:  message,
	})
}

// HasErrors returns true if there are any violations
func (ve *ValidationErrors) HasErrors() bool {
	return len(ve.Violations) > 0
}

// Count returns the total number of violations
func (ve *ValidationErrors) Count() int {
	return len(ve.Violations)
}

// ForResource returns the violations reported against one resource
func (ve *ValidationErrors) ForResource(name string) []Violation {
	var out []Violation
	for _, v := range ve.Violations {
		if v.Resource == name {
			out = append(out, v)
		}
	}
	return out
}

// Error implements the error interface
func (ve *ValidationErrors) Error() string {
	if !ve.HasErrors() {
		return "validation failed"
	}
	if len(ve.Violations) == 1 {
		return fmt.Sprintf("validation failed: %s", ve.Violations[0])
	}

	messages := make([]string, len(ve.Violations))
	for i, v := range ve.Violations {
		messages[i] = "  - " + v.String()
	}
	return fmt.Sprintf("validation failed with %d violations:\n%s", len(ve.Violations), strings.Join(messages, "\n"))
}

// Code implements resource.Coded; the first violation's code stands for the whole set.
func (ve *ValidationErrors) Code() string {
	if !ve.HasErrors() {
		return ""
	}
	return ve.Violations[0].Code
}

// MarshalJSON implements json.Marshaler for custom JSON serialization
func (ve *ValidationErrors) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error      string      `json:"error"`
		Violations []Violation `json:"violations"`
	}{
		Error:      "validation_failed",
		Violations: ve.Violations,
	})
}

// Validate checks every resource of reg against rules and returns all violations together, or
// nil when the registry is valid.
func Validate(reg *resource.Registry, rules *Rules) *ValidationErrors {
	if rules == nil {
		rules = NewRules()
	}
	errs := NewValidationErrors()
	for _, r := range reg.Resources() {
		rules.check(reg, r, errs)
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}
