package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// ValidationRule describes the constraints for one field.
// MinLength and MaxLength are ignored when zero. Custom returns an error
// message, or an empty string when the value is acceptable.
type ValidationRule struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Custom    func(value string) string
}

// ValidationRuleSet maps a field name to its rule
type ValidationRuleSet map[string]ValidationRule

// FormValues is one submitted record, field name to raw value
type FormValues map[string]string

// ValidationErrors maps a field name to a single human-readable message.
// A field absent from the map is valid.
type ValidationErrors map[string]string

// FieldStatus is the UI-facing state of a field
type FieldStatus string

const (
	FieldStatusValid   FieldStatus = "valid"
	FieldStatusInvalid FieldStatus = "invalid"
)

// HasErrors reports whether any field failed
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Status derives the FieldStatus of a field from the presence of an error
func (e ValidationErrors) Status(field string) FieldStatus {
	if _, ok := e[field]; ok {
		return FieldStatusInvalid
	}
	return FieldStatusValid
}

// Statuses returns the FieldStatus of every named field
func (e ValidationErrors) Statuses(fields ...string) map[string]FieldStatus {
	out := make(map[string]FieldStatus, len(fields))
	for _, f := range fields {
		out[f] = e.Status(f)
	}
	return out
}

// Validator validates a whole submitted record
type Validator interface {
	Validate(values FormValues) ValidationErrors
}

// ValidateField checks a single value against a rule and returns the first
// failing message, or an empty string when the value is acceptable.
func ValidateField(name, value string, rule ValidationRule) string {
	present := value != ""

	if rule.Required && strings.TrimSpace(value) == "" {
		return MsgFieldRequired
	}

	if present && rule.MinLength > 0 && utf8.RuneCountInString(value) < rule.MinLength {
		return fmt.Sprintf("Must be at least %d characters", rule.MinLength)
	}

	if present && rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		return fmt.Sprintf("Must be no more than %d characters", rule.MaxLength)
	}

	if present && rule.Pattern != nil && !rule.Pattern.MatchString(value) {
		return patternMessage(name)
	}

	if rule.Custom != nil {
		return rule.Custom(value)
	}

	return ""
}

func patternMessage(name string) string {
	switch name {
	case "email":
		return MsgInvalidEmail
	case "phone":
		return MsgInvalidPhone
	case "name":
		return MsgInvalidName
	default:
		return MsgInvalidFormat
	}
}

// ValidateForm applies every rule in the set to the matching value.
// Fields without a rule are never validated or reported.
func ValidateForm(values FormValues, rules ValidationRuleSet) ValidationErrors {
	errors := make(ValidationErrors)
	for field, rule := range rules {
		if msg := ValidateField(field, values[field], rule); msg != "" {
			errors[field] = msg
		}
	}
	return errors
}

// ValidateFormData checks the required fields, the MaxLengths table, and the
// built-in email and phone formats. Unlike ValidateForm it looks at every
// submitted field, not only the ones named by a rule set.
func ValidateFormData(values FormValues, required []string) ValidationErrors {
	errors := make(ValidationErrors)

	for _, field := range required {
		if strings.TrimSpace(values[field]) == "" {
			errors[field] = MsgFieldRequired
		}
	}

	for field, value := range values {
		if _, failed := errors[field]; failed {
			continue
		}
		limit := MaxLengthFor(field)
		if utf8.RuneCountInString(value) > limit {
			errors[field] = fmt.Sprintf("Must be no more than %d characters", limit)
		}
	}

	if email := values["email"]; email != "" && errors["email"] == "" && !EmailPattern.MatchString(email) {
		errors["email"] = MsgInvalidEmail
	}

	if phone := values["phone"]; phone != "" && errors["phone"] == "" && !PhonePattern.MatchString(phone) {
		errors["phone"] = MsgInvalidPhone
	}

	return errors
}

// RuleSetValidator validates a record against an explicit rule set
type RuleSetValidator struct {
	Rules ValidationRuleSet
}

// Validate implements Validator
func (v RuleSetValidator) Validate(values FormValues) ValidationErrors {
	return ValidateForm(values, v.Rules)
}

// ConventionValidator validates a record against a list of required fields
// plus the site-wide length and format conventions
type ConventionValidator struct {
	Required []string
}

// Validate implements Validator
func (v ConventionValidator) Validate(values FormValues) ValidationErrors {
	return ValidateFormData(values, v.Required)
}

// RulesFor builds a rule set from CommonValidationRules
func RulesFor(fields ...string) ValidationRuleSet {
	rules := make(ValidationRuleSet, len(fields))
	for _, f := range fields {
		rules[f] = CommonValidationRules[f]
	}
	return rules
}
