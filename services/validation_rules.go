package services

import (
	"net/url"
	"regexp"
	"strings"
)

// Validation messages
const (
	MsgFieldRequired = "This field is required"
	MsgInvalidEmail  = "Please enter a valid email address"
	MsgInvalidPhone  = "Please enter a valid phone number"
	MsgInvalidName   = "Name can only contain letters, spaces, hyphens, and apostrophes"
	MsgInvalidFormat = "Invalid format"
	MsgInvalidURL    = "Please enter a valid website address"
)

// Pre-compiled patterns shared by the rule set and the convention validator
var (
	EmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	// Optional country code, optional parenthesised area code, common separators.
	PhonePattern = regexp.MustCompile(`^(\+\d{1,3}[\s.-]?)?\(?\d{3}\)?[\s.-]?\d{3}[\s.-]?\d{4}$`)
	NamePattern  = regexp.MustCompile(`^[\p{L}\s'-]+$`)
)

// DefaultMaxLengthKey is the MaxLengths entry used for unlisted fields
const DefaultMaxLengthKey = "default"

// MaxLengths caps the character count of every submitted field for the
// convention validator. Not mutated at runtime.
var MaxLengths = map[string]int{
	"name":              100,
	"email":             254,
	"phone":             20,
	"company":           100,
	"message":           5000,
	"subject":           200,
	"budget":            50,
	"projectType":       50,
	DefaultMaxLengthKey: 1000,
}

// MaxLengthFor returns the configured cap for a field, falling back to the default entry
func MaxLengthFor(field string) int {
	if limit, ok := MaxLengths[field]; ok {
		return limit
	}
	return MaxLengths[DefaultMaxLengthKey]
}

// CommonValidationRules are the rules shared by the site's lead forms
var CommonValidationRules = map[string]ValidationRule{
	"name": {
		Required:  true,
		MinLength: 2,
		MaxLength: 100,
		Pattern:   NamePattern,
	},
	"email": {
		Required:  true,
		MaxLength: 254,
		Pattern:   EmailPattern,
	},
	"phone": {
		Pattern: PhonePattern,
	},
	"company": {
		MaxLength: 100,
	},
	"subject": {
		Required:  true,
		MinLength: 3,
		MaxLength: 200,
	},
	"message": {
		Required:  true,
		MinLength: 10,
		MaxLength: 5000,
	},
	"budget": {
		MaxLength: 50,
	},
	"projectType": {
		Required:  true,
		MaxLength: 50,
	},
	"website": {
		Required:  true,
		MaxLength: 2048,
		Custom:    validateWebsite,
	},
}

// validateWebsite accepts absolute http(s) URLs and bare host names
func validateWebsite(value string) string {
	candidate := strings.TrimSpace(value)
	if !strings.Contains(candidate, "://") {
		candidate = "https://" + candidate
	}
	u, err := url.Parse(candidate)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return MsgInvalidURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return MsgInvalidURL
	}
	return ""
}
