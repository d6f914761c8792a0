package services

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy allows no elements and no attributes. bluemonday drops the
// contents of script and style elements rather than keeping them as text.
// Policies are safe for concurrent use once configured.
var strictPolicy = bluemonday.StrictPolicy()

// quoteUnescaper restores the quotes bluemonday entity-encodes in text.
// Only & < > need escaping in text content.
var quoteUnescaper = strings.NewReplacer("&#39;", "'", "&#34;", `"`)

// SanitizeString removes all markup from a single value
func SanitizeString(s string) string {
	if s == "" {
		return ""
	}
	return quoteUnescaper.Replace(strictPolicy.Sanitize(s))
}

// SanitizeInput returns a copy of record with every string value stripped of
// markup. Non-string values are copied through untouched.
func SanitizeInput(record map[string]any) map[string]any {
	out := make(map[string]any, len(record))
	for key, value := range record {
		if s, ok := value.(string); ok {
			out[key] = SanitizeString(s)
			continue
		}
		out[key] = value
	}
	return out
}
