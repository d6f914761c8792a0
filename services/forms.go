package services

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	// ErrUnknownForm is returned for form identifiers not in the registry
	ErrUnknownForm = errors.New("unknown form")
	// ErrInvalidCSRFToken is returned when a submission carries a missing, stale or foreign token
	ErrInvalidCSRFToken = errors.New("invalid csrf token")
)

// FormDefinition describes one lead-capture form on the site
type FormDefinition struct {
	ID        string
	Title     string
	Fields    []string
	Validator Validator
	// TokenTTL of zero issues a plain token verified without expiry
	TokenTTL time.Duration
}

// Expiring reports whether the form issues tokens with an expiry
func (d FormDefinition) Expiring() bool {
	return d.TokenTTL > 0
}

// SubmissionResult is the outcome of one submission attempt
type SubmissionResult struct {
	FormID    string           `json:"form"`
	Accepted  bool             `json:"accepted"`
	Errors    ValidationErrors `json:"errors,omitempty"`
	Sanitized map[string]any   `json:"values,omitempty"`
}

// IssuedToken is what a form receives on render
type IssuedToken struct {
	FormID  string     `json:"form_id"`
	Token   string     `json:"token"`
	Expires *time.Time `json:"expires,omitempty"`
}

// DefaultTokenTTL is the expiry used by forms issuing expiring tokens
const DefaultTokenTTL = 30 * time.Minute

var formRegistry = map[string]FormDefinition{}

func init() {
	for _, def := range defaultForms(DefaultTokenTTL) {
		formRegistry[def.ID] = def
	}
}

// defaultForms returns the lead-capture forms of the site
func defaultForms(ttl time.Duration) []FormDefinition {
	return []FormDefinition{
		{
			ID:        "contact",
			Title:     "Contact us",
			Fields:    []string{"name", "email", "phone", "company", "message"},
			Validator: RuleSetValidator{Rules: RulesFor("name", "email", "phone", "company", "message")},
			TokenTTL:  ttl,
		},
		{
			ID:        "quote",
			Title:     "Request a quote",
			Fields:    []string{"name", "email", "phone", "company", "projectType", "budget", "message"},
			Validator: ConventionValidator{Required: []string{"name", "email", "projectType", "message"}},
			TokenTTL:  ttl,
		},
		{
			ID:        "newsletter",
			Title:     "Newsletter",
			Fields:    []string{"email"},
			Validator: RuleSetValidator{Rules: RulesFor("email")},
		},
		{
			ID:        "consultation",
			Title:     "Book a consultation",
			Fields:    []string{"name", "email", "phone", "subject"},
			Validator: ConventionValidator{Required: []string{"name", "email", "phone"}},
		},
		{
			ID:        "audit",
			Title:     "Free website audit",
			Fields:    []string{"name", "email", "website"},
			Validator: RuleSetValidator{Rules: RulesFor("name", "email", "website")},
			TokenTTL:  ttl,
		},
	}
}

// ConfigureTokenTTL sets the expiry of every form that issues expiring tokens.
// Expiries are issued in whole minutes, so ttl must be at least one minute.
func ConfigureTokenTTL(ttl time.Duration) error {
	if ttl < time.Minute {
		return fmt.Errorf("csrf token ttl %s is shorter than one minute", ttl)
	}
	ttl = ttl.Truncate(time.Minute)
	for id, def := range formRegistry {
		if def.Expiring() {
			def.TokenTTL = ttl
			formRegistry[id] = def
		}
	}
	return nil
}

// LookupForm returns the definition of a registered form
func LookupForm(id string) (FormDefinition, error) {
	def, ok := formRegistry[id]
	if !ok {
		return FormDefinition{}, fmt.Errorf("%w: %s", ErrUnknownForm, id)
	}
	return def, nil
}

// Forms returns all registered forms ordered by ID
func Forms() []FormDefinition {
	out := make([]FormDefinition, 0, len(formRegistry))
	for _, def := range formRegistry {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// IssueFormToken generates and stores a fresh token for the form, replacing
// any token issued earlier in the same session
func IssueFormToken(manager *CSRFManager, def FormDefinition) (IssuedToken, error) {
	if def.Expiring() {
		minutes := int(def.TokenTTL / time.Minute)
		data, err := manager.GenerateTokenWithExpiry(minutes)
		if err != nil {
			return IssuedToken{}, err
		}
		if err := manager.SetTokenWithExpiry(data, def.ID); err != nil {
			return IssuedToken{}, err
		}
		expires := data.Expires
		return IssuedToken{FormID: def.ID, Token: data.Value, Expires: &expires}, nil
	}

	token, err := GenerateSecureToken()
	if err != nil {
		return IssuedToken{}, err
	}
	if err := manager.SetCSRFToken(token, def.ID); err != nil {
		return IssuedToken{}, err
	}
	return IssuedToken{FormID: def.ID, Token: token}, nil
}

// VerifyFormToken checks a presented token with the strategy the form issued it with
func VerifyFormToken(manager *CSRFManager, def FormDefinition, token string) bool {
	if def.Expiring() {
		return manager.IsTokenValid(token, def.ID)
	}
	return manager.VerifyCSRFToken(token, def.ID)
}

// ProcessSubmission verifies the token, validates the record and, when valid,
// returns a sanitized copy. The submitted record is never modified.
func ProcessSubmission(manager *CSRFManager, def FormDefinition, token string, record map[string]any) (SubmissionResult, error) {
	if !VerifyFormToken(manager, def, token) {
		log.Warn().Str("form", def.ID).Msg("rejected submission with invalid csrf token")
		return SubmissionResult{}, fmt.Errorf("%w for form %s", ErrInvalidCSRFToken, def.ID)
	}

	errs := def.Validator.Validate(ToFormValues(record))
	if errs.HasErrors() {
		log.Debug().Str("form", def.ID).Int("errors", len(errs)).Msg("submission failed validation")
		return SubmissionResult{FormID: def.ID, Accepted: false, Errors: errs}, nil
	}

	log.Info().Str("form", def.ID).Msg("accepted lead submission")
	return SubmissionResult{FormID: def.ID, Accepted: true, Sanitized: SanitizeInput(record)}, nil
}

// ToFormValues flattens a submitted record for validation; non-string values
// are validated by their text form
func ToFormValues(record map[string]any) FormValues {
	values := make(FormValues, len(record))
	for key, value := range record {
		switch v := value.(type) {
		case nil:
			values[key] = ""
		case string:
			values[key] = v
		default:
			values[key] = fmt.Sprint(v)
		}
	}
	return values
}

// ValidateSingleField gives live feedback for one field of a form
func ValidateSingleField(def FormDefinition, name, value string) string {
	switch v := def.Validator.(type) {
	case RuleSetValidator:
		rule, ok := v.Rules[name]
		if !ok {
			return ""
		}
		return ValidateField(name, value, rule)
	default:
		return def.Validator.Validate(FormValues{name: value})[name]
	}
}
