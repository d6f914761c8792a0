package services

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// CSRFTokenLength is the number of random bytes in a token (64 chars hex)
	CSRFTokenLength = 32
	// csrfKeyPrefix namespaces tokens per form in session storage
	csrfKeyPrefix = "csrf-token-"
)

// TokenStorage is a session-scoped key/value store
type TokenStorage interface {
	Get(key string) (string, bool)
	Set(key, value string) error
}

// TokenData is an issued token with an absolute expiry
type TokenData struct {
	Value   string
	Expires time.Time
}

// storedToken is the JSON form of TokenData; expires is Unix milliseconds
type storedToken struct {
	Value   string `json:"value"`
	Expires int64  `json:"expires"`
}

// TokenKey returns the storage key holding the token for a form
func TokenKey(formID string) string {
	return csrfKeyPrefix + formID
}

// GenerateSecureToken generates a cryptographically secure random token
func GenerateSecureToken() (string, error) {
	bytes := make([]byte, CSRFTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// CSRFManager issues and verifies per-form tokens in one session's storage
type CSRFManager struct {
	storage TokenStorage
	now     func() time.Time
}

// NewCSRFManager creates a manager bound to a session's storage
func NewCSRFManager(storage TokenStorage) *CSRFManager {
	return &CSRFManager{storage: storage, now: time.Now}
}

// WithClock replaces the time source used for expiry
func (m *CSRFManager) WithClock(now func() time.Time) *CSRFManager {
	m.now = now
	return m
}

// GenerateTokenWithExpiry generates a token that expires after the given number of minutes
func (m *CSRFManager) GenerateTokenWithExpiry(minutes int) (TokenData, error) {
	value, err := GenerateSecureToken()
	if err != nil {
		return TokenData{}, err
	}
	return TokenData{
		Value:   value,
		Expires: m.now().Add(time.Duration(minutes) * time.Minute),
	}, nil
}

// SetCSRFToken stores a plain token for a form, replacing any previous one
func (m *CSRFManager) SetCSRFToken(token, formID string) error {
	if err := m.storage.Set(TokenKey(formID), token); err != nil {
		return fmt.Errorf("failed to store csrf token: %w", err)
	}
	return nil
}

// SetTokenWithExpiry stores an expiring token for a form, replacing any previous one
func (m *CSRFManager) SetTokenWithExpiry(data TokenData, formID string) error {
	raw, err := json.Marshal(storedToken{Value: data.Value, Expires: data.Expires.UnixMilli()})
	if err != nil {
		return fmt.Errorf("failed to encode csrf token: %w", err)
	}
	return m.SetCSRFToken(string(raw), formID)
}

// VerifyCSRFToken reports whether token matches the plain token stored for the form.
// It does not check expiry.
func (m *CSRFManager) VerifyCSRFToken(token, formID string) bool {
	stored, ok := m.storage.Get(TokenKey(formID))
	if !ok || stored == "" || token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(token)) == 1
}

// IsTokenValid reports whether token matches the expiring token stored for the
// form and the current time is strictly before its expiry. Corrupt stored data
// is treated as invalid.
func (m *CSRFManager) IsTokenValid(token, formID string) bool {
	stored, ok := m.storage.Get(TokenKey(formID))
	if !ok || token == "" {
		return false
	}

	var data storedToken
	if err := json.Unmarshal([]byte(stored), &data); err != nil {
		log.Debug().Err(err).Str("form", formID).Msg("discarding unreadable csrf token")
		return false
	}
	if data.Value == "" || subtle.ConstantTimeCompare([]byte(data.Value), []byte(token)) != 1 {
		return false
	}

	return m.now().UnixMilli() < data.Expires
}
