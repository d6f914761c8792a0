package services

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct{}

func (failingStorage) Get(string) (string, bool) { return "", false }
func (failingStorage) Set(string, string) error  { return errors.New("storage unavailable") }

func newTestManager() (*CSRFManager, TokenStorage) {
	storage := NewMemorySessionStorage().ForSession("session-1")
	return NewCSRFManager(storage), storage
}

func TestGenerateSecureToken(t *testing.T) {
	token1, err := GenerateSecureToken()
	require.NoError(t, err)
	token2, err := GenerateSecureToken()
	require.NoError(t, err)

	assert.Len(t, token1, 64)
	assert.Len(t, token2, 64)
	assert.NotEqual(t, token1, token2)

	raw, err := hex.DecodeString(token1)
	assert.NoError(t, err)
	assert.Len(t, raw, CSRFTokenLength)
}

func TestTokenKey(t *testing.T) {
	assert.Equal(t, "csrf-token-contact", TokenKey("contact"))
}

func TestVerifyCSRFToken(t *testing.T) {
	t.Run("Match and mismatch", func(t *testing.T) {
		manager, _ := newTestManager()
		require.NoError(t, manager.SetCSRFToken("abc", "contact"))

		assert.True(t, manager.VerifyCSRFToken("abc", "contact"))
		assert.False(t, manager.VerifyCSRFToken("xyz", "contact"))
	})

	t.Run("Missing token fails closed", func(t *testing.T) {
		manager, _ := newTestManager()
		assert.False(t, manager.VerifyCSRFToken("abc", "contact"))
		assert.False(t, manager.VerifyCSRFToken("", "contact"))
	})

	t.Run("Tokens are scoped per form", func(t *testing.T) {
		manager, _ := newTestManager()
		require.NoError(t, manager.SetCSRFToken("abc", "contact"))
		assert.False(t, manager.VerifyCSRFToken("abc", "quote"))
	})

	t.Run("Tokens are scoped per session", func(t *testing.T) {
		storage := NewMemorySessionStorage()
		first := NewCSRFManager(storage.ForSession("a"))
		second := NewCSRFManager(storage.ForSession("b"))
		require.NoError(t, first.SetCSRFToken("abc", "contact"))
		assert.False(t, second.VerifyCSRFToken("abc", "contact"))
	})

	t.Run("New token supersedes the old one", func(t *testing.T) {
		manager, _ := newTestManager()
		require.NoError(t, manager.SetCSRFToken("old", "contact"))
		require.NoError(t, manager.SetCSRFToken("new", "contact"))
		assert.False(t, manager.VerifyCSRFToken("old", "contact"))
		assert.True(t, manager.VerifyCSRFToken("new", "contact"))
	})

	t.Run("Storage failure is returned", func(t *testing.T) {
		manager := NewCSRFManager(failingStorage{})
		err := manager.SetCSRFToken("abc", "contact")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "storage unavailable")
		assert.False(t, manager.VerifyCSRFToken("abc", "contact"))
	})
}

func TestIsTokenValid(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expiry boundary is exclusive", func(t *testing.T) {
		now := base
		manager, _ := newTestManager()
		manager.WithClock(func() time.Time { return now })

		data, err := manager.GenerateTokenWithExpiry(1)
		require.NoError(t, err)
		assert.Equal(t, base.Add(time.Minute), data.Expires)
		require.NoError(t, manager.SetTokenWithExpiry(data, "quote"))

		now = data.Expires.Add(-time.Millisecond)
		assert.True(t, manager.IsTokenValid(data.Value, "quote"))

		now = data.Expires
		assert.False(t, manager.IsTokenValid(data.Value, "quote"))

		now = data.Expires.Add(time.Hour)
		assert.False(t, manager.IsTokenValid(data.Value, "quote"))
	})

	t.Run("Zero minute token is already expired", func(t *testing.T) {
		manager, _ := newTestManager()
		data, err := manager.GenerateTokenWithExpiry(0)
		require.NoError(t, err)
		require.NoError(t, manager.SetTokenWithExpiry(data, "quote"))
		assert.False(t, manager.IsTokenValid(data.Value, "quote"))
	})

	t.Run("Wrong value", func(t *testing.T) {
		manager, _ := newTestManager()
		data, err := manager.GenerateTokenWithExpiry(30)
		require.NoError(t, err)
		require.NoError(t, manager.SetTokenWithExpiry(data, "quote"))
		assert.True(t, manager.IsTokenValid(data.Value, "quote"))
		assert.False(t, manager.IsTokenValid("other", "quote"))
		assert.False(t, manager.IsTokenValid("", "quote"))
	})

	t.Run("Stored JSON layout", func(t *testing.T) {
		manager, storage := newTestManager()
		manager.WithClock(func() time.Time { return base })
		data := TokenData{Value: "abc", Expires: base.Add(time.Minute)}
		require.NoError(t, manager.SetTokenWithExpiry(data, "quote"))

		raw, ok := storage.Get("csrf-token-quote")
		require.True(t, ok)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
		assert.Equal(t, "abc", decoded["value"])
		assert.Equal(t, float64(base.Add(time.Minute).UnixMilli()), decoded["expires"])
	})

	t.Run("Corrupt stored data is invalid", func(t *testing.T) {
		manager, storage := newTestManager()
		require.NoError(t, storage.Set(TokenKey("quote"), "{not json"))
		assert.False(t, manager.IsTokenValid("{not json", "quote"))
	})

	t.Run("Plain token is not accepted as an expiring one", func(t *testing.T) {
		manager, _ := newTestManager()
		require.NoError(t, manager.SetCSRFToken("abc", "quote"))
		assert.False(t, manager.IsTokenValid("abc", "quote"))
	})

	t.Run("Missing token", func(t *testing.T) {
		manager, _ := newTestManager()
		assert.False(t, manager.IsTokenValid("abc", "quote"))
	})
}
