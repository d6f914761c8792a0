package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupForm(t *testing.T) {
	def, err := LookupForm("contact")
	require.NoError(t, err)
	assert.Equal(t, "contact", def.ID)
	assert.True(t, def.Expiring())

	_, err = LookupForm("careers")
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownForm))
}

func TestForms(t *testing.T) {
	forms := Forms()
	ids := make([]string, 0, len(forms))
	for _, f := range forms {
		ids = append(ids, f.ID)
	}
	assert.Equal(t, []string{"audit", "consultation", "contact", "newsletter", "quote"}, ids)
}

func TestConfigureTokenTTL(t *testing.T) {
	defer func() { require.NoError(t, ConfigureTokenTTL(DefaultTokenTTL)) }()

	require.NoError(t, ConfigureTokenTTL(5*time.Minute))
	contact, _ := LookupForm("contact")
	newsletter, _ := LookupForm("newsletter")
	assert.Equal(t, 5*time.Minute, contact.TokenTTL)
	assert.False(t, newsletter.Expiring())

	t.Run("Sub-minute ttl is rejected", func(t *testing.T) {
		assert.Error(t, ConfigureTokenTTL(30*time.Second))
		assert.Error(t, ConfigureTokenTTL(0))
		contact, _ := LookupForm("contact")
		assert.Equal(t, 5*time.Minute, contact.TokenTTL)
	})

	t.Run("Issued tokens are not born expired", func(t *testing.T) {
		require.NoError(t, ConfigureTokenTTL(90*time.Second))
		contact, _ := LookupForm("contact")
		assert.Equal(t, time.Minute, contact.TokenTTL)

		manager, _ := newTestManager()
		issued, err := IssueFormToken(manager, contact)
		require.NoError(t, err)
		assert.True(t, VerifyFormToken(manager, contact, issued.Token))
	})
}

func TestIssueFormToken(t *testing.T) {
	t.Run("Expiring form", func(t *testing.T) {
		manager, storage := newTestManager()
		def, _ := LookupForm("contact")

		issued, err := IssueFormToken(manager, def)
		require.NoError(t, err)
		assert.Equal(t, "contact", issued.FormID)
		assert.Len(t, issued.Token, 64)
		require.NotNil(t, issued.Expires)
		assert.WithinDuration(t, time.Now().Add(def.TokenTTL), *issued.Expires, 5*time.Second)

		raw, ok := storage.Get(TokenKey("contact"))
		assert.True(t, ok)
		assert.Contains(t, raw, issued.Token)
		assert.True(t, VerifyFormToken(manager, def, issued.Token))
	})

	t.Run("Plain form", func(t *testing.T) {
		manager, storage := newTestManager()
		def, _ := LookupForm("newsletter")

		issued, err := IssueFormToken(manager, def)
		require.NoError(t, err)
		assert.Nil(t, issued.Expires)

		raw, ok := storage.Get(TokenKey("newsletter"))
		assert.True(t, ok)
		assert.Equal(t, issued.Token, raw)
		assert.True(t, VerifyFormToken(manager, def, issued.Token))
	})

	t.Run("Re-render supersedes previous token", func(t *testing.T) {
		manager, _ := newTestManager()
		def, _ := LookupForm("quote")

		first, err := IssueFormToken(manager, def)
		require.NoError(t, err)
		second, err := IssueFormToken(manager, def)
		require.NoError(t, err)

		assert.False(t, VerifyFormToken(manager, def, first.Token))
		assert.True(t, VerifyFormToken(manager, def, second.Token))
	})

	t.Run("Storage failure", func(t *testing.T) {
		def, _ := LookupForm("newsletter")
		_, err := IssueFormToken(NewCSRFManager(failingStorage{}), def)
		assert.Error(t, err)
	})
}

func TestProcessSubmission(t *testing.T) {
	t.Run("Invalid token", func(t *testing.T) {
		manager, _ := newTestManager()
		def, _ := LookupForm("contact")
		_, err := IssueFormToken(manager, def)
		require.NoError(t, err)

		_, err = ProcessSubmission(manager, def, "forged", map[string]any{"name": "Ada"})
		assert.True(t, errors.Is(err, ErrInvalidCSRFToken))
	})

	t.Run("Expired token", func(t *testing.T) {
		now := time.Now()
		manager, _ := newTestManager()
		manager.WithClock(func() time.Time { return now })
		def, _ := LookupForm("contact")
		issued, err := IssueFormToken(manager, def)
		require.NoError(t, err)

		now = now.Add(def.TokenTTL)
		_, err = ProcessSubmission(manager, def, issued.Token, map[string]any{})
		assert.True(t, errors.Is(err, ErrInvalidCSRFToken))
	})

	t.Run("Validation errors", func(t *testing.T) {
		manager, _ := newTestManager()
		def, _ := LookupForm("contact")
		issued, err := IssueFormToken(manager, def)
		require.NoError(t, err)

		result, err := ProcessSubmission(manager, def, issued.Token, map[string]any{
			"name":    "",
			"email":   "a@b.com",
			"message": "too short",
		})
		require.NoError(t, err)
		assert.False(t, result.Accepted)
		assert.Equal(t, MsgFieldRequired, result.Errors["name"])
		assert.Equal(t, "Must be at least 10 characters", result.Errors["message"])
		assert.NotContains(t, result.Errors, "email")
		assert.Nil(t, result.Sanitized)
	})

	t.Run("Accepted and sanitized", func(t *testing.T) {
		manager, _ := newTestManager()
		def, _ := LookupForm("quote")
		issued, err := IssueFormToken(manager, def)
		require.NoError(t, err)

		values := map[string]any{
			"name":        "Mary-Jane O'Neil",
			"email":       "mj@example.com",
			"projectType": "Website redesign",
			"budget":      "10k-25k",
			"message":     "<script>alert(1)</script>We need a new site",
			"newsletter":  true,
		}
		result, err := ProcessSubmission(manager, def, issued.Token, values)
		require.NoError(t, err)
		assert.True(t, result.Accepted)
		assert.Equal(t, "quote", result.FormID)
		assert.Empty(t, result.Errors)
		assert.Equal(t, map[string]any{
			"name":        "Mary-Jane O'Neil",
			"email":       "mj@example.com",
			"projectType": "Website redesign",
			"budget":      "10k-25k",
			"message":     "We need a new site",
			"newsletter":  true,
		}, result.Sanitized)
		assert.Equal(t, "<script>alert(1)</script>We need a new site", values["message"])
	})
}

func TestToFormValues(t *testing.T) {
	values := ToFormValues(map[string]any{
		"name":   "Ada",
		"budget": float64(5000),
		"agree":  true,
		"notes":  nil,
	})
	assert.Equal(t, FormValues{"name": "Ada", "budget": "5000", "agree": "true", "notes": ""}, values)
}

func TestValidateSingleField(t *testing.T) {
	contact, _ := LookupForm("contact")
	assert.Equal(t, MsgInvalidEmail, ValidateSingleField(contact, "email", "nope"))
	assert.Equal(t, "", ValidateSingleField(contact, "email", "a@b.com"))
	assert.Equal(t, "", ValidateSingleField(contact, "website", "nope"))

	quote, _ := LookupForm("quote")
	assert.Equal(t, MsgFieldRequired, ValidateSingleField(quote, "projectType", " "))
	assert.Equal(t, MsgInvalidPhone, ValidateSingleField(quote, "phone", "abc"))
	assert.Equal(t, "", ValidateSingleField(quote, "name", "Ada"))
}
