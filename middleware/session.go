package middleware

import (
	"net/http"
	"time"

	"agency_site_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	// SessionIDKey holds the visitor session ID in the Echo context
	SessionIDKey = "session_id"
	// SessionStorageKey holds the visitor's services.TokenStorage in the Echo context
	SessionStorageKey = "session_storage"
)

// SessionConfig defines the visitor session cookie
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Storage    services.SessionStorage
}

// Session identifies the visitor by a random cookie and exposes the
// session-scoped storage to handlers. Unknown or malformed cookies start a
// new session.
func Session(config SessionConfig) echo.MiddlewareFunc {
	if config.CookieName == "" {
		config.CookieName = "agency_session"
	}
	if config.TTL == 0 {
		config.TTL = 24 * time.Hour
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sessionID := ""
			if cookie, err := c.Cookie(config.CookieName); err == nil {
				if _, err := uuid.Parse(cookie.Value); err == nil {
					sessionID = cookie.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.New().String()
				c.SetCookie(&http.Cookie{
					Name:     config.CookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(config.TTL.Seconds()),
					HttpOnly: true,
					Secure:   config.Secure,
					SameSite: http.SameSiteLaxMode,
				})
				log.Debug().Str("session", sessionID).Msg("started visitor session")
			}

			c.Set(SessionIDKey, sessionID)
			c.Set(SessionStorageKey, config.Storage.ForSession(sessionID))
			return next(c)
		}
	}
}

// GetSessionID returns the visitor session ID, or an empty string outside the Session middleware
func GetSessionID(c echo.Context) string {
	if id, ok := c.Get(SessionIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTokenStorage returns the visitor's session storage, or nil outside the Session middleware
func GetTokenStorage(c echo.Context) services.TokenStorage {
	if storage, ok := c.Get(SessionStorageKey).(services.TokenStorage); ok {
		return storage
	}
	return nil
}
