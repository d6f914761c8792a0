package middleware

import (
	"net/http"
	"strings"

	"agency_site_go/services"

	"github.com/labstack/echo/v4"
)

const (
	// CSRFHeader carries the form token on AJAX submissions
	CSRFHeader = "X-CSRF-Token"
	// CSRFFormField carries the form token on regular form posts
	CSRFFormField = "csrf_token"
	// CSRFContextKey is where handlers stash a token read from a JSON body
	CSRFContextKey = "csrf"
)

// GetCSRFToken returns the token presented with the request: the header
// first, then a token stashed in the Echo context, then the form field
func GetCSRFToken(c echo.Context) string {
	if token := strings.TrimSpace(c.Request().Header.Get(CSRFHeader)); token != "" {
		return token
	}
	if tokenStr, ok := c.Get(CSRFContextKey).(string); ok && tokenStr != "" {
		return tokenStr
	}
	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationForm) {
		return c.FormValue(CSRFFormField)
	}
	return ""
}

// CSRFManagerFor returns a token manager bound to the visitor's session storage
func CSRFManagerFor(c echo.Context) (*services.CSRFManager, error) {
	storage := GetTokenStorage(c)
	if storage == nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, "Session unavailable")
	}
	return services.NewCSRFManager(storage), nil
}
