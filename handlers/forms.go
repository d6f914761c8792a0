package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"agency_site_go/logger"
	"agency_site_go/middleware"
	"agency_site_go/services"
	"agency_site_go/templates/partials"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// formSummary is the public description of a lead form
type formSummary struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Fields        []string `json:"fields"`
	ExpiringToken bool     `json:"expiring_token"`
}

// fieldFeedback is the response to a single-field validation
type fieldFeedback struct {
	Field  string               `json:"field"`
	Status services.FieldStatus `json:"status"`
	Error  string               `json:"error,omitempty"`
}

// ListFormsHandler returns the lead forms the site renders
func ListFormsHandler(c echo.Context) error {
	forms := services.Forms()
	out := make([]formSummary, 0, len(forms))
	for _, def := range forms {
		out = append(out, formSummary{
			ID:            def.ID,
			Title:         def.Title,
			Fields:        def.Fields,
			ExpiringToken: def.Expiring(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// IssueFormTokenHandler issues the CSRF token a form embeds when it renders.
// A new token replaces the previous one for the same form and session.
func IssueFormTokenHandler(c echo.Context) error {
	def, err := lookupForm(c)
	if err != nil {
		return err
	}

	manager, err := middleware.CSRFManagerFor(c)
	if err != nil {
		return err
	}

	issued, err := services.IssueFormToken(manager, def)
	if err != nil {
		log.Error().Err(err).Str("form", def.ID).Msg("failed to issue csrf token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue form token")
	}

	log.Debug().
		Str("form", def.ID).
		Str("session", middleware.GetSessionID(c)).
		Str("token", logger.MaskToken(issued.Token)).
		Msg("issued form token")

	c.Response().Header().Set("Cache-Control", "no-store")
	return c.JSON(http.StatusOK, issued)
}

// LeadFormHandler renders the form partial with a freshly issued token
func LeadFormHandler(c echo.Context) error {
	def, err := lookupForm(c)
	if err != nil {
		return err
	}

	manager, err := middleware.CSRFManagerFor(c)
	if err != nil {
		return err
	}

	issued, err := services.IssueFormToken(manager, def)
	if err != nil {
		log.Error().Err(err).Str("form", def.ID).Msg("failed to issue csrf token")
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue form token")
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	return render(c, http.StatusOK, partials.LeadForm(partials.NewLeadFormView(def, issued.Token, nil, nil)))
}

// ValidateFieldHandler gives live feedback for one field on blur/change
func ValidateFieldHandler(c echo.Context) error {
	def, err := lookupForm(c)
	if err != nil {
		return err
	}

	var req struct {
		Field string `json:"field" form:"field"`
		Value string `json:"value" form:"value"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}
	if req.Field == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "field is required")
	}

	msg := services.ValidateSingleField(def, req.Field, req.Value)
	status := services.FieldStatusValid
	if msg != "" {
		status = services.FieldStatusInvalid
	}
	return c.JSON(http.StatusOK, fieldFeedback{Field: req.Field, Status: status, Error: msg})
}

// SubmitFormHandler verifies the form token, validates the record and
// returns the sanitized values. Leads are not persisted.
func SubmitFormHandler(c echo.Context) error {
	def, err := lookupForm(c)
	if err != nil {
		return err
	}

	record, err := readSubmission(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	manager, err := middleware.CSRFManagerFor(c)
	if err != nil {
		return err
	}

	token := middleware.GetCSRFToken(c)
	result, err := services.ProcessSubmission(manager, def, token, record)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCSRFToken) {
			return echo.NewHTTPError(http.StatusForbidden, "Your form session has expired. Please reload the page and try again.")
		}
		return err
	}

	htmx := c.Request().Header.Get("HX-Request") == "true"

	if !result.Accepted {
		if htmx {
			// htmx only swaps 2xx responses
			view := partials.NewLeadFormView(def, token, services.ToFormValues(record), result.Errors)
			return render(c, http.StatusOK, partials.LeadForm(view))
		}
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"form":     def.ID,
			"accepted": false,
			"errors":   result.Errors,
			"fields":   result.Errors.Statuses(def.Fields...),
		})
	}

	if htmx {
		c.Response().Header().Set("HX-Trigger", `{"show-toast": "Thanks! We'll be in touch shortly.", "reset-form": "`+def.ID+`"}`)
		c.Response().Header().Set("HX-Reswap", "none")
	}

	return c.JSON(http.StatusOK, result)
}

// HealthHandler reports liveness
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

func lookupForm(c echo.Context) (services.FormDefinition, error) {
	def, err := services.LookupForm(c.Param("form"))
	if err != nil {
		return services.FormDefinition{}, echo.NewHTTPError(http.StatusNotFound, "Form not found")
	}
	return def, nil
}

// readSubmission decodes a JSON or form-encoded body into a record. The
// csrf_token field is moved into the Echo context and left out of the record.
func readSubmission(c echo.Context) (map[string]any, error) {
	record := make(map[string]any)

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.NewDecoder(c.Request().Body).Decode(&record); err != nil {
			return nil, fmt.Errorf("failed to decode submission: %w", err)
		}
	} else {
		params, err := c.FormParams()
		if err != nil {
			return nil, fmt.Errorf("failed to parse submission: %w", err)
		}
		for key, values := range params {
			if len(values) > 0 {
				record[key] = values[0]
			}
		}
	}

	if token, ok := record[middleware.CSRFFormField].(string); ok {
		c.Set(middleware.CSRFContextKey, token)
	}
	delete(record, middleware.CSRFFormField)

	return record, nil
}
