package partials

import (
	"agency_site_go/services"
)

// LeadFormField is one rendered input of a lead form
type LeadFormField struct {
	Name      string
	InputID   string
	Label     string
	InputType string
	Value     string
	Error     string
	Status    services.FieldStatus
}

// LeadFormView is everything the lead form partial needs to render
type LeadFormView struct {
	FormID string
	Title  string
	Token  string
	Fields []LeadFormField
}

var fieldLabels = map[string]string{
	"name":        "Full name",
	"email":       "Email",
	"phone":       "Phone",
	"company":     "Company",
	"subject":     "Subject",
	"message":     "Message",
	"budget":      "Budget",
	"projectType": "Project type",
	"website":     "Website",
}

var fieldInputTypes = map[string]string{
	"email":   "email",
	"phone":   "tel",
	"website": "url",
	"message": "textarea",
}

// NewLeadFormView builds the view of a form. errs is nil on first render, so
// fields carry no status until the visitor submits.
func NewLeadFormView(def services.FormDefinition, token string, values services.FormValues, errs services.ValidationErrors) LeadFormView {
	view := LeadFormView{
		FormID: def.ID,
		Title:  def.Title,
		Token:  token,
		Fields: make([]LeadFormField, 0, len(def.Fields)),
	}

	for _, name := range def.Fields {
		field := LeadFormField{
			Name:      name,
			InputID:   "lead-" + def.ID + "-" + name,
			Label:     fieldLabels[name],
			InputType: fieldInputTypes[name],
			Value:     values[name],
		}
		if field.Label == "" {
			field.Label = name
		}
		if field.InputType == "" {
			field.InputType = "text"
		}
		if errs != nil {
			field.Error = errs[name]
			field.Status = errs.Status(name)
		}
		view.Fields = append(view.Fields, field)
	}

	return view
}

// ContainerID is the element htmx swaps on submit
func (v LeadFormView) ContainerID() string {
	return "lead-form-" + v.FormID
}

// Action is the submission endpoint of the form
func (v LeadFormView) Action() string {
	return "/api/forms/" + v.FormID
}

// ValidateURL is the single-field feedback endpoint
func (v LeadFormView) ValidateURL() string {
	return v.Action() + "/validate"
}
