package quote

import (
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/westek-leads/internal/catalog"
)

// Field names a form input. Values match the JSON keys of LeadRequest.
type Field string

const (
	FieldName         Field = "name"
	FieldEmail        Field = "email"
	FieldPhone        Field = "phone"
	FieldProjectScope Field = "projectScope"
	FieldServices     Field = "services"
	FieldMessage      Field = "message"
)

const (
	MsgName         = "Name must be at least 2 characters"
	MsgEmail        = "Please enter a valid email address"
	MsgPhone        = "Please enter a valid phone number"
	MsgProjectScope = "Please select a project type"
	MsgServices     = "Please select at least one service"
)

// Fields are the raw values of a quote form.
type Fields struct {
	Name         string
	Email        string
	Phone        string
	ProjectScope catalog.Scope
	Services     []string
	Message      string
}

func (f Fields) clone() Fields {
	f.Services = append([]string(nil), f.Services...)
	return f
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Errors map[Field]string
}

// Validate checks every required field and accumulates all failures. The
// message field is optional and never fails.
func Validate(f Fields) ValidationResult {
	errs := make(map[Field]string)

	if utf8.RuneCountInString(strings.TrimSpace(f.Name)) < 2 {
		errs[FieldName] = MsgName
	}
	if !strings.Contains(strings.TrimSpace(f.Email), "@") {
		errs[FieldEmail] = MsgEmail
	}
	if utf8.RuneCountInString(strings.TrimSpace(f.Phone)) < 10 {
		errs[FieldPhone] = MsgPhone
	}
	if !catalog.Valid(f.ProjectScope) {
		errs[FieldProjectScope] = MsgProjectScope
	}
	if len(f.Services) == 0 {
		errs[FieldServices] = MsgServices
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
