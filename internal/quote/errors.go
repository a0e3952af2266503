package quote

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrSubmitInProgress is returned for a second submit while one is pending.
	ErrSubmitInProgress = errors.New("quote: submission already in progress")

	// ErrFormLocked is returned for edits or submits outside the Idle state.
	ErrFormLocked = errors.New("quote: form is not editable")

	// ErrFormClosed is returned once the form has been closed.
	ErrFormClosed = errors.New("quote: form closed")

	// ErrScopeRequired is returned when toggling a service before a scope is chosen.
	ErrScopeRequired = errors.New("quote: select a project scope first")

	// ErrUnknownField is returned by SetField for fields that are not free text.
	ErrUnknownField = errors.New("quote: unknown text field")

	// ErrNoSubmitter is recorded when a form has nowhere to send leads.
	ErrNoSubmitter = errors.New("quote: no submitter configured")
)

// ValidationError carries every failing field of a rejected submission.
type ValidationError struct {
	Errors map[Field]string
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for f := range e.Errors {
		fields = append(fields, string(f))
	}
	sort.Strings(fields)
	return "quote: validation failed: " + strings.Join(fields, ", ")
}
