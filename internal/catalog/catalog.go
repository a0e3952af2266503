// Package catalog holds the static service tables offered by the quote form and
// the mapping from a project scope to the services a customer may pick.
package catalog

import "strings"

// Scope is the top-level category of work requested.
type Scope string

const (
	ScopeResidential    Scope = "residential"
	ScopeBusiness       Scope = "business"
	ScopeReconstruction Scope = "reconstruction"
)

// ServiceOption is a selectable line item in the service picker.
type ServiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// ScopeOption is a selectable project scope.
type ScopeOption struct {
	Value Scope  `json:"value"`
	Label string `json:"label"`
}

var scopeOptions = []ScopeOption{
	{Value: ScopeResidential, Label: "Residential"},
	{Value: ScopeBusiness, Label: "Business"},
	{Value: ScopeReconstruction, Label: "Reconstruction"},
}

// Scopes returns the project scope choices in display order.
func Scopes() []ScopeOption {
	out := make([]ScopeOption, len(scopeOptions))
	copy(out, scopeOptions)
	return out
}

// Valid reports whether s is exactly one of the known scopes.
func Valid(s Scope) bool {
	switch s {
	case ScopeResidential, ScopeBusiness, ScopeReconstruction:
		return true
	}
	return false
}

// ParseScope normalizes raw input into a known Scope.
func ParseScope(raw string) (Scope, bool) {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	if !Valid(s) {
		return "", false
	}
	return s, true
}

// Options returns the ordered list of services offered for scope. Unknown or
// empty scopes get an empty list. Overlapping ids across source tables are kept.
func Options(scope Scope) []ServiceOption {
	var groups [][]ServiceOption
	switch scope {
	case ScopeResidential:
		groups = [][]ServiceOption{residential, evChargers, design}
	case ScopeBusiness:
		groups = [][]ServiceOption{commercial, evChargers, industrial, design}
	case ScopeReconstruction:
		groups = [][]ServiceOption{commercial, residential, industrial, design}
	default:
		return []ServiceOption{}
	}

	n := 0
	for _, g := range groups {
		n += len(g)
	}
	out := make([]ServiceOption, 0, n)
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// Label resolves the display label of id within scope. The first matching
// option wins when the scope offers the same id more than once.
func Label(scope Scope, id string) (string, bool) {
	for _, opt := range Options(scope) {
		if opt.Value == id {
			return opt.Label, true
		}
	}
	return "", false
}

// Contains reports whether scope offers id.
func Contains(scope Scope, id string) bool {
	_, ok := Label(scope, id)
	return ok
}
