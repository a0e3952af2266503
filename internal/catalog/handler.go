package catalog

import (
	"encoding/json"
	"net/http"
)

// ScopesHandler serves GET /api/catalog/scopes.
func ScopesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"scopes": Scopes()})
}

// ServicesHandler serves GET /api/catalog/services?scope=<scope>. Unknown or
// missing scopes yield an empty list.
func ServicesHandler(w http.ResponseWriter, r *http.Request) {
	scope := Scope(r.URL.Query().Get("scope"))
	writeJSON(w, map[string]any{
		"scope":    scope,
		"services": Options(scope),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
