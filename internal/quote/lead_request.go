package quote

import (
	"time"

	"github.com/wolfman30/westek-leads/internal/catalog"
)

// timestampLayout matches the browser's ISO-8601 rendering (UTC, milliseconds).
const timestampLayout = "2006-01-02T15:04:05.000Z"

// LeadRequest is the JSON body POSTed to the lead webhook.
type LeadRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	ProjectScope   string   `json:"projectScope"`
	Services       []string `json:"services"`
	Message        string   `json:"message"`
	Source         string   `json:"source"`
	Timestamp      string   `json:"timestamp"`
	RecaptchaToken string   `json:"recaptchaToken"`
}

// Time parses Timestamp back into a time.Time.
func (r *LeadRequest) Time() (time.Time, error) {
	return time.Parse(timestampLayout, r.Timestamp)
}

func newLeadRequest(f Fields, source, token string, at time.Time) *LeadRequest {
	return &LeadRequest{
		Name:           f.Name,
		Email:          f.Email,
		Phone:          f.Phone,
		ProjectScope:   string(f.ProjectScope),
		Services:       labels(f.ProjectScope, f.Services),
		Message:        f.Message,
		Source:         source,
		Timestamp:      at.UTC().Format(timestampLayout),
		RecaptchaToken: token,
	}
}

// labels resolves ids to display labels in selection order. Ids the scope does
// not offer have no label and are left out.
func labels(scope catalog.Scope, ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if label, ok := catalog.Label(scope, id); ok {
			out = append(out, label)
		}
	}
	return out
}
