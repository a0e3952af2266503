package leads

import (
	"strings"
	"time"
)

// Lead is a captured quote request.
type Lead struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	ProjectScope   string    `json:"project_scope"`
	Services       []string  `json:"services"`
	Message        string    `json:"message"`
	Source         string    `json:"source"`
	RecaptchaScore *float64  `json:"recaptcha_score,omitempty"`
	Delivered      bool      `json:"delivered"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateQuoteRequest is the public intake body. Services are catalog ids.
type CreateQuoteRequest struct {
	Name           string   `json:"name"`
	Email          string   `json:"email"`
	Phone          string   `json:"phone"`
	ProjectScope   string   `json:"projectScope"`
	Services       []string `json:"services"`
	Message        string   `json:"message"`
	Source         string   `json:"source"`
	RecaptchaToken string   `json:"recaptchaToken"`
}

// CreateLeadRequest is what the repository persists. An empty ID gets a new uuid.
type CreateLeadRequest struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	ProjectScope   string
	Services       []string
	Message        string
	Source         string
	RecaptchaScore *float64
	Delivered      bool
	CreatedAt      time.Time
}

// Validate checks the minimum a stored lead needs.
func (r *CreateLeadRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(r.Email) == "" && strings.TrimSpace(r.Phone) == "" {
		return ErrMissingContact
	}
	return nil
}

func (r *CreateLeadRequest) lead(id string, createdAt time.Time) *Lead {
	return &Lead{
		ID:             id,
		Name:           r.Name,
		Email:          r.Email,
		Phone:          r.Phone,
		ProjectScope:   r.ProjectScope,
		Services:       append([]string(nil), r.Services...),
		Message:        r.Message,
		Source:         r.Source,
		RecaptchaScore: r.RecaptchaScore,
		Delivered:      r.Delivered,
		CreatedAt:      createdAt,
	}
}

// ListFilter pages through leads, newest first.
type ListFilter struct {
	Limit  int
	Offset int
	Source string
}

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
