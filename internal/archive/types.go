package archive

import "time"

// RecordVersion is written into every archived lead.
const RecordVersion = "1.0"

// LeadRecord is the JSON document archived to S3 for each captured lead.
type LeadRecord struct {
	Version        string    `json:"version"`
	LeadID         string    `json:"lead_id"`
	Source         string    `json:"source"`
	ProjectScope   string    `json:"project_scope"`
	Services       []string  `json:"services"`
	Contact        Contact   `json:"contact"`
	PhoneHash      string    `json:"phone_hash"` // sha256 of the digits
	Message        string    `json:"message"`
	RecaptchaScore *float64  `json:"recaptcha_score,omitempty"`
	Delivered      bool      `json:"delivered"`
	CreatedAt      time.Time `json:"created_at"`
	ArchivedAt     time.Time `json:"archived_at"`
}

// Contact is how the customer asked to be reached.
type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// ManifestEntry is one JSONL line in the monthly manifest file. It carries no
// contact details.
type ManifestEntry struct {
	LeadID       string   `json:"lead_id"`
	S3Key        string   `json:"s3_key"`
	Source       string   `json:"source"`
	ProjectScope string   `json:"project_scope"`
	ServiceCount int      `json:"service_count"`
	Delivered    bool     `json:"delivered"`
	PhoneHash    string   `json:"phone_hash"`
	ArchivedAt   string   `json:"archived_at"`
	Services     []string `json:"services,omitempty"`
}
