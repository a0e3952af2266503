package recaptcha

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultVerifyURL is Google's token verification endpoint.
const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// Verification is the siteverify response.
type Verification struct {
	Success     bool     `json:"success"`
	Score       float64  `json:"score"`
	Action      string   `json:"action"`
	Hostname    string   `json:"hostname"`
	ChallengeTS string   `json:"challenge_ts"`
	ErrorCodes  []string `json:"error-codes"`
}

// Passed reports whether the token verified for action with at least minScore.
func (v *Verification) Passed(action string, minScore float64) bool {
	if v == nil || !v.Success {
		return false
	}
	if action != "" && v.Action != "" && v.Action != action {
		return false
	}
	return v.Score >= minScore
}

// Verifier checks tokens against the siteverify API.
type Verifier struct {
	secret   string
	endpoint string
	client   *http.Client
}

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	SecretKey  string
	Endpoint   string
	HTTPClient *http.Client
}

// NewVerifier returns nil when no secret key is configured.
func NewVerifier(cfg VerifierConfig) *Verifier {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultVerifyURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &Verifier{secret: cfg.SecretKey, endpoint: cfg.Endpoint, client: cfg.HTTPClient}
}

// Verify posts token (and optional remoteIP) to siteverify.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (*Verification, error) {
	if v == nil {
		return nil, ErrUnavailable
	}
	if token == "" {
		return nil, ErrEmptyToken
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("recaptcha: build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recaptcha: verify request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recaptcha: verify returned status %d", resp.StatusCode)
	}

	var out Verification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("recaptcha: decode verify response: %w", err)
	}
	return &out, nil
}
