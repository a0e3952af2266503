package leads

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/westek-leads/internal/quote"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

type captureSubmitter struct {
	calls []*quote.LeadRequest
	err   error
}

func (c *captureSubmitter) Submit(_ context.Context, req *quote.LeadRequest) error {
	c.calls = append(c.calls, req)
	return c.err
}

func newTestHandler(t *testing.T) (*Handler, *captureSubmitter, *InMemoryRepository) {
	t.Helper()
	sub := &captureSubmitter{}
	repo := NewInMemoryRepository()
	svc := NewService(ServiceConfig{
		Repo:      repo,
		Submitter: sub,
		Logger:    logging.New("error"),
		Now:       func() time.Time { return time.Date(2024, 12, 10, 17, 30, 0, 0, time.UTC) },
	})
	return NewHandler(svc, logging.New("error")), sub, repo
}

func TestCreateQuote_Accepted(t *testing.T) {
	handler, sub, repo := newTestHandler(t)

	reqBody := CreateQuoteRequest{
		Name:         "Jo",
		Email:        "jo@x.com",
		Phone:        "9095551234",
		ProjectScope: "residential",
		Services:     []string{"ceiling-fan"},
		Source:       quote.SourceServices,
	}

	body, _ := json.Marshal(reqBody)
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateQuote(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, w.Code)
	}

	var resp SubmittedResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "submitted" || resp.ID == "" {
		t.Errorf("unexpected response %+v", resp)
	}

	if len(sub.calls) != 1 {
		t.Fatalf("expected 1 webhook call, got %d", len(sub.calls))
	}
	if got := sub.calls[0].Services; len(got) != 1 || got[0] != "Installation - Ceiling Fan" {
		t.Errorf("unexpected services %v", got)
	}
	if sub.calls[0].Source != quote.SourceServices {
		t.Errorf("expected source %q, got %q", quote.SourceServices, sub.calls[0].Source)
	}

	stored, err := repo.GetByID(context.Background(), resp.ID)
	if err != nil {
		t.Fatalf("lead not stored: %v", err)
	}
	if !stored.Delivered {
		t.Error("expected lead to be marked delivered")
	}
}

func TestCreateQuote_ValidationErrors(t *testing.T) {
	handler, sub, _ := newTestHandler(t)

	body := `{"name":"","email":"jo@x.com","phone":"9095551234","projectScope":"residential","services":["ceiling-fan"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateQuote(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	var resp ValidationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Errors["name"] != quote.MsgName {
		t.Errorf("expected name error, got %v", resp.Errors)
	}
	if len(resp.Errors) != 1 {
		t.Errorf("expected only the name error, got %v", resp.Errors)
	}
	if len(sub.calls) != 0 {
		t.Errorf("expected no webhook call, got %d", len(sub.calls))
	}
}

func TestCreateQuote_UnknownServicesRejected(t *testing.T) {
	handler, sub, _ := newTestHandler(t)

	body := `{"name":"Jo","email":"jo@x.com","phone":"9095551234","projectScope":"residential","services":["bogus"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateQuote(w, req)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status %d, got %d", http.StatusUnprocessableEntity, w.Code)
	}
	var resp ValidationResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Errors["services"] != quote.MsgServices {
		t.Errorf("expected services error, got %v", resp.Errors)
	}
	if len(sub.calls) != 0 {
		t.Errorf("expected no webhook call, got %d", len(sub.calls))
	}
}

func TestCreateQuote_InvalidJSON(t *testing.T) {
	handler, _, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader("{not json"))
	w := httptest.NewRecorder()

	handler.CreateQuote(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCreateQuote_UnknownSourceUsesDefault(t *testing.T) {
	handler, sub, _ := newTestHandler(t)

	body := `{"name":"Jo","email":"jo@x.com","phone":"9095551234","projectScope":"business","services":["transformers"],"source":"Spam Bot"}`
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.CreateQuote(w, req)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, w.Code)
	}
	if sub.calls[0].Source != quote.SourceWebsite {
		t.Errorf("expected default source, got %q", sub.calls[0].Source)
	}
}

func TestListLeads(t *testing.T) {
	handler, _, repo := newTestHandler(t)
	ctx := context.Background()
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	for i, source := range []string{quote.SourceContact, quote.SourceFinancing, quote.SourceContact} {
		if _, err := repo.Create(ctx, &CreateLeadRequest{
			Name:      "Lead",
			Email:     "l@x.com",
			Source:    source,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/leads?limit=1&source="+strings.ReplaceAll(quote.SourceContact, " ", "+"), nil)
	w := httptest.NewRecorder()
	handler.ListLeads(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	var resp ListLeadsResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 1 || resp.Limit != 1 {
		t.Fatalf("unexpected page %+v", resp)
	}
	if !resp.Leads[0].CreatedAt.Equal(base.Add(2 * time.Hour)) {
		t.Errorf("expected newest contact lead first, got %v", resp.Leads[0].CreatedAt)
	}
}

func TestGetLead(t *testing.T) {
	handler, _, repo := newTestHandler(t)
	lead, err := repo.Create(context.Background(), &CreateLeadRequest{Name: "Jo", Phone: "9095551234"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	r := chi.NewRouter()
	r.Get("/admin/leads/{id}", handler.GetLead)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/leads/"+lead.ID, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin/leads/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Errorf("expected remote addr host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := clientIP(req); got != "203.0.113.7" {
		t.Errorf("expected forwarded client, got %q", got)
	}
}
