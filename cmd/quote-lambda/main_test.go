package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/wolfman30/westek-leads/internal/api/router"
	"github.com/wolfman30/westek-leads/internal/leads"
	"github.com/wolfman30/westek-leads/internal/quote"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

const validQuote = `{"name":"Jo","email":"jo@x.com","phone":"9095551234","projectScope":"residential","services":["ceiling-fan"]}`

type recordingSubmitter struct {
	mu    sync.Mutex
	calls []*quote.LeadRequest
}

func (r *recordingSubmitter) Submit(_ context.Context, req *quote.LeadRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	return nil
}

func newTestHandler(t *testing.T) (http.Handler, *recordingSubmitter) {
	t.Helper()
	sub := &recordingSubmitter{}
	logger := logging.New("error")
	svc := leads.NewService(leads.ServiceConfig{
		Repo:      leads.NewInMemoryRepository(),
		Submitter: sub,
		Logger:    logger,
	})
	return router.New(&router.Config{
		Logger:       logger,
		LeadsHandler: leads.NewHandler(svc, logger),
		FormSettings: &router.FormSettings{},
	}), sub
}

func event(method, path, body string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		Body:    body,
		Headers: map[string]string{"content-type": "application/json"},
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method:   method,
				Path:     path,
				SourceIP: "203.0.113.7",
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	h, _ := newTestHandler(t)

	resp, err := handle(context.Background(), h, event(http.MethodGet, "/health", ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.StatusCode)
	}
	if !strings.Contains(resp.Body, `"status":"ok"`) {
		t.Fatalf("unexpected body %q", resp.Body)
	}
}

func TestHandleUnknownRoute(t *testing.T) {
	h, _ := newTestHandler(t)

	for _, path := range []string{"/admin/leads", "/metrics", "/"} {
		resp, err := handle(context.Background(), h, event(http.MethodGet, path, ""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, resp.StatusCode)
		}
	}
}

func TestHandleCatalogServices(t *testing.T) {
	h, _ := newTestHandler(t)
	evt := event(http.MethodGet, "/api/catalog/services", "")
	evt.RawQueryString = "scope=residential"

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Scope    string `json:"scope"`
		Services []struct {
			Value string `json:"value"`
		} `json:"services"`
	}
	if err := json.Unmarshal([]byte(resp.Body), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Scope != "residential" || len(body.Services) == 0 {
		t.Fatalf("unexpected catalog response: %+v", body)
	}
}

func TestHandleQuoteSubmission(t *testing.T) {
	h, sub := newTestHandler(t)

	resp, err := handle(context.Background(), h, event(http.MethodPost, "/api/quotes", validQuote))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, resp.Body)
	}
	if resp.Headers["content-type"] != "application/json" {
		t.Fatalf("unexpected content-type %q", resp.Headers["content-type"])
	}
	if len(sub.calls) != 1 || sub.calls[0].Name != "Jo" {
		t.Fatalf("expected one submission, got %+v", sub.calls)
	}
}

func TestHandleBase64Body(t *testing.T) {
	h, sub := newTestHandler(t)
	evt := event(http.MethodPost, "/api/quotes", base64.StdEncoding.EncodeToString([]byte(validQuote)))
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	if len(sub.calls) != 1 {
		t.Fatalf("expected one submission, got %d", len(sub.calls))
	}
}

func TestHandleInvalidBase64(t *testing.T) {
	h, _ := newTestHandler(t)
	evt := event(http.MethodPost, "/api/quotes", "%%%")
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), h, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHandleValidationFailure(t *testing.T) {
	h, sub := newTestHandler(t)

	resp, err := handle(context.Background(), h, event(http.MethodPost, "/api/quotes", `{"name":"J"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	if len(sub.calls) != 0 {
		t.Fatalf("expected no submission, got %d", len(sub.calls))
	}
}
