// Package webhook delivers quote leads to the CRM webhook as JSON.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/westek-leads/internal/observability/metrics"
	"github.com/wolfman30/westek-leads/internal/quote"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

var tracer = otel.Tracer("westek/webhook")

// DefaultTimeout bounds one POST when the caller does not configure a client.
const DefaultTimeout = 10 * time.Second

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
}

// Config configures a Client.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *logging.Logger
	Metrics    *metrics.LeadMetrics
	// The endpoint is marked unhealthy after this many consecutive failed
	// deliveries. Zero uses 5.
	MaxConsecutiveFailures uint32
	// OpenFor is how long the endpoint stays marked unhealthy before outcomes
	// are recorded again. Zero uses 30s. Deliveries are attempted regardless.
	OpenFor time.Duration
}

// Client posts leads to a single webhook URL. Every Submit makes its POST; the
// breaker only tracks endpoint health for logs, spans and State.
type Client struct {
	url     string
	http    *http.Client
	health  *gobreaker.TwoStepCircuitBreaker
	logger  *logging.Logger
	metrics *metrics.LeadMetrics
	now     func() time.Time
}

// NewClient builds a webhook client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.MaxConsecutiveFailures == 0 {
		cfg.MaxConsecutiveFailures = 5
	}
	if cfg.OpenFor <= 0 {
		cfg.OpenFor = 30 * time.Second
	}

	logger := cfg.Logger.With("webhook_url", redactURL(cfg.URL))
	maxFailures := cfg.MaxConsecutiveFailures
	st := gobreaker.Settings{
		Name:     "lead-webhook",
		Interval: 60 * time.Second,
		Timeout:  cfg.OpenFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("webhook: endpoint health changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		url:     cfg.URL,
		http:    cfg.HTTPClient,
		health:  gobreaker.NewTwoStepCircuitBreaker(st),
		logger:  logger,
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string { return c.url }

// State reports the tracked endpoint health: closed (healthy), open (failing)
// or half-open (awaiting the next recorded outcome).
func (c *Client) State() gobreaker.State { return c.health.State() }

// Submit implements quote.Submitter.
func (c *Client) Submit(ctx context.Context, req *quote.LeadRequest) error {
	if req == nil {
		return errors.New("webhook: nil lead")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("webhook: marshal lead: %w", err)
	}

	ctx, span := tracer.Start(ctx, "webhook.post")
	defer span.End()
	span.SetAttributes(attribute.String("lead.source", req.Source))

	// Allow fails while the endpoint is marked unhealthy. The POST is still
	// made; only recording its outcome is skipped.
	record, allowErr := c.health.Allow()
	healthState := c.health.State().String()

	start := c.now()
	err = c.post(ctx, body)
	elapsed := c.now().Sub(start).Seconds()
	if allowErr == nil {
		record(err == nil)
	}

	status := "ok"
	var statusErr *StatusError
	switch {
	case err == nil:
	case errors.As(err, &statusErr):
		status = "http_error"
		span.SetAttributes(attribute.Int("http.status_code", statusErr.StatusCode))
	default:
		status = "transport_error"
	}
	span.SetAttributes(attribute.String("webhook.health", healthState))
	c.metrics.ObserveWebhook(status, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		c.logger.Warn("webhook: delivery failed", "status", status, "error", err, "source", req.Source, "health", healthState)
		return err
	}
	c.logger.Debug("webhook: lead posted", "source", req.Source, "latency_seconds", elapsed)
	return nil
}

func (c *Client) post(ctx context.Context, body []byte) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
