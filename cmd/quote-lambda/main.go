package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"net"
	"net/http"
	"os"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/westek-leads/internal/api/router"
	"github.com/wolfman30/westek-leads/internal/app/bootstrap"
	appconfig "github.com/wolfman30/westek-leads/internal/config"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	rt, err := bootstrap.Build(context.Background(), cfg, logger, prometheus.NewRegistry())
	if err != nil {
		logger.Error("failed to build runtime", "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	h := router.New(&router.Config{
		Logger:             logger,
		LeadsHandler:       rt.Handler,
		QuoteLimiter:       rt.Limiter,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		HealthChecks:       rt.HealthChecks(),
		FormSettings: &router.FormSettings{
			RecaptchaSiteKey:     cfg.RecaptchaSiteKey,
			SubmittedDisplay:     cfg.QuoteSubmittedDisplay,
			SuccessCallbackDelay: cfg.QuoteSuccessCallbackDelay,
		},
	})

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, h, evt)
	})
}

// handle serves the public intake routes through h. Admin and metrics routes
// are only exposed by cmd/api.
func handle(ctx context.Context, h http.Handler, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if !publicRoute(path) {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	target := path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		target += "?" + qs
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	for k, v := range evt.Headers {
		req.Header.Set(k, v)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.RemoteAddr = net.JoinHostPort(ip, "0")
		if req.Header.Get("X-Forwarded-For") == "" {
			req.Header.Set("X-Forwarded-For", ip)
		}
	}

	rec := newResponseBuffer()
	h.ServeHTTP(rec, req)
	return rec.event(), nil
}

func publicRoute(path string) bool {
	switch {
	case path == "/health", path == "/api/quotes", path == "/api/quote-form/settings":
		return true
	case strings.HasPrefix(path, "/api/catalog/"):
		return true
	default:
		return false
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

// responseBuffer collects a handler's response for the API Gateway reply.
type responseBuffer struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newResponseBuffer() *responseBuffer {
	return &responseBuffer{header: http.Header{}}
}

func (b *responseBuffer) Header() http.Header { return b.header }

func (b *responseBuffer) Write(p []byte) (int, error) {
	if b.status == 0 {
		b.status = http.StatusOK
	}
	return b.body.Write(p)
}

func (b *responseBuffer) WriteHeader(status int) {
	if b.status == 0 {
		b.status = status
	}
}

func (b *responseBuffer) event() events.APIGatewayV2HTTPResponse {
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers:    map[string]string{},
	}
	for k := range b.header {
		out.Headers[strings.ToLower(k)] = b.header.Get(k)
	}
	if strings.EqualFold(b.header.Get("Content-Encoding"), "gzip") ||
		strings.EqualFold(b.header.Get("Content-Encoding"), "deflate") {
		out.Body = base64.StdEncoding.EncodeToString(b.body.Bytes())
		out.IsBase64Encoded = true
	} else {
		out.Body = b.body.String()
	}
	return out
}
