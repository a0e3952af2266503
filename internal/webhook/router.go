package webhook

import (
	"context"
	"net/url"

	"github.com/wolfman30/westek-leads/internal/quote"
)

// Router picks a client by lead source and falls back to a default client.
type Router struct {
	fallback *Client
	bySource map[string]*Client
}

// NewRouter builds one client per route plus the fallback. Every client shares
// cfg except for the URL.
func NewRouter(cfg Config, routes map[string]string) *Router {
	r := &Router{
		fallback: NewClient(cfg),
		bySource: make(map[string]*Client, len(routes)),
	}
	for source, target := range routes {
		if target == "" {
			continue
		}
		routed := cfg
		routed.URL = target
		r.bySource[source] = NewClient(routed)
	}
	return r
}

// For returns the client that receives leads from source.
func (r *Router) For(source string) *Client {
	if c, ok := r.bySource[source]; ok {
		return c
	}
	return r.fallback
}

// Submit implements quote.Submitter.
func (r *Router) Submit(ctx context.Context, req *quote.LeadRequest) error {
	source := ""
	if req != nil {
		source = req.Source
	}
	return r.For(source).Submit(ctx, req)
}

// redactURL keeps scheme and host so hook secrets in the path stay out of logs.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Scheme + "://" + u.Host
}
