package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/westek-leads/internal/catalog"
	httpmiddleware "github.com/wolfman30/westek-leads/internal/http/middleware"
	"github.com/wolfman30/westek-leads/internal/leads"
	"github.com/wolfman30/westek-leads/internal/modal"
	"github.com/wolfman30/westek-leads/internal/quote"
	"github.com/wolfman30/westek-leads/internal/recaptcha"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

// HealthCheck checks one dependency for /health.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	LeadsHandler       *leads.Handler
	QuoteLimiter       httpmiddleware.Limiter
	AdminAuthSecret    string
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	HealthChecks       []HealthCheck
	FormSettings       *FormSettings
}

// FormSettings is what browser forms need to render and time the quote flow.
type FormSettings struct {
	RecaptchaSiteKey     string
	SubmittedDisplay     time.Duration
	SuccessCallbackDelay time.Duration
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/api", func(api chi.Router) {
			api.Get("/catalog/scopes", catalog.ScopesHandler)
			api.Get("/catalog/services", catalog.ServicesHandler)
			if cfg.FormSettings != nil {
				api.Get("/quote-form/settings", formSettingsHandler(*cfg.FormSettings))
			}
			if cfg.LeadsHandler != nil {
				quotes := api.With()
				if cfg.QuoteLimiter != nil {
					quotes = api.With(httpmiddleware.RateLimit(cfg.QuoteLimiter))
				}
				quotes.Post("/quotes", cfg.LeadsHandler.CreateQuote)
			}
		})
	})

	if cfg.AdminAuthSecret != "" && cfg.LeadsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/leads", cfg.LeadsHandler.ListLeads)
			admin.Get("/leads/{id}", cfg.LeadsHandler.GetLead)
		})
	}

	return r
}

func healthHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := map[string]string{"status": "ok"}
		code := http.StatusOK
		for _, hc := range checks {
			if err := hc.Check(ctx); err != nil {
				resp[hc.Name] = err.Error()
				resp["status"] = "degraded"
				code = http.StatusServiceUnavailable
				continue
			}
			resp[hc.Name] = "ok"
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func formSettingsHandler(fs FormSettings) http.HandlerFunc {
	if fs.SubmittedDisplay <= 0 {
		fs.SubmittedDisplay = quote.DefaultSubmittedDisplay
	}
	if fs.SuccessCallbackDelay <= 0 {
		fs.SuccessCallbackDelay = quote.DefaultSuccessCallbackDelay
	}
	body := map[string]any{
		"recaptchaSiteKey":       fs.RecaptchaSiteKey,
		"recaptchaAction":        recaptcha.ActionSubmitForm,
		"submittedDisplayMs":     fs.SubmittedDisplay.Milliseconds(),
		"successCallbackDelayMs": fs.SuccessCallbackDelay.Milliseconds(),
		"modalDescription":       modal.DialogDescription,
		"modalTitle":             modal.DefaultTitle,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "public, max-age=300")
		_ = json.NewEncoder(w).Encode(body)
	}
}
