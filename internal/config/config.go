package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// FinancingWebhookURL is the lead connector hook the financing page posts to.
	FinancingWebhookURL = "https://services.leadconnectorhq.com/hooks/cTWvxYzUkVhbvkctrFto/webhook-trigger/1cfa2fb9-7202-4cd7-9a01-017afb98b6b6"

	financingSource = "Financing Page Quote Form"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Lead webhook delivery
	LeadWebhookURL     string
	LeadWebhookRoutes  map[string]string
	LeadWebhookTimeout time.Duration

	// Anti-abuse tokens
	RecaptchaSiteKey   string
	RecaptchaSecretKey string
	RecaptchaMinScore  float64

	// Quote form timing
	QuoteSubmittedDisplay     time.Duration
	QuoteSuccessCallbackDelay time.Duration

	CORSAllowedOrigins []string
	RateLimitPerMinute int
	AdminJWTSecret     string

	// Email notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	LeadNotifyEmail   string
	SESConfigSet      string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	LeadArchiveBucket   string
}

// Load reads configuration from environment variables
func Load() *Config {
	routes := parseRoutes(getEnv("LEAD_WEBHOOK_ROUTES", ""))
	if _, ok := routes[financingSource]; !ok {
		routes[financingSource] = FinancingWebhookURL
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LeadWebhookURL:     getEnv("LEAD_WEBHOOK_URL", FinancingWebhookURL),
		LeadWebhookRoutes:  routes,
		LeadWebhookTimeout: getEnvAsDuration("LEAD_WEBHOOK_TIMEOUT", 10*time.Second),

		RecaptchaSiteKey:   getEnv("RECAPTCHA_SITE_KEY", ""),
		RecaptchaSecretKey: getEnv("RECAPTCHA_SECRET_KEY", ""),
		RecaptchaMinScore:  getEnvAsFloat("RECAPTCHA_MIN_SCORE", 0.5),

		QuoteSubmittedDisplay:     getEnvAsDuration("QUOTE_SUBMITTED_DISPLAY", 5*time.Second),
		QuoteSuccessCallbackDelay: getEnvAsDuration("QUOTE_SUCCESS_CALLBACK_DELAY", 2*time.Second),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "")),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 10),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Westek Electric Corp."),
		LeadNotifyEmail:   getEnv("LEAD_NOTIFY_EMAIL", "westekelectriccompany@gmail.com"),
		SESConfigSet:      getEnv("SES_CONFIGURATION_SET", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		LeadArchiveBucket:   getEnv("LEAD_ARCHIVE_BUCKET", ""),
	}
}

// parseRoutes reads "source=url;source=url" pairs. Malformed pairs are skipped.
func parseRoutes(raw string) map[string]string {
	routes := make(map[string]string)
	for _, pair := range strings.Split(raw, ";") {
		source, url, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		source = strings.TrimSpace(source)
		url = strings.TrimSpace(url)
		if source == "" || url == "" {
			continue
		}
		routes[source] = url
	}
	return routes
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
