package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/westek-leads/internal/api/router"
	"github.com/wolfman30/westek-leads/internal/archive"
	appconfig "github.com/wolfman30/westek-leads/internal/config"
	httpmiddleware "github.com/wolfman30/westek-leads/internal/http/middleware"
	"github.com/wolfman30/westek-leads/internal/leads"
	"github.com/wolfman30/westek-leads/internal/notify"
	"github.com/wolfman30/westek-leads/internal/observability/metrics"
	"github.com/wolfman30/westek-leads/internal/recaptcha"
	"github.com/wolfman30/westek-leads/internal/webhook"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

// Runtime holds the shared lead intake graph used by cmd/api and cmd/quote-lambda.
type Runtime struct {
	Config  *appconfig.Config
	Logger  *logging.Logger
	Metrics *metrics.LeadMetrics
	Pool    *pgxpool.Pool
	Redis   *redis.Client
	Service *leads.Service
	Handler *leads.Handler
	Limiter httpmiddleware.Limiter
}

// Build wires the intake service. Optional backends (Postgres, Redis, S3, email)
// are skipped when unconfigured; a database that is configured but unreachable
// is an error.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	rt := &Runtime{
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics.NewLeadMetrics(reg),
	}

	pool, err := BuildPostgresPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	rt.Pool = pool
	var repo leads.Repository
	if pool != nil {
		repo = leads.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set; leads kept in memory")
		repo = leads.NewInMemoryRepository()
	}

	rt.Redis = BuildRedisClient(ctx, cfg, logger, true)
	rt.Limiter = buildLimiter(cfg, rt.Redis, logger)

	var awsCfg *aws.Config
	if needsAWS(cfg) {
		loaded, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	svcCfg := leads.ServiceConfig{
		Repo:      repo,
		Submitter: BuildWebhookRouter(cfg, logger, rt.Metrics),
		MinScore:  cfg.RecaptchaMinScore,
		Logger:    logger,
		Metrics:   rt.Metrics,
	}
	if n := notify.NewLeadNotifier(BuildEmailSender(cfg, awsCfg, logger), cfg.LeadNotifyEmail, logger); n != nil {
		svcCfg.Notifier = n
	}
	if store := BuildArchiveStore(cfg, awsCfg, logger); store.Enabled() {
		svcCfg.Archiver = store
	}
	if v := recaptcha.NewVerifier(recaptcha.VerifierConfig{SecretKey: cfg.RecaptchaSecretKey}); v != nil {
		svcCfg.Verifier = v
	} else {
		logger.Info("RECAPTCHA_SECRET_KEY not set; token verification skipped")
	}

	rt.Service = leads.NewService(svcCfg)
	rt.Handler = leads.NewHandler(rt.Service, logger)
	return rt, nil
}

// BuildWebhookRouter routes each form source to its configured webhook URL.
func BuildWebhookRouter(cfg *appconfig.Config, logger *logging.Logger, m *metrics.LeadMetrics) *webhook.Router {
	return webhook.NewRouter(webhook.Config{
		URL:     cfg.LeadWebhookURL,
		Timeout: cfg.LeadWebhookTimeout,
		Logger:  logger,
		Metrics: m,
	}, cfg.LeadWebhookRoutes)
}

// BuildEmailSender picks the notification transport from EMAIL_PROVIDER.
// Misconfigured providers fall back to the stub sender.
func BuildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	switch cfg.EmailProvider {
	case "sendgrid":
		if strings.TrimSpace(cfg.SendGridAPIKey) != "" && strings.TrimSpace(cfg.SendGridFromEmail) != "" {
			return notify.NewSendGridSender(notify.SendGridConfig{
				APIKey:    cfg.SendGridAPIKey,
				FromEmail: cfg.SendGridFromEmail,
				FromName:  cfg.SendGridFromName,
			}, logger)
		}
		logger.Warn("sendgrid selected but not configured; using stub email sender")
	case "ses":
		if awsCfg != nil && strings.TrimSpace(cfg.SendGridFromEmail) != "" {
			return notify.NewSESSender(NewSESClient(*awsCfg, cfg), notify.SESConfig{
				FromEmail:        cfg.SendGridFromEmail,
				FromName:         cfg.SendGridFromName,
				ConfigurationSet: cfg.SESConfigSet,
			}, logger)
		}
		logger.Warn("ses selected but not configured; using stub email sender")
	}
	return notify.NewStubEmailSender(logger)
}

// BuildArchiveStore returns the S3 lead archive. The store is disabled when no
// bucket is configured.
func BuildArchiveStore(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) *archive.Store {
	if awsCfg == nil || strings.TrimSpace(cfg.LeadArchiveBucket) == "" {
		return archive.NewStore(nil, "", logger.Logger)
	}
	return archive.NewStore(NewS3Client(*awsCfg, cfg), cfg.LeadArchiveBucket, logger.Logger)
}

func buildLimiter(cfg *appconfig.Config, client *redis.Client, logger *logging.Logger) httpmiddleware.Limiter {
	if cfg.RateLimitPerMinute <= 0 {
		return nil
	}
	if client != nil {
		return httpmiddleware.NewRedisRateLimiter(client, cfg.RateLimitPerMinute, logger)
	}
	return httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute)
}

func needsAWS(cfg *appconfig.Config) bool {
	return cfg.EmailProvider == "ses" || strings.TrimSpace(cfg.LeadArchiveBucket) != ""
}

// HealthChecks reports reachability of the configured backends.
func (rt *Runtime) HealthChecks() []router.HealthCheck {
	var checks []router.HealthCheck
	if rt.Pool != nil {
		pool := rt.Pool
		checks = append(checks, router.HealthCheck{Name: "postgres", Check: pool.Ping})
	}
	if rt.Redis != nil {
		client := rt.Redis
		checks = append(checks, router.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}})
	}
	return checks
}

// Close releases backend connections.
func (rt *Runtime) Close() {
	if rt == nil {
		return
	}
	if rt.Pool != nil {
		rt.Pool.Close()
	}
	if rt.Redis != nil {
		_ = rt.Redis.Close()
	}
}
