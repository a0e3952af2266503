package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/westek-leads/internal/catalog"
	"github.com/wolfman30/westek-leads/internal/observability/metrics"
	"github.com/wolfman30/westek-leads/internal/quote"
	"github.com/wolfman30/westek-leads/internal/recaptcha"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

// Notifier tells the office about a new lead.
type Notifier interface {
	NotifyLead(ctx context.Context, lead *Lead) error
}

// Archiver keeps a durable copy of a lead.
type Archiver interface {
	ArchiveLead(ctx context.Context, lead *Lead) error
}

// TokenVerifier scores an anti-abuse token server side.
type TokenVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (*recaptcha.Verification, error)
}

// ServiceConfig wires a Service. Only Submitter is required for delivery; the
// other collaborators are optional and best effort.
type ServiceConfig struct {
	Repo      Repository
	Submitter quote.Submitter
	Notifier  Notifier
	Archiver  Archiver
	Verifier  TokenVerifier
	MinScore  float64
	Logger    *logging.Logger
	Metrics   *metrics.LeadMetrics

	SubmitTimeout time.Duration
	Now           func() time.Time
}

// Service captures quote requests submitted over HTTP.
type Service struct {
	cfg    ServiceConfig
	logger *logging.Logger
	newID  func() string
}

// NewService builds the intake service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Service{
		cfg:    cfg,
		logger: cfg.Logger,
		newID:  func() string { return uuid.New().String() },
	}
}

// Capture runs req through a quote form exactly as the browser would and then
// records the lead. Validation failures return *quote.ValidationError. Once the
// form accepts the lead, persistence, archive and notification failures are
// logged and the lead is still returned.
func (s *Service) Capture(ctx context.Context, req CreateQuoteRequest, remoteIP string) (*Lead, error) {
	source := req.Source
	if !quote.KnownSource(source) {
		source = quote.SourceWebsite
	}

	form := quote.NewForm(quote.Options{
		Source:        source,
		Tokens:        recaptcha.Static(req.RecaptchaToken),
		Submitter:     s.cfg.Submitter,
		Now:           s.cfg.Now,
		Logger:        s.logger,
		Metrics:       s.cfg.Metrics,
		SubmitTimeout: s.cfg.SubmitTimeout,
	})
	defer form.Close()

	scope := catalog.Scope(req.ProjectScope)
	if err := form.Fill(quote.Fields{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		ProjectScope: scope,
		Services:     offeredServices(scope, req.Services),
		Message:      req.Message,
	}); err != nil {
		return nil, err
	}

	res, err := form.Submit(ctx)
	if err != nil {
		return nil, err
	}

	createdAt, err := res.Payload.Time()
	if err != nil {
		createdAt = s.cfg.Now().UTC()
	}
	create := &CreateLeadRequest{
		ID:             s.newID(),
		Name:           res.Payload.Name,
		Email:          res.Payload.Email,
		Phone:          res.Payload.Phone,
		ProjectScope:   res.Payload.ProjectScope,
		Services:       res.Payload.Services,
		Message:        res.Payload.Message,
		Source:         res.Payload.Source,
		RecaptchaScore: s.verify(ctx, req.RecaptchaToken, remoteIP),
		Delivered:      res.Delivered(),
		CreatedAt:      createdAt,
	}

	lead := create.lead(create.ID, create.CreatedAt)
	if s.cfg.Repo != nil {
		stored, err := s.cfg.Repo.Create(ctx, create)
		if err != nil {
			s.logger.Error("leads: failed to persist lead", "error", err, "lead_id", create.ID)
		} else {
			lead = stored
		}
	}

	if s.cfg.Archiver != nil {
		if err := s.cfg.Archiver.ArchiveLead(ctx, lead); err != nil {
			s.logger.Warn("leads: failed to archive lead", "error", err, "lead_id", lead.ID)
		}
	}
	if s.cfg.Notifier != nil {
		if err := s.cfg.Notifier.NotifyLead(ctx, lead); err != nil {
			s.logger.Warn("leads: failed to notify", "error", err, "lead_id", lead.ID)
		}
	}

	s.logger.Info("lead captured",
		"lead_id", lead.ID,
		"source", lead.Source,
		"project_scope", lead.ProjectScope,
		"delivered", lead.Delivered,
	)
	return lead, nil
}

// Get returns one stored lead.
func (s *Service) Get(ctx context.Context, id string) (*Lead, error) {
	if s.cfg.Repo == nil {
		return nil, ErrLeadNotFound
	}
	return s.cfg.Repo.GetByID(ctx, id)
}

// List returns stored leads.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	if s.cfg.Repo == nil {
		return []*Lead{}, nil
	}
	return s.cfg.Repo.List(ctx, filter)
}

func (s *Service) verify(ctx context.Context, token, remoteIP string) *float64 {
	if s.cfg.Verifier == nil {
		return nil
	}
	if token == "" {
		s.cfg.Metrics.ObserveVerification("skipped")
		return nil
	}
	v, err := s.cfg.Verifier.Verify(ctx, token, remoteIP)
	if err != nil {
		s.cfg.Metrics.ObserveVerification("error")
		s.logger.Warn("leads: token verification failed", "error", err)
		return nil
	}
	result := "failed"
	if v.Passed(recaptcha.ActionSubmitForm, s.cfg.MinScore) {
		result = "passed"
	}
	s.cfg.Metrics.ObserveVerification(result)
	score := v.Score
	return &score
}

// offeredServices keeps the ids scope offers. HTTP clients have no rendered
// picker, so unknown ids are dropped here and a request naming none of the
// scope's services fails validation on the services field.
func offeredServices(scope catalog.Scope, ids []string) []string {
	var out []string
	for _, id := range ids {
		if catalog.Contains(scope, id) {
			out = append(out, id)
		}
	}
	return out
}

// IsValidation reports whether err came from form validation.
func IsValidation(err error) (*quote.ValidationError, bool) {
	var verr *quote.ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
