// Package quote implements the lead-capture form: field state, the scope-dependent
// service picker, validation, and the submission pipeline that acquires an
// anti-abuse token and posts the lead to a webhook.
//
// Submission is fail-open. Token problems and delivery failures are logged but
// the form always lands in Submitted, clears itself, and resets to Idle after
// the display duration.
package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/westek-leads/internal/catalog"
	"github.com/wolfman30/westek-leads/internal/observability/metrics"
	"github.com/wolfman30/westek-leads/internal/recaptcha"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

var tracer = otel.Tracer("westek/quote")

// Form sources used across the site.
const (
	SourceWebsite   = "Website Quote Form"
	SourceContact   = "Contact Page Quote Form"
	SourceServices  = "Services Page Quote Form"
	SourceFinancing = "Financing Page Quote Form"
	SourceModal     = "Quote Modal"
)

// KnownSource reports whether s is one of the site's form sources.
func KnownSource(s string) bool {
	switch s {
	case SourceWebsite, SourceContact, SourceServices, SourceFinancing, SourceModal:
		return true
	}
	return false
}

const (
	DefaultSuccessCallbackDelay = 2 * time.Second
	DefaultSubmittedDisplay     = 5 * time.Second
	DefaultSubmitTimeout        = 10 * time.Second
)

// State is the UI state of a form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSubmitted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StateSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Submitter delivers a lead to its endpoint.
type Submitter interface {
	Submit(ctx context.Context, req *LeadRequest) error
}

// SubmitterFunc adapts a function into a Submitter.
type SubmitterFunc func(ctx context.Context, req *LeadRequest) error

// Submit implements Submitter.
func (f SubmitterFunc) Submit(ctx context.Context, req *LeadRequest) error { return f(ctx, req) }

// Options configures a Form. Zero durations take the package defaults.
type Options struct {
	Source              string
	InitialProjectScope catalog.Scope
	InitialServices     []string
	OnSuccess           func()

	Tokens    recaptcha.Capability
	SiteKey   string
	Submitter Submitter
	Scheduler Scheduler
	Now       func() time.Time
	Logger    *logging.Logger
	Metrics   *metrics.LeadMetrics

	SuccessCallbackDelay time.Duration
	SubmittedDisplay     time.Duration
	TokenTimeout         time.Duration
	SubmitTimeout        time.Duration
}

// Result describes a submission that passed validation.
type Result struct {
	Payload     *LeadRequest
	Token       recaptcha.Outcome
	DeliveryErr error
}

// Delivered reports whether the webhook accepted the lead.
func (r *Result) Delivered() bool {
	return r != nil && r.DeliveryErr == nil
}

// Form owns the state of one rendered quote form. It is safe for concurrent
// use; scheduled callbacks run on scheduler goroutines.
type Form struct {
	source          string
	initialScope    catalog.Scope
	initialServices []string
	onSuccess       func()

	tokens       recaptcha.Capability
	siteKey      string
	submitter    Submitter
	scheduler    Scheduler
	now          func() time.Time
	logger       *logging.Logger
	metrics      *metrics.LeadMetrics
	callbackWait time.Duration
	display      time.Duration
	tokenTimeout time.Duration
	postTimeout  time.Duration

	mu         sync.Mutex
	state      State
	fields     Fields
	errors     map[Field]string
	closed     bool
	generation int
	timers     []Timer
}

// NewForm creates a form in the Idle state, pre-seeded with the initial scope
// and services.
func NewForm(opts Options) *Form {
	if opts.Source == "" {
		opts.Source = SourceWebsite
	}
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.SuccessCallbackDelay <= 0 {
		opts.SuccessCallbackDelay = DefaultSuccessCallbackDelay
	}
	if opts.SubmittedDisplay <= 0 {
		opts.SubmittedDisplay = DefaultSubmittedDisplay
	}
	if opts.TokenTimeout <= 0 {
		opts.TokenTimeout = recaptcha.DefaultTimeout
	}
	if opts.SubmitTimeout <= 0 {
		opts.SubmitTimeout = DefaultSubmitTimeout
	}

	f := &Form{
		source:          opts.Source,
		initialScope:    opts.InitialProjectScope,
		initialServices: dedupe(opts.InitialServices),
		onSuccess:       opts.OnSuccess,
		tokens:          opts.Tokens,
		siteKey:         opts.SiteKey,
		submitter:       opts.Submitter,
		scheduler:       opts.Scheduler,
		now:             opts.Now,
		logger:          opts.Logger.With("form_source", opts.Source),
		metrics:         opts.Metrics,
		callbackWait:    opts.SuccessCallbackDelay,
		display:         opts.SubmittedDisplay,
		tokenTimeout:    opts.TokenTimeout,
		postTimeout:     opts.SubmitTimeout,
	}
	f.fields.ProjectScope = f.initialScope
	f.fields.Services = seededServices(f.initialScope, f.initialServices)
	return f
}

// Source returns the form's source label.
func (f *Form) Source() string { return f.source }

// State returns the current UI state.
func (f *Form) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Fields returns a copy of the current field values.
func (f *Form) Fields() Fields {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fields.clone()
}

// Selected returns the selected service ids in selection order.
func (f *Form) Selected() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fields.Services...)
}

// Errors returns the field errors of the last rejected submit.
func (f *Form) Errors() map[Field]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[Field]string, len(f.errors))
	for k, v := range f.errors {
		out[k] = v
	}
	return out
}

// Available returns the service options of the current scope.
func (f *Form) Available() []catalog.ServiceOption {
	f.mu.Lock()
	scope := f.fields.ProjectScope
	f.mu.Unlock()
	return catalog.Options(scope)
}

// SelectedLabels returns the labels of the selection. Ids the current scope
// does not offer are skipped.
func (f *Form) SelectedLabels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return labels(f.fields.ProjectScope, f.fields.Services)
}

// SetField edits one of the free-text fields.
func (f *Form) SetField(field Field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	switch field {
	case FieldName:
		f.fields.Name = value
	case FieldEmail:
		f.fields.Email = value
	case FieldPhone:
		f.fields.Phone = value
	case FieldMessage:
		f.fields.Message = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	return nil
}

// SetProjectScope changes the scope. Moving to a different scope clears the
// selection, except that returning to the seeded initial scope restores the
// seeded services.
func (f *Form) SetProjectScope(scope catalog.Scope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	if scope == f.fields.ProjectScope {
		return nil
	}
	f.fields.ProjectScope = scope
	if f.initialScope != "" && scope == f.initialScope {
		f.fields.Services = seededServices(scope, f.initialServices)
		return nil
	}
	f.fields.Services = nil
	return nil
}

// ToggleService adds id to the selection if absent and removes it otherwise.
// A scope must be chosen first. The id is not checked against the catalog.
func (f *Form) ToggleService(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	if f.fields.ProjectScope == "" {
		return ErrScopeRequired
	}
	for i, existing := range f.fields.Services {
		if existing == id {
			f.fields.Services = append(f.fields.Services[:i:i], f.fields.Services[i+1:]...)
			return nil
		}
	}
	f.fields.Services = append(f.fields.Services, id)
	return nil
}

// RemoveService drops id from the selection.
func (f *Form) RemoveService(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.editableLocked(); err != nil {
		return err
	}
	f.fields.Services = without(f.fields.Services, id)
	return nil
}

// Fill applies a whole set of raw values the way a user would enter them:
// text fields, then the scope, then each service toggled on once.
func (f *Form) Fill(values Fields) error {
	for field, v := range map[Field]string{
		FieldName:    values.Name,
		FieldEmail:   values.Email,
		FieldPhone:   values.Phone,
		FieldMessage: values.Message,
	} {
		if err := f.SetField(field, v); err != nil {
			return err
		}
	}
	if err := f.SetProjectScope(values.ProjectScope); err != nil {
		return err
	}
	if values.ProjectScope == "" {
		return nil
	}
	selected := make(map[string]bool)
	for _, id := range f.Selected() {
		selected[id] = true
	}
	for _, id := range dedupe(values.Services) {
		if selected[id] {
			continue
		}
		if err := f.ToggleService(id); err != nil {
			return err
		}
	}
	return nil
}

// Submit validates and, when valid, sends the lead. Validation failures return
// a *ValidationError and leave the form Idle with no network activity. A valid
// submission always returns a Result and a nil error, even if the token or the
// delivery failed.
func (f *Form) Submit(ctx context.Context) (*Result, error) {
	ctx, span := tracer.Start(ctx, "quote.submit")
	defer span.End()
	span.SetAttributes(attribute.String("form.source", f.source))

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrFormClosed
	}
	switch f.state {
	case StateSubmitting:
		f.mu.Unlock()
		return nil, ErrSubmitInProgress
	case StateSubmitted:
		f.mu.Unlock()
		return nil, ErrFormLocked
	}

	res := Validate(f.fields)
	if !res.Valid {
		f.errors = res.Errors
		f.mu.Unlock()
		for field := range res.Errors {
			f.metrics.ObserveValidationFailure(string(field))
		}
		f.metrics.ObserveSubmission(f.source, "invalid")
		span.SetAttributes(attribute.Int("validation.errors", len(res.Errors)))
		return nil, &ValidationError{Errors: copyErrors(res.Errors)}
	}
	f.errors = nil
	f.state = StateSubmitting
	snapshot := f.fields.clone()
	f.mu.Unlock()

	token := recaptcha.Acquire(ctx, f.tokens, f.siteKey, recaptcha.ActionSubmitForm, f.tokenTimeout, f.logger)
	f.metrics.ObserveToken(token.Status())

	payload := newLeadRequest(snapshot, f.source, token.Token, f.now())
	deliveryErr := f.deliver(ctx, payload)

	outcome := "delivered"
	if deliveryErr != nil {
		outcome = "delivery_failed"
		span.RecordError(deliveryErr)
		span.SetStatus(codes.Error, "lead delivery failed")
		f.logger.Error("quote: lead delivery failed, showing confirmation anyway",
			"error", deliveryErr,
			"project_scope", payload.ProjectScope,
			"service_count", len(payload.Services),
		)
	} else {
		f.logger.Info("quote: lead delivered",
			"project_scope", payload.ProjectScope,
			"service_count", len(payload.Services),
			"has_token", payload.RecaptchaToken != "",
		)
	}
	f.metrics.ObserveSubmission(f.source, outcome)
	span.SetAttributes(
		attribute.String("lead.outcome", outcome),
		attribute.String("recaptcha.status", token.Status()),
	)

	f.finish()
	return &Result{Payload: payload, Token: token, DeliveryErr: deliveryErr}, nil
}

func (f *Form) deliver(ctx context.Context, payload *LeadRequest) (err error) {
	if f.submitter == nil {
		return ErrNoSubmitter
	}
	ctx, cancel := context.WithTimeout(ctx, f.postTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quote: submitter panic: %v", r)
		}
	}()
	return f.submitter.Submit(ctx, payload)
}

// finish moves the form to Submitted and schedules the success callback and
// the reset. A form closed mid-submission is left untouched.
func (f *Form) finish() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.state = StateSubmitted
	f.fields = Fields{}
	f.errors = nil
	f.generation++
	gen := f.generation

	if f.onSuccess != nil {
		cb := f.onSuccess
		f.timers = append(f.timers, f.scheduler.AfterFunc(f.callbackWait, func() {
			f.mu.Lock()
			live := !f.closed
			f.mu.Unlock()
			if live {
				cb()
			}
		}))
	}
	f.timers = append(f.timers, f.scheduler.AfterFunc(f.display, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if f.closed || f.generation != gen || f.state != StateSubmitted {
			return
		}
		f.state = StateIdle
	}))
}

// Close releases the form. Pending timers are stopped and late callbacks are
// ignored. Further edits and submits fail with ErrFormClosed.
func (f *Form) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for _, t := range f.timers {
		t.Stop()
	}
	f.timers = nil
}

func (f *Form) editableLocked() error {
	if f.closed {
		return ErrFormClosed
	}
	if f.state != StateIdle {
		return ErrFormLocked
	}
	return nil
}

// seededServices applies the stale-id policy to externally seeded services.
//
// Stale ids are dropped: only ids the scope offers are kept, so a seeded id
// from another scope never lingers in the selection.
func seededServices(scope catalog.Scope, ids []string) []string {
	if scope == "" {
		return nil
	}
	var out []string
	for _, id := range ids {
		if catalog.Contains(scope, id) {
			out = append(out, id)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	var out []string
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func copyErrors(in map[Field]string) map[Field]string {
	out := make(map[Field]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
