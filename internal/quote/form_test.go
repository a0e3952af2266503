package quote

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/westek-leads/internal/catalog"
	"github.com/wolfman30/westek-leads/internal/recaptcha"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

var fixedNow = time.Date(2024, 12, 10, 17, 30, 0, 250_000_000, time.UTC)

type recordingSubmitter struct {
	mu    sync.Mutex
	calls []*LeadRequest
	err   error
}

func (r *recordingSubmitter) Submit(_ context.Context, req *LeadRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, req)
	return r.err
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type harness struct {
	form      *Form
	sched     *ManualScheduler
	submitter *recordingSubmitter
	successes *atomic.Int32
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	h := &harness{
		sched:     NewManualScheduler(),
		submitter: &recordingSubmitter{},
		successes: &atomic.Int32{},
	}
	opts := Options{
		Source:    SourceContact,
		Submitter: h.submitter,
		Scheduler: h.sched,
		Now:       func() time.Time { return fixedNow },
		Logger:    logging.New("error"),
		OnSuccess: func() { h.successes.Add(1) },
		SiteKey:   "site-key",
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.form = NewForm(opts)
	t.Cleanup(h.form.Close)
	return h
}

func fillScenarioA(t *testing.T, f *Form) {
	t.Helper()
	require.NoError(t, f.Fill(validFields()))
}

func TestSubmitScenarioA(t *testing.T) {
	h := newHarness(t, nil)
	fillScenarioA(t, h.form)

	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	require.True(t, res.Delivered())
	require.Equal(t, 1, h.submitter.count())

	sent := h.submitter.calls[0]
	assert.Equal(t, []string{"Installation - Ceiling Fan"}, sent.Services)
	assert.Equal(t, "Jo", sent.Name)
	assert.Equal(t, "residential", sent.ProjectScope)
	assert.Equal(t, SourceContact, sent.Source)
	assert.Equal(t, "2024-12-10T17:30:00.250Z", sent.Timestamp)
	assert.Equal(t, "", sent.RecaptchaToken)

	body, err := json.Marshal(sent)
	require.NoError(t, err)
	var keys map[string]any
	require.NoError(t, json.Unmarshal(body, &keys))
	for _, k := range []string{"name", "email", "phone", "projectScope", "services", "message", "source", "timestamp", "recaptchaToken"} {
		assert.Contains(t, keys, k)
	}
	assert.Len(t, keys, 9)

	ts, err := sent.Time()
	require.NoError(t, err)
	assert.True(t, ts.Equal(fixedNow))
}

func TestSubmitScenarioBNoNetwork(t *testing.T) {
	h := newHarness(t, nil)
	f := validFields()
	f.Name = ""
	require.NoError(t, h.form.Fill(f))

	res, err := h.form.Submit(context.Background())
	assert.Nil(t, res)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgName, verr.Errors[FieldName])
	assert.Equal(t, 0, h.submitter.count())
	assert.Equal(t, StateIdle, h.form.State())
	assert.Equal(t, MsgName, h.form.Errors()[FieldName])
	assert.Equal(t, "residential", string(h.form.Fields().ProjectScope), "fields kept for correction")
	assert.Equal(t, 0, h.sched.Pending())
}

func TestScopeChangeScenarioC(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.form.SetProjectScope(catalog.ScopeBusiness))
	require.NoError(t, h.form.ToggleService("transformers"))
	require.NoError(t, h.form.ToggleService("cat6-installation"))
	assert.Equal(t, []string{"transformers", "cat6-installation"}, h.form.Selected())

	require.NoError(t, h.form.SetProjectScope(catalog.ScopeResidential))
	assert.Empty(t, h.form.Selected())
}

func TestScopeChangeAlwaysClears(t *testing.T) {
	scopes := []catalog.Scope{catalog.ScopeResidential, catalog.ScopeBusiness, catalog.ScopeReconstruction, "", "garage"}
	for _, from := range scopes[:3] {
		for _, to := range scopes {
			if from == to {
				continue
			}
			h := newHarness(t, nil)
			require.NoError(t, h.form.SetProjectScope(from))
			require.NoError(t, h.form.ToggleService("code-consultation"))
			require.NoError(t, h.form.SetProjectScope(to))
			assert.Empty(t, h.form.Selected(), "%s -> %s", from, to)
		}
	}
}

func TestSameScopeKeepsSelection(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.form.SetProjectScope(catalog.ScopeBusiness))
	require.NoError(t, h.form.ToggleService("transformers"))
	require.NoError(t, h.form.SetProjectScope(catalog.ScopeBusiness))
	assert.Equal(t, []string{"transformers"}, h.form.Selected())
}

func TestInitialScopeRestoresSeededServices(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.InitialProjectScope = catalog.ScopeResidential
		o.InitialServices = []string{"ceiling-fan", "rewiring", "ceiling-fan"}
	})
	assert.Equal(t, []string{"ceiling-fan", "rewiring"}, h.form.Selected())

	require.NoError(t, h.form.SetProjectScope(catalog.ScopeBusiness))
	assert.Empty(t, h.form.Selected())

	require.NoError(t, h.form.SetProjectScope(catalog.ScopeResidential))
	assert.Equal(t, []string{"ceiling-fan", "rewiring"}, h.form.Selected())
}

func TestSeededStaleIDsAreFiltered(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.InitialProjectScope = catalog.ScopeResidential
		o.InitialServices = []string{"transformers", "ceiling-fan"}
	})
	assert.Equal(t, []string{"ceiling-fan"}, h.form.Selected())

	noScope := newHarness(t, func(o *Options) {
		o.InitialServices = []string{"ceiling-fan"}
	})
	assert.Empty(t, noScope.form.Selected())
}

func TestToggleAndRemove(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.form.ToggleService("ceiling-fan"), ErrScopeRequired)

	require.NoError(t, h.form.SetProjectScope(catalog.ScopeResidential))
	require.NoError(t, h.form.ToggleService("ceiling-fan"))
	require.NoError(t, h.form.ToggleService("rewiring"))
	require.NoError(t, h.form.ToggleService("ceiling-fan"))
	assert.Equal(t, []string{"rewiring"}, h.form.Selected())

	require.NoError(t, h.form.RemoveService("rewiring"))
	require.NoError(t, h.form.RemoveService("absent"))
	assert.Empty(t, h.form.Selected())
}

func TestStaleToggleIsUnlabeled(t *testing.T) {
	h := newHarness(t, nil)
	require.NoError(t, h.form.SetProjectScope(catalog.ScopeResidential))
	require.NoError(t, h.form.ToggleService("transformers"))
	require.NoError(t, h.form.ToggleService("ceiling-fan"))

	assert.Equal(t, []string{"transformers", "ceiling-fan"}, h.form.Selected())
	assert.Equal(t, []string{"Installation - Ceiling Fan"}, h.form.SelectedLabels())
	assert.Len(t, h.form.Available(), 21)
}

func TestSetFieldRejectsNonText(t *testing.T) {
	h := newHarness(t, nil)
	assert.ErrorIs(t, h.form.SetField(FieldServices, "x"), ErrUnknownField)
	require.NoError(t, h.form.SetField(FieldMessage, "Panel upgrade"))
	assert.Equal(t, "Panel upgrade", h.form.Fields().Message)
}

type failingProvider struct {
	readyErr error
	execErr  error
	block    bool
}

func (p failingProvider) Ready(ctx context.Context) error {
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.readyErr
}

func (p failingProvider) Execute(context.Context, string, recaptcha.ExecuteOptions) (string, error) {
	return "", p.execErr
}

func TestSubmitFailOpenToken(t *testing.T) {
	tests := []struct {
		name string
		cap  recaptcha.Capability
	}{
		{"absent", recaptcha.Unavailable()},
		{"ready fails", recaptcha.Available(failingProvider{readyErr: errors.New("init failed")})},
		{"execute throws", recaptcha.Available(failingProvider{execErr: errors.New("rejected")})},
		{"never ready", recaptcha.Available(failingProvider{block: true})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(o *Options) {
				o.Tokens = tt.cap
				o.TokenTimeout = 20 * time.Millisecond
			})
			fillScenarioA(t, h.form)

			res, err := h.form.Submit(context.Background())
			require.NoError(t, err)
			assert.Error(t, res.Token.Err)
			require.Equal(t, 1, h.submitter.count())
			assert.Equal(t, "", h.submitter.calls[0].RecaptchaToken)
			assert.Equal(t, StateSubmitted, h.form.State())
		})
	}
}

func TestSubmitAttachesToken(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.Tokens = recaptcha.Available(recaptcha.ProviderFunc(func(_ context.Context, key string, opts recaptcha.ExecuteOptions) (string, error) {
			if key != "site-key" || opts.Action != recaptcha.ActionSubmitForm {
				return "", errors.New("unexpected call")
			}
			return "tok-1", nil
		}))
	})
	fillScenarioA(t, h.form)

	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-1", res.Payload.RecaptchaToken)
	assert.Equal(t, "tok-1", h.submitter.calls[0].RecaptchaToken)
}

func TestSubmittedClearsAndResets(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.InitialProjectScope = catalog.ScopeResidential
		o.InitialServices = []string{"ceiling-fan"}
	})
	fillScenarioA(t, h.form)

	_, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSubmitted, h.form.State())
	assert.Equal(t, Fields{}, h.form.Fields())
	assert.Empty(t, h.form.Errors())

	assert.ErrorIs(t, h.form.SetField(FieldName, "x"), ErrFormLocked)
	assert.ErrorIs(t, h.form.SetProjectScope(catalog.ScopeBusiness), ErrFormLocked)
	assert.ErrorIs(t, h.form.ToggleService("ceiling-fan"), ErrFormLocked)
	assert.ErrorIs(t, h.form.RemoveService("ceiling-fan"), ErrFormLocked)
	_, err = h.form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrFormLocked)

	h.sched.Advance(2 * time.Second)
	assert.Equal(t, int32(1), h.successes.Load())
	assert.Equal(t, StateSubmitted, h.form.State())

	h.sched.Advance(3 * time.Second)
	assert.Equal(t, StateIdle, h.form.State())
	assert.Equal(t, Fields{}, h.form.Fields(), "fields are not restored after reset")

	h.sched.Advance(time.Minute)
	assert.Equal(t, int32(1), h.successes.Load())
	assert.Equal(t, 1, h.submitter.count())
}

func TestDeliveryFailureIsMasked(t *testing.T) {
	h := newHarness(t, nil)
	h.submitter.err = errors.New("webhook returned 500")
	fillScenarioA(t, h.form)

	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Delivered())
	assert.EqualError(t, res.DeliveryErr, "webhook returned 500")
	assert.Equal(t, StateSubmitted, h.form.State())
	assert.Equal(t, Fields{}, h.form.Fields())
	assert.Equal(t, 2, h.sched.Pending())
}

func TestNilSubmitterAndPanickingSubmitter(t *testing.T) {
	h := newHarness(t, func(o *Options) { o.Submitter = nil })
	fillScenarioA(t, h.form)
	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.DeliveryErr, ErrNoSubmitter)
	assert.Equal(t, StateSubmitted, h.form.State())

	p := newHarness(t, func(o *Options) {
		o.Submitter = SubmitterFunc(func(context.Context, *LeadRequest) error { panic("nil map") })
	})
	fillScenarioA(t, p.form)
	res, err = p.form.Submit(context.Background())
	require.NoError(t, err)
	assert.Error(t, res.DeliveryErr)
	assert.Equal(t, StateSubmitted, p.form.State())
}

func TestSubmitTimeoutFailsOpen(t *testing.T) {
	h := newHarness(t, func(o *Options) {
		o.SubmitTimeout = 20 * time.Millisecond
		o.Submitter = SubmitterFunc(func(ctx context.Context, _ *LeadRequest) error {
			<-ctx.Done()
			return ctx.Err()
		})
	})
	fillScenarioA(t, h.form)

	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, res.DeliveryErr, context.DeadlineExceeded)
	assert.Equal(t, StateSubmitted, h.form.State())
}

func TestSecondSubmitWhileSubmitting(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := newHarness(t, func(o *Options) {
		o.Submitter = SubmitterFunc(func(context.Context, *LeadRequest) error {
			close(entered)
			<-release
			return nil
		})
	})
	fillScenarioA(t, h.form)

	done := make(chan error, 1)
	go func() {
		_, err := h.form.Submit(context.Background())
		done <- err
	}()
	<-entered

	assert.Equal(t, StateSubmitting, h.form.State())
	_, err := h.form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrSubmitInProgress)
	assert.ErrorIs(t, h.form.SetField(FieldName, "x"), ErrFormLocked)

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, StateSubmitted, h.form.State())
}

func TestCloseStopsPendingCallbacks(t *testing.T) {
	h := newHarness(t, nil)
	fillScenarioA(t, h.form)
	_, err := h.form.Submit(context.Background())
	require.NoError(t, err)

	h.form.Close()
	assert.Equal(t, 0, h.sched.Pending())
	h.sched.Advance(10 * time.Second)
	assert.Equal(t, int32(0), h.successes.Load())
	assert.Equal(t, StateSubmitted, h.form.State())

	assert.ErrorIs(t, h.form.SetField(FieldName, "x"), ErrFormClosed)
	_, err = h.form.Submit(context.Background())
	assert.ErrorIs(t, err, ErrFormClosed)
	h.form.Close()
}

func TestCloseMidSubmission(t *testing.T) {
	var h *harness
	h = newHarness(t, func(o *Options) {
		o.Submitter = SubmitterFunc(func(context.Context, *LeadRequest) error {
			h.form.Close()
			return nil
		})
	})
	fillScenarioA(t, h.form)

	res, err := h.form.Submit(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Delivered())
	assert.Equal(t, 0, h.sched.Pending())
	h.sched.Advance(10 * time.Second)
	assert.Equal(t, int32(0), h.successes.Load())
}

func TestRealSchedulerResets(t *testing.T) {
	form := NewForm(Options{
		Submitter:        &recordingSubmitter{},
		Logger:           logging.New("error"),
		SubmittedDisplay: 10 * time.Millisecond,
	})
	defer form.Close()
	require.NoError(t, form.Fill(validFields()))
	_, err := form.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceWebsite, form.Source())

	assert.Eventually(t, func() bool { return form.State() == StateIdle }, time.Second, 5*time.Millisecond)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "submitting", StateSubmitting.String())
	assert.Equal(t, "submitted", StateSubmitted.String())
	assert.Equal(t, "state(9)", State(9).String())
}

func TestKnownSource(t *testing.T) {
	assert.True(t, KnownSource(SourceFinancing))
	assert.False(t, KnownSource("Landing Page"))
}
