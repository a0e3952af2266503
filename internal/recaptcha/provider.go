// Package recaptcha models the anti-abuse token capability consumed by quote
// forms and verifies tokens server side. Acquisition is fail-open: any problem
// yields an empty token rather than an error.
package recaptcha

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/westek-leads/pkg/logging"
)

// ActionSubmitForm is the action name every quote form executes.
const ActionSubmitForm = "SUBMIT_FORM"

// DefaultTimeout bounds Ready plus Execute when the caller passes zero.
const DefaultTimeout = 3 * time.Second

var (
	// ErrUnavailable is reported when the capability is not loaded.
	ErrUnavailable = errors.New("recaptcha: provider unavailable")

	// ErrEmptyToken is reported when the provider resolves with no token.
	ErrEmptyToken = errors.New("recaptcha: provider returned empty token")
)

// ExecuteOptions carries the per-call parameters of Execute.
type ExecuteOptions struct {
	Action string
}

// Provider is the token capability. Ready blocks until initialization finishes.
type Provider interface {
	Ready(ctx context.Context) error
	Execute(ctx context.Context, siteKey string, opts ExecuteOptions) (string, error)
}

// Capability is an optional Provider: either loaded in the current runtime or not.
type Capability struct {
	provider Provider
}

// Available wraps a loaded provider. A nil provider is treated as unavailable.
func Available(p Provider) Capability {
	return Capability{provider: p}
}

// Unavailable is the capability of a runtime where the provider never loaded.
func Unavailable() Capability {
	return Capability{}
}

// IsAvailable reports whether a provider is present.
func (c Capability) IsAvailable() bool {
	return c.provider != nil
}

// Outcome describes a token acquisition attempt.
type Outcome struct {
	Token string
	Err   error
}

// Status is a short label for metrics: "ok", "unavailable", "timeout" or "error".
func (o Outcome) Status() string {
	switch {
	case o.Err == nil:
		return "ok"
	case errors.Is(o.Err, ErrUnavailable):
		return "unavailable"
	case errors.Is(o.Err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// Acquire obtains a token for action. It never fails: every error path returns
// an empty token with the cause recorded in Outcome.Err and logged at warn.
func Acquire(ctx context.Context, c Capability, siteKey, action string, timeout time.Duration, logger *logging.Logger) Outcome {
	if logger == nil {
		logger = logging.Default()
	}
	if !c.IsAvailable() {
		logger.Debug("recaptcha: provider not loaded, submitting without token")
		return Outcome{Err: ErrUnavailable}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	token, err := acquire(ctx, c.provider, siteKey, action)
	if err != nil {
		logger.Warn("recaptcha: token acquisition failed", "action", action, "error", err)
		return Outcome{Err: err}
	}
	return Outcome{Token: token}
}

// acquire runs the provider on its own goroutine so a provider that ignores ctx
// cannot hold the submission past the deadline.
func acquire(ctx context.Context, p Provider, siteKey, action string) (string, error) {
	type result struct {
		token string
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("recaptcha: provider panic: %v", r)}
			}
		}()
		if err := p.Ready(ctx); err != nil {
			done <- result{err: fmt.Errorf("recaptcha: ready: %w", err)}
			return
		}
		token, err := p.Execute(ctx, siteKey, ExecuteOptions{Action: action})
		if err != nil {
			done <- result{err: fmt.Errorf("recaptcha: execute: %w", err)}
			return
		}
		if token == "" {
			done <- result{err: ErrEmptyToken}
			return
		}
		done <- result{token: token}
	}()

	select {
	case r := <-done:
		return r.token, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("recaptcha: %w", ctx.Err())
	}
}

// ProviderFunc adapts a plain function into a Provider that is always ready.
type ProviderFunc func(ctx context.Context, siteKey string, opts ExecuteOptions) (string, error)

// Ready implements Provider.
func (f ProviderFunc) Ready(ctx context.Context) error { return ctx.Err() }

// Execute implements Provider.
func (f ProviderFunc) Execute(ctx context.Context, siteKey string, opts ExecuteOptions) (string, error) {
	return f(ctx, siteKey, opts)
}

type staticProvider string

func (s staticProvider) Ready(context.Context) error { return nil }

func (s staticProvider) Execute(context.Context, string, ExecuteOptions) (string, error) {
	return string(s), nil
}

// Static returns the capability for a token the browser already executed. An
// empty token means the browser had no provider, so the capability is unavailable.
func Static(token string) Capability {
	if token == "" {
		return Unavailable()
	}
	return Available(staticProvider(token))
}
