// Package modal hosts the site-wide quote dialog. Pages open it with optional
// pre-selection and the host hands the options to a fresh quote form.
package modal

import (
	"sync"
	"time"

	"github.com/wolfman30/westek-leads/internal/catalog"
	"github.com/wolfman30/westek-leads/internal/quote"
)

// ResetDelay is how long Close waits before dropping the open options.
const ResetDelay = 300 * time.Millisecond

// Dialog copy shown when no service title is set.
const (
	DefaultTitle      = "Request a Free Quote"
	DialogDescription = "Fill out the form below and our team will get back to you within 24 hours."
)

// OpenOptions pre-selects the form shown in the dialog.
type OpenOptions struct {
	ProjectScope catalog.Scope
	Services     []string
	ServiceTitle string
}

// Host tracks whether the dialog is open and with which options.
type Host struct {
	scheduler quote.Scheduler

	mu         sync.Mutex
	open       bool
	opts       OpenOptions
	generation int
	reset      quote.Timer
}

// NewHost returns a closed host. A nil scheduler uses real timers.
func NewHost(s quote.Scheduler) *Host {
	if s == nil {
		s = quote.RealScheduler{}
	}
	return &Host{scheduler: s}
}

// Open shows the dialog with opts, replacing any previous options.
func (h *Host) Open(opts OpenOptions) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.generation++
	if h.reset != nil {
		h.reset.Stop()
		h.reset = nil
	}
	opts.Services = append([]string(nil), opts.Services...)
	h.opts = opts
	h.open = true
}

// Close hides the dialog. Options are cleared after ResetDelay unless the
// dialog is reopened first.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.open {
		return
	}
	h.open = false
	gen := h.generation
	h.reset = h.scheduler.AfterFunc(ResetDelay, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.generation != gen || h.open {
			return
		}
		h.opts = OpenOptions{}
		h.reset = nil
	})
}

// IsOpen reports whether the dialog is shown.
func (h *Host) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// Options returns the current open options.
func (h *Host) Options() OpenOptions {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := h.opts
	out.Services = append([]string(nil), h.opts.Services...)
	return out
}

// Title is the dialog heading.
func (h *Host) Title() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.opts.ServiceTitle != "" {
		return "Request Quote: " + h.opts.ServiceTitle
	}
	return DefaultTitle
}

// Description is the dialog subheading.
func (h *Host) Description() string { return DialogDescription }

// NewForm builds the form rendered inside the dialog. The current options seed
// the form and a successful submission closes the dialog after the callback
// in base, if any, has run.
func (h *Host) NewForm(base quote.Options) *quote.Form {
	opts := h.Options()
	base.InitialProjectScope = opts.ProjectScope
	base.InitialServices = opts.Services
	if base.Source == "" {
		base.Source = quote.SourceModal
	}
	if base.Scheduler == nil {
		base.Scheduler = h.scheduler
	}
	next := base.OnSuccess
	base.OnSuccess = func() {
		if next != nil {
			next()
		}
		h.Close()
	}
	return quote.NewForm(base)
}
