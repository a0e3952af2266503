package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/westek-leads/internal/catalog"
	"github.com/wolfman30/westek-leads/internal/leads"
	"github.com/wolfman30/westek-leads/pkg/logging"
)

// LeadNotifier emails the office a summary of every captured lead.
type LeadNotifier struct {
	email    EmailSender
	to       string
	location *time.Location
	logger   *logging.Logger
}

// NewLeadNotifier returns nil when there is no sender or recipient, which
// callers treat as notifications disabled.
func NewLeadNotifier(email EmailSender, to string, logger *logging.Logger) *LeadNotifier {
	if email == nil || strings.TrimSpace(to) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	loc, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		loc = time.UTC
	}
	return &LeadNotifier{email: email, to: to, location: loc, logger: logger}
}

// NotifyLead sends the summary. Replies go to the customer when an email is known.
func (n *LeadNotifier) NotifyLead(ctx context.Context, lead *leads.Lead) error {
	if n == nil || lead == nil {
		return nil
	}

	msg := EmailMessage{
		To:      n.to,
		ReplyTo: strings.TrimSpace(lead.Email),
		Subject: leadSubject(lead),
		Body:    n.leadBody(lead),
		Tags:    leadTags(lead),
	}
	if err := n.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: lead email: %w", err)
	}
	n.logger.Debug("notify: lead email sent", "lead_id", lead.ID)
	return nil
}

func leadSubject(lead *leads.Lead) string {
	scope := scopeLabel(lead.ProjectScope)
	if scope == "" {
		return fmt.Sprintf("New quote request from %s", lead.Name)
	}
	return fmt.Sprintf("New %s quote request from %s", strings.ToLower(scope), lead.Name)
}

func (n *LeadNotifier) leadBody(lead *leads.Lead) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new quote request came in from the %s.\n\n", lead.Source)
	fmt.Fprintf(&b, "Name: %s\n", lead.Name)
	fmt.Fprintf(&b, "Email: %s\n", lead.Email)
	fmt.Fprintf(&b, "Phone: %s\n", lead.Phone)
	if scope := scopeLabel(lead.ProjectScope); scope != "" {
		fmt.Fprintf(&b, "Project: %s\n", scope)
	}
	if len(lead.Services) > 0 {
		b.WriteString("Services:\n")
		for _, s := range lead.Services {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	if msg := strings.TrimSpace(lead.Message); msg != "" {
		fmt.Fprintf(&b, "\nMessage:\n%s\n", msg)
	}
	if !lead.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "\nReceived: %s\n", lead.CreatedAt.In(n.location).Format("January 2, 2006 at 3:04 PM MST"))
	}
	if !lead.Delivered {
		b.WriteString("\nNote: this lead did not reach the CRM webhook. Please enter it manually.\n")
	}
	return b.String()
}

func scopeLabel(raw string) string {
	for _, s := range catalog.Scopes() {
		if string(s.Value) == raw {
			return s.Label
		}
	}
	return ""
}

func leadTags(lead *leads.Lead) map[string]string {
	tags := map[string]string{"lead_source": lead.Source}
	if lead.ProjectScope != "" {
		tags["project_scope"] = lead.ProjectScope
	}
	return tags
}
