package metrics

import "github.com/prometheus/client_golang/prometheus"

// LeadMetrics exposes counters/histograms for the lead-capture pipeline.
type LeadMetrics struct {
	submissionsTotal   *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	tokenTotal         *prometheus.CounterVec
	webhookTotal       *prometheus.CounterVec
	webhookLatency     *prometheus.HistogramVec
	verifyTotal        *prometheus.CounterVec
}

func NewLeadMetrics(reg prometheus.Registerer) *LeadMetrics {
	m := &LeadMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "submissions_total",
			Help:      "Quote form submissions by form source and outcome",
		}, []string{"source", "outcome"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "validation_failures_total",
			Help:      "Quote form validation failures by field",
		}, []string{"field"}),
		tokenTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "recaptcha_token_total",
			Help:      "Anti-abuse token acquisition attempts by status",
		}, []string{"status"}),
		webhookTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "webhook_deliveries_total",
			Help:      "Lead webhook deliveries by status",
		}, []string{"status"}),
		webhookLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "webhook_latency_seconds",
			Help:      "Latency of lead webhook POSTs",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		verifyTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "westek",
			Subsystem: "leads",
			Name:      "recaptcha_verifications_total",
			Help:      "Server-side token verifications by result",
		}, []string{"result"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.validationFailures, m.tokenTotal, m.webhookTotal, m.webhookLatency, m.verifyTotal)
	return m
}

func (m *LeadMetrics) ObserveSubmission(source, outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(source, outcome).Inc()
}

func (m *LeadMetrics) ObserveValidationFailure(field string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}

func (m *LeadMetrics) ObserveToken(status string) {
	if m == nil {
		return
	}
	m.tokenTotal.WithLabelValues(status).Inc()
}

func (m *LeadMetrics) ObserveWebhook(status string, seconds float64) {
	if m == nil {
		return
	}
	m.webhookTotal.WithLabelValues(status).Inc()
	m.webhookLatency.WithLabelValues(status).Observe(seconds)
}

func (m *LeadMetrics) ObserveVerification(result string) {
	if m == nil {
		return
	}
	m.verifyTotal.WithLabelValues(result).Inc()
}
