package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes counters/histograms for the coaching and monitoring flows.
// A nil *Metrics is valid and records nothing, so tests and minimal setups
// skip registration entirely.
type Metrics struct {
	queryTotal         *prometheus.CounterVec
	queryLatency       *prometheus.HistogramVec
	intentTotal        *prometheus.CounterVec
	toolUseTotal       *prometheus.CounterVec
	validationTotal    *prometheus.CounterVec
	securityViolations prometheus.Counter
	alertTotal         *prometheus.CounterVec
	sessionAlerts      prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queryTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "query_total",
			Help:      "Total coaching queries by validation status",
		}, []string{"status"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "query_latency_seconds",
			Help:      "End-to-end latency of coaching queries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		intentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "intent_total",
			Help:      "Classified intents",
		}, []string{"intent"}),
		toolUseTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "tool_use_total",
			Help:      "Specialized tool dispatches",
		}, []string{"tool"}),
		validationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "validation_total",
			Help:      "Response validation outcomes",
		}, []string{"status"}),
		securityViolations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "coach",
			Name:      "security_violations_total",
			Help:      "Requests blocked by bundle validation",
		}),
		alertTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "brightpath",
			Subsystem: "monitoring",
			Name:      "alert_total",
			Help:      "Monitoring alerts raised by rule and severity",
		}, []string{"rule", "severity"}),
		sessionAlerts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "brightpath",
			Subsystem: "monitoring",
			Name:      "session_alerts",
			Help:      "Alerts raised per monitoring session",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.queryTotal, m.queryLatency, m.intentTotal, m.toolUseTotal,
		m.validationTotal, m.securityViolations, m.alertTotal, m.sessionAlerts,
	)
	return m
}

func (m *Metrics) ObserveCoachQuery(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.queryTotal.WithLabelValues(status).Inc()
	m.queryLatency.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveIntent(intent string) {
	if m == nil {
		return
	}
	m.intentTotal.WithLabelValues(intent).Inc()
}

func (m *Metrics) ObserveToolUse(tool string) {
	if m == nil {
		return
	}
	m.toolUseTotal.WithLabelValues(tool).Inc()
}

func (m *Metrics) ObserveValidation(status string) {
	if m == nil {
		return
	}
	m.validationTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveSecurityViolation() {
	if m == nil {
		return
	}
	m.securityViolations.Inc()
}

func (m *Metrics) ObserveAlert(rule, severity string) {
	if m == nil {
		return
	}
	m.alertTotal.WithLabelValues(rule, severity).Inc()
}

func (m *Metrics) ObserveMonitoringSession(alertCount int) {
	if m == nil {
		return
	}
	m.sessionAlerts.Observe(float64(alertCount))
}
