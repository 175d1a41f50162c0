package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for sitefroyo.
// All Record and Set methods are safe to call on a nil or disabled instance.
type Metrics struct {
	config MetricsConfig

	// Evaluation metrics
	evaluations        *prometheus.CounterVec
	evaluationDuration *prometheus.HistogramVec
	factsTrue          *prometheus.GaugeVec
	siteStatus         *prometheus.GaugeVec

	// Collaborator metrics
	collaboratorCalls    *prometheus.CounterVec
	collaboratorDuration *prometheus.HistogramVec
	collaboratorErrors   *prometheus.CounterVec

	// Policy metrics
	policyViolations *prometheus.CounterVec

	// Error metrics
	errorsByClass *prometheus.CounterVec
	errorsByCode  *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "fact_evaluations_total",
				Help:      "Total number of fact evaluation passes",
			},
			[]string{"command", "result"},
		),
		evaluationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "fact_evaluation_duration_seconds",
				Help:      "Duration of fact evaluation passes in seconds",
				Buckets:   buckets,
			},
			[]string{"command"},
		),
		factsTrue: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "facts_true",
				Help:      "Number of facts that evaluated to true in the last pass",
			},
			[]string{"site"},
		),
		siteStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "site_status",
				Help:      "Current site status (1 for the selected status, 0 otherwise)",
			},
			[]string{"site", "status"},
		),

		collaboratorCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_calls_total",
				Help:      "Total number of external collaborator calls",
			},
			[]string{"collaborator"},
		),
		collaboratorDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "collaborator_duration_seconds",
				Help:      "Duration of external collaborator calls in seconds",
				Buckets:   buckets,
			},
			[]string{"collaborator"},
		),
		collaboratorErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_errors_total",
				Help:      "Total number of recovered collaborator errors",
			},
			[]string{"collaborator"},
		),

		policyViolations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "policy_violations_total",
				Help:      "Total number of policy violations",
			},
			[]string{"policy", "severity"},
		),

		errorsByClass: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_class_total",
				Help:      "Total number of errors by error class",
			},
			[]string{"class"},
		),
		errorsByCode: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_by_code_total",
				Help:      "Total number of errors by error code",
			},
			[]string{"code"},
		),
	}

	registry.MustRegister(
		m.evaluations,
		m.evaluationDuration,
		m.factsTrue,
		m.siteStatus,
		m.collaboratorCalls,
		m.collaboratorDuration,
		m.collaboratorErrors,
		m.policyViolations,
		m.errorsByClass,
		m.errorsByCode,
	)

	return m, nil
}

func (m *Metrics) enabled() bool {
	return m != nil && m.registry != nil
}

// Evaluation Metrics

// RecordEvaluation records a completed fact evaluation pass.
func (m *Metrics) RecordEvaluation(command string, ok bool, duration time.Duration) {
	if !m.enabled() {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.evaluations.WithLabelValues(command, result).Inc()
	m.evaluationDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// SetFactsTrue records how many facts were true in the last pass for a site.
func (m *Metrics) SetFactsTrue(site string, count int) {
	if !m.enabled() {
		return
	}
	m.factsTrue.WithLabelValues(site).Set(float64(count))
}

// SetSiteStatus marks current as the selected status for site and clears the
// others in all.
func (m *Metrics) SetSiteStatus(site, current string, all []string) {
	if !m.enabled() {
		return
	}
	for _, s := range all {
		value := 0.0
		if s == current {
			value = 1.0
		}
		m.siteStatus.WithLabelValues(site, s).Set(value)
	}
}

// Collaborator Metrics

// RecordCollaboratorCall records an external collaborator call with its duration.
func (m *Metrics) RecordCollaboratorCall(collaborator string, duration time.Duration) {
	if !m.enabled() {
		return
	}
	m.collaboratorCalls.WithLabelValues(collaborator).Inc()
	m.collaboratorDuration.WithLabelValues(collaborator).Observe(duration.Seconds())
}

// RecordCollaboratorError records a collaborator failure that was recovered.
func (m *Metrics) RecordCollaboratorError(collaborator string) {
	if !m.enabled() {
		return
	}
	m.collaboratorErrors.WithLabelValues(collaborator).Inc()
}

// Policy Metrics

// RecordPolicyViolation records a policy violation.
func (m *Metrics) RecordPolicyViolation(policy, severity string) {
	if !m.enabled() {
		return
	}
	m.policyViolations.WithLabelValues(policy, severity).Inc()
}

// Error Metrics

// RecordError records an error by class and optionally by code.
func (m *Metrics) RecordError(errorClass, errorCode string) {
	if !m.enabled() {
		return
	}
	m.errorsByClass.WithLabelValues(errorClass).Inc()
	if errorCode != "" {
		m.errorsByCode.WithLabelValues(errorCode).Inc()
	}
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// Registry returns the underlying registry, or nil when metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if !m.enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Serve exposes metrics over HTTP until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context) error {
	if !m.enabled() {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
