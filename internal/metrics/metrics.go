package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// LLM call metrics
	llmCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalgate_llm_call_duration_seconds",
			Help:    "LLM call duration in seconds by role and model",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 0.1s to ~100s
		},
		[]string{"role", "model", "status"},
	)

	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalgate_llm_calls_total",
			Help: "Total number of LLM calls by role",
		},
		[]string{"role", "status"},
	)

	// Evaluation metrics
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalgate_evaluations_total",
			Help: "Total number of per-result judge evaluations",
		},
		[]string{"feature", "dataset_type", "status"},
	)

	inputsGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "evalgate_inputs_generated_total",
			Help: "Total number of test inputs generated",
		},
		[]string{"feature"},
	)

	// Workflow metrics
	phaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "evalgate_phase_duration_seconds",
			Help:    "Workflow phase duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~2000s
		},
		[]string{"phase", "feature", "status"},
	)

	activeWorkers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "evalgate_active_workers",
			Help: "Number of active evaluation workers",
		},
		[]string{"stage"},
	)
)

// Collector provides convenience methods for recording metrics
type Collector struct {
	logger *slog.Logger
}

// NewCollector creates a new metrics collector
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{
		logger: logger,
	}
}

// RecordLLMCall records an LLM call duration by role
func (c *Collector) RecordLLMCall(role, model string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	llmCallDuration.WithLabelValues(role, model, status).Observe(duration.Seconds())
	llmCallsTotal.WithLabelValues(role, status).Inc()
}

// RecordEvaluation records a single judge evaluation
func (c *Collector) RecordEvaluation(feature, datasetType string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	evaluationsTotal.WithLabelValues(feature, datasetType, status).Inc()
}

// RecordInputsGenerated adds to the generated-input counter
func (c *Collector) RecordInputsGenerated(feature string, count int) {
	inputsGeneratedTotal.WithLabelValues(feature).Add(float64(count))
}

// RecordPhase records a workflow phase duration
func (c *Collector) RecordPhase(phase, feature string, duration time.Duration, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	phaseDuration.WithLabelValues(phase, feature, status).Observe(duration.Seconds())
}

// SetActiveWorkers sets the number of active workers for a stage
func (c *Collector) SetActiveWorkers(stage string, count int) {
	activeWorkers.WithLabelValues(stage).Set(float64(count))
}

// Serve exposes /metrics on addr until the server fails. Callers run it in
// a goroutine; errors are logged, not fatal, since metrics are best-effort.
func (c *Collector) Serve(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	c.logger.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		c.logger.Warn("Metrics server stopped", "error", err)
	}
}
