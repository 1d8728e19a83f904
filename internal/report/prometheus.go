package report

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Prometheus records a latency histogram and a failure counter for the run
// and, when a pushgateway URL is configured, pushes them on finalization.
// Without a gateway URL the reporter only aggregates locally, which keeps
// metrics collection harmless in environments without a gateway.
type Prometheus struct {
	gatewayURL string
	runID      string

	registry *prometheus.Registry
	latency  prometheus.Histogram
	steps    *prometheus.CounterVec
}

// NewPrometheus creates a metrics reporter. gatewayURL may be empty.
func NewPrometheus(gatewayURL, runID string) *Prometheus {
	registry := prometheus.NewRegistry()

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "apiprobe_step_latency_seconds",
		Help:    "Latency of individual test steps, including client-internal retries.",
		Buckets: prometheus.DefBuckets,
	})
	steps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "apiprobe_steps_total",
		Help: "Executed test steps by outcome.",
	}, []string{"outcome"})

	registry.MustRegister(latency, steps)

	return &Prometheus{
		gatewayURL: gatewayURL,
		runID:      runID,
		registry:   registry,
		latency:    latency,
		steps:      steps,
	}
}

// Record observes one step outcome.
func (p *Prometheus) Record(result Result) {
	p.latency.Observe(result.Latency.Seconds())

	outcome := "passed"
	if !result.Success {
		outcome = "failed"
	}
	p.steps.WithLabelValues(outcome).Inc()
}

// Finalize pushes the collected metrics to the configured pushgateway.
func (p *Prometheus) Finalize() error {
	if p.gatewayURL == "" {
		return nil
	}

	err := push.New(p.gatewayURL, "apiprobe").
		Gatherer(p.registry).
		Grouping("run_id", p.runID).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", p.gatewayURL, err)
	}

	return nil
}

// Gatherer exposes the run's metric registry, mainly for tests.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}
