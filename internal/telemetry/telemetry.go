// Package telemetry exports Prometheus metrics for report runs.
package telemetry

import (
	"context"
	"net/http"
	"time"

	"github.com/dvloznov/budget-report/internal/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "budget_report"

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the report Prometheus metrics.
type Metrics struct {
	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// NewMetrics registers the metrics on reg. A nil reg means the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	gatherer := prometheus.DefaultGatherer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}
	factory := promauto.With(reg)

	return &Metrics{
		StageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_total",
			Help:      "Pipeline stages executed, by outcome",
		}, []string{"stage", "outcome"}),

		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent in each pipeline stage",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"stage"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Report runs, by outcome (success or the failed stage)",
		}, []string{"outcome"}),

		gatherer: gatherer,
	}
}

// ObserveStage implements report.Observer.
func (m *Metrics) ObserveStage(stage report.Stage, elapsed time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.StageTotal.WithLabelValues(string(stage), outcome).Inc()
	m.StageDuration.WithLabelValues(string(stage)).Observe(elapsed.Seconds())
}

// ObserveRun counts a finished run.
func (m *Metrics) ObserveRun(err error) {
	m.RunsTotal.WithLabelValues(runOutcome(err)).Inc()
}

// Handler returns the Prometheus HTTP handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func runOutcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if stage, ok := report.FailedStage(err); ok {
		return string(stage)
	}
	return OutcomeError
}

// Generator produces and delivers one report.
type Generator interface {
	Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error)
}

type instrumented struct {
	next    Generator
	metrics *Metrics
}

// Instrument counts every run of next.
func Instrument(next Generator, m *Metrics) Generator {
	return &instrumented{next: next, metrics: m}
}

func (g *instrumented) Generate(ctx context.Context, recipient report.Recipient) (*report.DeliveryReceipt, error) {
	receipt, err := g.next.Generate(ctx, recipient)
	g.metrics.ObserveRun(err)
	return receipt, err
}

var _ report.Observer = (*Metrics)(nil)
