package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jonathan/workflow-generator/internal/types"
)

const namespace = "workflowgen"

// Metrics holds the Prometheus collectors for generation runs. Each Metrics
// owns its registry so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	JobsTotal          *prometheus.CounterVec
	JobDuration        *prometheus.HistogramVec
	AttemptsTotal      *prometheus.CounterVec
	SpendUSD           *prometheus.CounterVec
	RepairsTotal       *prometheus.CounterVec
	ComplexityScore    prometheus.Histogram
	DocumentationStale prometheus.Counter
	HTTPRequests       *prometheus.CounterVec
}

// NewMetrics registers all collectors on a fresh registry, plus the Go and
// process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Generation runs by path and final status",
		}, []string{"path", "status"}),
		JobDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of a generation run",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"path"}),
		AttemptsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_attempts_total",
			Help:      "Provider calls by provider, tier and outcome",
		}, []string{"provider", "tier", "outcome"}),
		SpendUSD: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "spend_usd_total",
			Help:      "Model spend in USD",
		}, []string{"provider", "tier"}),
		RepairsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "repairs_total",
			Help:      "Automatic repairs applied by issue code",
		}, []string{"code"}),
		ComplexityScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "complexity_score",
			Help:      "Distribution of job complexity scores",
			Buckets:   prometheus.LinearBuckets(0, 2, 8),
		}),
		DocumentationStale: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documentation_degraded_total",
			Help:      "Runs that proceeded without catalog documentation",
		}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterBudgetGauges exports live budget values read on every scrape.
func (m *Metrics) RegisterBudgetGauges(spend, limit func() float64) {
	f := promauto.With(m.registry)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "budget_daily_spend_usd",
		Help:      "Spend inside the rolling budget window",
	}, spend)
	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "budget_daily_limit_usd",
		Help:      "Configured daily budget ceiling",
	}, limit)
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveResult records everything a finished run produced. Nil-safe.
func (m *Metrics) ObserveResult(res *types.GenerationResult, elapsed time.Duration) {
	if m == nil || res == nil {
		return
	}
	path := "none"
	if res.Workflow != nil {
		path = string(res.Workflow.Metadata.GenerationPath)
		if res.Workflow.Metadata.DocumentationDegraded {
			m.DocumentationStale.Inc()
		}
	}
	status := "completed"
	if !res.Succeeded() {
		status = "failed"
	}
	m.JobsTotal.WithLabelValues(path, status).Inc()
	m.JobDuration.WithLabelValues(path).Observe(elapsed.Seconds())

	if res.Analysis != nil {
		m.ComplexityScore.Observe(float64(res.Analysis.Score))
	}
	for _, a := range res.Attempts {
		m.AttemptsTotal.WithLabelValues(a.Provider, string(a.Tier), string(a.Outcome)).Inc()
		if a.CostUSD > 0 {
			m.SpendUSD.WithLabelValues(a.Provider, string(a.Tier)).Add(a.CostUSD)
		}
	}
	if res.Validation != nil {
		for _, r := range res.Validation.RepairsApplied {
			m.RepairsTotal.WithLabelValues(r.Code).Inc()
		}
	}
}
