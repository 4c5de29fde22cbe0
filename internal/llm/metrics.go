package llm

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for chat traffic.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_llm_requests_total",
				Help: "Chat completion requests by purpose and outcome",
			},
			[]string{"purpose", "model", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tutor_llm_request_duration_seconds",
				Help:    "Chat completion latency",
				Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40},
			},
			[]string{"purpose", "model"},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tutor_llm_tokens_total",
				Help: "Tokens consumed by direction",
			},
			[]string{"purpose", "model", "direction"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.duration, m.tokens)
	}
	return m
}

// MetricsProvider is a decorator that observes every chat request.
type MetricsProvider struct {
	inner   Provider
	metrics *Metrics
}

// WithMetrics wraps a Provider with Prometheus instrumentation.
func WithMetrics(p Provider, m *Metrics) Provider {
	if m == nil {
		return p
	}
	return &MetricsProvider{inner: p, metrics: m}
}

func (p *MetricsProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)

	purpose := PurposeFrom(ctx)
	model := p.inner.ModelID()
	status := "ok"
	if err != nil {
		status = "error"
	}

	p.metrics.requests.WithLabelValues(purpose, model, status).Inc()
	p.metrics.duration.WithLabelValues(purpose, model).Observe(time.Since(start).Seconds())
	if resp != nil {
		p.metrics.tokens.WithLabelValues(purpose, model, "input").Add(float64(resp.Usage.InputTokens))
		p.metrics.tokens.WithLabelValues(purpose, model, "output").Add(float64(resp.Usage.OutputTokens))
	}

	return resp, err
}

func (p *MetricsProvider) ModelID() string {
	return p.inner.ModelID()
}
