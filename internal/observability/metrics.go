// Package observability exposes run metrics over a Prometheus scrape
// endpoint for long summarization runs.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/coderecap/coderecap/internal/summarize"
)

const (
	namespace = "coderecap"

	labelStatus    = "status"
	labelDirection = "direction"

	directionInput  = "input"
	directionOutput = "output"
)

// Metrics holds the Prometheus instruments for one run. All methods are safe
// to call on a nil receiver, so callers can pass metrics through
// unconditionally and only construct them when a listen address is set.
type Metrics struct {
	registry *prometheus.Registry

	llmCalls  *prometheus.CounterVec
	llmTokens *prometheus.CounterVec
	llmCost   prometheus.Counter
	commits   prometheus.Counter
}

// NewMetrics registers the coderecap instruments on a fresh registry. Each
// call creates an independent registry to avoid collector conflicts when
// called multiple times.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_calls_total",
			Help:      "LLM call outcomes by node status.",
		}, []string{labelStatus}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_total",
			Help:      "Billed tokens by direction.",
		}, []string{labelDirection}),
		llmCost: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_cost_usd_total",
			Help:      "Cumulative billed cost in USD.",
		}),
		commits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commits_extracted_total",
			Help:      "Commit records extracted from repositories.",
		}),
	}

	registry.MustRegister(m.llmCalls, m.llmTokens, m.llmCost, m.commits)

	return m
}

// ObserveCall implements summarize.Observer.
func (m *Metrics) ObserveCall(status summarize.Status, inputTokens, outputTokens int, costUSD float64) {
	if m == nil {
		return
	}

	m.llmCalls.WithLabelValues(status.String()).Inc()
	m.llmTokens.WithLabelValues(directionInput).Add(float64(inputTokens))
	m.llmTokens.WithLabelValues(directionOutput).Add(float64(outputTokens))
	m.llmCost.Add(costUSD)
}

// ObserveCommits counts extracted commit records.
func (m *Metrics) ObserveCommits(n int) {
	if m == nil {
		return
	}

	m.commits.Add(float64(n))
}

// Handler returns the /metrics scrape handler for this run's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background. The returned server can
// be shut down by the caller; serving errors surface on the error channel.
func (m *Metrics) Serve(addr string) (*http.Server, <-chan error) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{Addr: addr, Handler: mux}
	errs := make(chan error, 1)

	go func() {
		errs <- server.ListenAndServe()
	}()

	return server, errs
}
