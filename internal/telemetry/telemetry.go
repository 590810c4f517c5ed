package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks external-call volume across the pipeline. A nil *Metrics is
// safe to use everywhere so tests can skip wiring it.
type Metrics struct {
	LLMRequests *prometheus.CounterVec
	LLMRetries  prometheus.Counter
	Searches    *prometheus.CounterVec
	Fetches     *prometheus.CounterVec
	ProcessRuns *prometheus.CounterVec
}

// New registers the pipeline metrics on reg. Passing nil uses the default
// registerer; tests pass prometheus.NewRegistry() to avoid duplicate
// registration across cases.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		LLMRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_llm_requests_total",
			Help: "Text generation requests by outcome.",
		}, []string{"outcome"}),
		LLMRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "deepresearch_llm_retries_total",
			Help: "Text generation attempts beyond the first.",
		}),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_searches_total",
			Help: "Web search calls by outcome.",
		}, []string{"outcome"}),
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_fetches_total",
			Help: "Document fetches by outcome.",
		}, []string{"outcome"}),
		ProcessRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "deepresearch_process_runs_total",
			Help: "Finished research processes by terminal status.",
		}, []string{"status"}),
	}
	reg.MustRegister(m.LLMRequests, m.LLMRetries, m.Searches, m.Fetches, m.ProcessRuns)
	return m
}

func (m *Metrics) CountLLM(outcome string) {
	if m == nil {
		return
	}
	m.LLMRequests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountLLMRetry() {
	if m == nil {
		return
	}
	m.LLMRetries.Inc()
}

func (m *Metrics) CountSearch(outcome string) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountFetch(outcome string) {
	if m == nil {
		return
	}
	m.Fetches.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountProcess(status string) {
	if m == nil {
		return
	}
	m.ProcessRuns.WithLabelValues(status).Inc()
}
