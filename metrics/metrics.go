package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application's prometheus collectors.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Interactions counts like/collect/follow toggles.
	// Labels:
	//   - action: "like", "unlike", "collect", "uncollect", "follow", "unfollow"
	//   - outcome: "applied", "noop"
	Interactions *prometheus.CounterVec

	// Recommendations counts served recommendation lists.
	// Labels:
	//   - kind: "hot", "daily", "similar", "personalized"
	//   - source: "cache", "db", "fallback"
	Recommendations *prometheus.CounterVec

	// CacheLookups counts cache reads.
	// Labels:
	//   - result: "hit", "miss", "error"
	CacheLookups *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Interactions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poetryhub_interactions_total",
				Help: "Total number of interaction toggles by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		Recommendations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poetryhub_recommendations_total",
				Help: "Total number of recommendation lists served by kind and source",
			},
			[]string{"kind", "source"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poetryhub_cache_lookups_total",
				Help: "Total number of recommendation cache lookups by result",
			},
			[]string{"result"},
		),
	}
	reg.MustRegister(m.Interactions, m.Recommendations, m.CacheLookups)
	return m
}

// NewRegistry returns a registry with the go runtime and process collectors already registered.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func (m *Metrics) ObserveInteraction(action string, applied bool) {
	if m == nil {
		return
	}
	outcome := "noop"
	if applied {
		outcome = "applied"
	}
	m.Interactions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveRecommendation(kind, source string) {
	if m == nil {
		return
	}
	m.Recommendations.WithLabelValues(kind, source).Inc()
}

func (m *Metrics) ObserveCache(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
