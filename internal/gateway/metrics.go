package gateway

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/flemzord/engram/internal/memory"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const statsScrapeTimeout = 2 * time.Second

// Metrics groups the gateway's Prometheus instruments. Each Gateway
// owns a private registry so repeated construction never collides on
// instrument registration.
type Metrics struct {
	registry  *prometheus.Registry
	namespace string

	Turns        *prometheus.CounterVec
	TurnDuration prometheus.Histogram
	ToolRuns     *prometheus.CounterVec
	HTTPRequests *prometheus.CounterVec
	HTTPInFlight prometheus.Gauge
}

// NewMetrics creates the instrument set under the given namespace.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		namespace: namespace,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome.",
		}, []string{"outcome"}),
		TurnDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End-to-end turn latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		ToolRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_executions_total",
			Help:      "Tool executions by tool name.",
		}, []string{"tool"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "HTTP requests currently being served.",
		}),
	}
}

// RecordTurn counts one turn and observes its latency.
func (m *Metrics) RecordTurn(isError bool, d time.Duration) {
	outcome := "ok"
	if isError {
		outcome = "error"
	}
	m.Turns.WithLabelValues(outcome).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

// RecordToolRun counts one direct tool execution.
func (m *Metrics) RecordToolRun(tool string) {
	m.ToolRuns.WithLabelValues(tool).Inc()
}

// ObserveStore registers gauges that read store table counts at scrape
// time.
func (m *Metrics) ObserveStore(store memory.Store) {
	stats := func() (memory.Stats, error) {
		ctx, cancel := context.WithTimeout(context.Background(), statsScrapeTimeout)
		defer cancel()
		return store.Stats(ctx)
	}

	factory := promauto.With(m.registry)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_turns",
		Help:      "Conversation turns persisted in the store.",
	}, func() float64 {
		s, err := stats()
		if err != nil {
			return 0
		}
		return float64(s.Turns)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_entries",
		Help:      "Memory entries persisted in the store.",
	}, func() float64 {
		s, err := stats()
		if err != nil {
			return 0
		}
		return float64(s.Entries)
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "store_knowledge",
		Help:      "Knowledge entries persisted in the store.",
	}, func() float64 {
		s, err := stats()
		if err != nil {
			return 0
		}
		return float64(s.Knowledge)
	})
}

// Handler serves this registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// httpMiddleware counts requests by method and status and tracks
// in-flight requests.
func (m *Metrics) httpMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.HTTPInFlight.Inc()
		defer m.HTTPInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		m.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(ww.Status())).Inc()
	})
}
