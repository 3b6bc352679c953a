package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/satriahrh/wawa/internal/saga"
)

// Transports a chat request can arrive on
const (
	TransportHTTP      = "http"
	TransportWebSocket = "ws"
)

// Chat request outcomes
const (
	OutcomeOK         = "ok"
	OutcomeBadRequest = "bad_request"
	OutcomeError      = "error"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ChatRequests       *prometheus.CounterVec
	ChatLatency        *prometheus.HistogramVec
	StageDuration      *prometheus.HistogramVec
	SagaOutcomes       *prometheus.CounterVec
	ActiveWSConnection prometheus.Gauge
}

// NewMetrics registers the instruments with reg
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by transport and outcome.",
		}, []string{"transport", "outcome"}),
		ChatLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "chat_latency_seconds",
			Help:      "Time to answer one chat request.",
			Buckets:   []float64{0.05, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 80},
		}, []string{"transport"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of one reply pipeline stage by step and status.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"step", "status"}),
		SagaOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_replies_total",
			Help:      "Per-reply pipeline runs by final state.",
		}, []string{"state"}),
		ActiveWSConnection: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_ws_connections",
			Help:      "Number of open chat WebSocket connections.",
		}),
	}
}

// ObserveChat records the outcome and latency of one chat request
func (m *Metrics) ObserveChat(transport, outcome string, d time.Duration) {
	m.ChatRequests.WithLabelValues(transport, outcome).Inc()
	m.ChatLatency.WithLabelValues(transport).Observe(d.Seconds())
}

// SagaObserver feeds step timings and saga outcomes into the metrics
func (m *Metrics) SagaObserver() saga.Observer {
	return func(event saga.SagaEvent) {
		switch event.Type {
		case saga.EventStepCompleted:
			m.StageDuration.WithLabelValues(string(event.StepID), "ok").Observe(event.Duration.Seconds())
		case saga.EventStepFailed:
			m.StageDuration.WithLabelValues(string(event.StepID), "error").Observe(event.Duration.Seconds())
		case saga.EventSagaCompleted:
			m.SagaOutcomes.WithLabelValues(string(saga.SagaStateCompleted)).Inc()
		case saga.EventSagaCompensated:
			m.SagaOutcomes.WithLabelValues(string(saga.SagaStateCompensated)).Inc()
		}
	}
}

// MetricsHandler exposes the instruments registered with gatherer
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
