package observability

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/wawa/internal/saga"
)

type stubStep struct {
	id  saga.StepID
	err error
}

func (s stubStep) ID() saga.StepID { return s.id }

func (s stubStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	if s.err != nil {
		return saga.Failed(s.err)
	}
	return saga.Succeeded(nil)
}

func (s stubStep) Compensate(ctx context.Context, data saga.SagaData) error { return nil }

type stubDefinition struct {
	id    string
	steps []saga.Step
}

func (d stubDefinition) ID() string             { return d.id }
func (d stubDefinition) Steps() []saga.Step     { return d.steps }
func (d stubDefinition) Timeout() time.Duration { return 0 }

func TestMetrics_SagaObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("wawa", reg)

	manager := saga.NewManager(zaptest.NewLogger(t), metrics.SagaObserver())
	manager.RegisterDefinition(stubDefinition{id: "ok", steps: []saga.Step{stubStep{id: "synthesize"}, stubStep{id: "transcode"}}})
	manager.RegisterDefinition(stubDefinition{id: "bad", steps: []saga.Step{stubStep{id: "synthesize"}, stubStep{id: "transcode", err: errors.New("boom")}}})

	_, err := manager.Run(context.Background(), "ok", nil)
	require.NoError(t, err)
	_, err = manager.Run(context.Background(), "bad", nil)
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SagaOutcomes.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.SagaOutcomes.WithLabelValues("compensated")))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.StageDuration), "synthesize/ok, transcode/ok and transcode/error series")
}

func TestMetrics_ObserveChatAndHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics("wawa", reg)

	metrics.ObserveChat(TransportHTTP, OutcomeOK, 150*time.Millisecond)
	metrics.ObserveChat(TransportHTTP, OutcomeError, time.Second)
	metrics.ObserveChat(TransportWebSocket, OutcomeOK, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues(TransportHTTP, OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues(TransportWebSocket, OutcomeOK)))

	rec := httptest.NewRecorder()
	MetricsHandler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "wawa_chat_requests_total")
	assert.Contains(t, string(body), "wawa_chat_latency_seconds_bucket")
}
