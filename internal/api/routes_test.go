package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/wawa/adapters/llm"
	"github.com/satriahrh/wawa/adapters/speech"
	"github.com/satriahrh/wawa/adapters/storage"
	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
	"github.com/satriahrh/wawa/internal/observability"
	"github.com/satriahrh/wawa/internal/saga"
	"github.com/satriahrh/wawa/usecase"
)

type stubResponder struct {
	got      *string
	envelope *domain.ResponseEnvelope
	err      error
}

func (s *stubResponder) Chat(ctx context.Context, message string) (*domain.ResponseEnvelope, error) {
	s.got = &message
	return s.envelope, s.err
}

type failingVoices struct{}

func (failingVoices) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	return nil, errors.New("401")
}

func newTestServer(t *testing.T, deps Dependencies) *echo.Echo {
	t.Helper()
	e := echo.New()
	InitRoutes(e, deps, zaptest.NewLogger(t))
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRoutes_HelloAndHealth(t *testing.T) {
	e := newTestServer(t, Dependencies{Chat: &stubResponder{}})

	rec := doRequest(e, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello World!", rec.Body.String())

	rec = doRequest(e, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"wawa-server"}`, rec.Body.String())
}

func TestRoutes_Voices(t *testing.T) {
	e := newTestServer(t, Dependencies{Chat: &stubResponder{}, Voices: speech.NewMockTextToSpeech(zaptest.NewLogger(t))})
	rec := doRequest(e, http.MethodGet, "/voices", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[{"voice_id":"mock","name":"Mock Voice"}]`, rec.Body.String())

	e = newTestServer(t, Dependencies{Chat: &stubResponder{}})
	rec = doRequest(e, http.MethodGet, "/voices", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	e = newTestServer(t, Dependencies{Chat: &stubResponder{}, Voices: failingVoices{}})
	rec = doRequest(e, http.MethodGet, "/voices", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoutes_Chat(t *testing.T) {
	responder := &stubResponder{envelope: &domain.ResponseEnvelope{Messages: []domain.ResponseMessage{{
		Text:             "Hi!",
		Audio:            domain.NewAudioBlob([]byte{1, 2, 3}),
		Lipsync:          &domain.VisemeCueTrack{MouthCues: []domain.MouthCue{{Start: 0, End: 0.1, Value: "A"}}},
		FacialExpression: domain.ExpressionSmile,
		Animation:        domain.AnimationTalking0,
	}}}}
	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	e := newTestServer(t, Dependencies{Chat: responder, Metrics: metrics})

	rec := doRequest(e, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, responder.got)
	assert.Equal(t, "hello", *responder.got)

	var envelope domain.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Messages, 1)
	assert.Equal(t, domain.AudioBlob("AQID"), envelope.Messages[0].Audio)
	assert.Equal(t, "A", envelope.Messages[0].Lipsync.MouthCues[0].Value)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ChatRequests.WithLabelValues(observability.TransportHTTP, observability.OutcomeOK)))
}

func TestRoutes_ChatWithoutMessage(t *testing.T) {
	for _, body := range []string{"", `{}`, `{"message":""}`} {
		responder := &stubResponder{envelope: &domain.ResponseEnvelope{Messages: []domain.ResponseMessage{}}}
		e := newTestServer(t, Dependencies{Chat: responder})

		rec := doRequest(e, http.MethodPost, "/chat", body)
		assert.Equal(t, http.StatusOK, rec.Code, "body %q", body)
		require.NotNil(t, responder.got)
		assert.Equal(t, "", *responder.got)
	}
}

func TestRoutes_ChatMalformedBody(t *testing.T) {
	responder := &stubResponder{}
	e := newTestServer(t, Dependencies{Chat: responder})

	rec := doRequest(e, http.MethodPost, "/chat", `{"message":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, responder.got)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "invalid_request", resp.Error)
}

func TestRoutes_ChatFailureReturnsFallback(t *testing.T) {
	e := newTestServer(t, Dependencies{Chat: &stubResponder{err: usecase.ErrPipeline}})

	rec := doRequest(e, http.MethodPost, "/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"messages":[{
		"text":"Sorry, I encountered an error. Please try again.",
		"facialExpression":"sad",
		"animation":"Idle"
	}]}`, rec.Body.String())
}

func TestRoutes_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics("test", reg)
	e := newTestServer(t, Dependencies{
		Chat:           &stubResponder{err: errors.New("boom")},
		Metrics:        metrics,
		MetricsHandler: observability.MetricsHandler(reg),
	})

	doRequest(e, http.MethodPost, "/chat", `{"message":"hello"}`)
	rec := doRequest(e, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_chat_requests_total{outcome="error",transport="http"} 1`)
}

// copyTranscoder and staticExtractor stand in for ffmpeg and rhubarb
type copyTranscoder struct{}

func (copyTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

type staticExtractor struct{}

func (staticExtractor) ExtractVisemes(ctx context.Context, wavPath, outputPath string) (*domain.VisemeCueTrack, error) {
	doc := `{"metadata":{"soundFile":"` + wavPath + `","duration":0.3},"mouthCues":[{"start":0,"end":0.3,"value":"C"}]}`
	if err := os.WriteFile(outputPath, []byte(doc), 0o644); err != nil {
		return nil, err
	}
	return domain.DecodeVisemeCueTrack([]byte(doc))
}

func TestRoutes_ChatEndToEnd(t *testing.T) {
	logger := zaptest.NewLogger(t)
	artifacts, err := storage.NewFileArtifactStore(t.TempDir(), logger)
	require.NoError(t, err)

	tts := speech.NewMockTextToSpeech(logger)
	lipSync, err := usecase.NewLipSyncService(usecase.LipSyncConfig{
		Artifacts:  artifacts,
		Speech:     tts,
		Transcoder: copyTranscoder{},
		Extractor:  staticExtractor{},
		Sagas:      saga.NewManager(logger),
	}, logger)
	require.NoError(t, err)

	backend := usecase.NewConversationBackend(llm.NewStaticMockGeminiClient(`[
		{"text":"Hi!","facialExpression":"smile","animation":"Talking_0"},
		{"text":"How are you?","facialExpression":"surprised","animation":"Talking_2"}
	]`), 0, logger)

	chat := usecase.NewChatService(usecase.NewCannedResponses(storage.NewFileAssetStore(t.TempDir()), nil), backend, lipSync, true, logger)
	e := newTestServer(t, Dependencies{Chat: chat, Voices: tts})

	rec := doRequest(e, http.MethodPost, "/chat", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var envelope domain.ResponseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.Len(t, envelope.Messages, 2)
	assert.Equal(t, "Hi!", envelope.Messages[0].Text)
	assert.Equal(t, domain.AnimationTalking2, envelope.Messages[1].Animation)

	audio, err := envelope.Messages[1].Audio.Bytes()
	require.NoError(t, err)
	expected, err := tts.SynthesizeSpeech(context.Background(), "How are you?")
	require.NoError(t, err)
	assert.Equal(t, expected, audio)
	assert.True(t, strings.HasSuffix(envelope.Messages[1].Lipsync.Metadata.SoundFile, "message_1.wav"))

	// No assets are present, so the greeting fails and the caller gets the apology
	rec = doRequest(e, http.MethodPost, "/chat", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
