package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain/repositories"
)

const (
	defaultAPIBaseURL   = "https://api.elevenlabs.io/v1"
	defaultVoiceID      = "kgG7dCoKCfLehAPWkJOE"
	defaultOutputFormat = "mp3_44100_128" // the transcoder reads message_<i>.mp3
	defaultModelID      = "eleven_multilingual_v2"
	defaultStability    = 0.5
	defaultClarity      = 0.75
	defaultTimeout      = 60 * time.Second

	maxErrorBody = 4096
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter.
// Only APIKey is required; zero values fall back to the package defaults.
type ElevenLabsConfig struct {
	APIKey       string
	APIBaseURL   string
	VoiceID      string
	ModelID      string
	OutputFormat string
	Stability    float64
	Clarity      float64 // sent as similarity_boost
	Timeout      time.Duration
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %s", config.Timeout)
	}

	return nil
}

// withDefaults fills every unset field and logs what it picked
func (c ElevenLabsConfig) withDefaults(logger *zap.Logger) ElevenLabsConfig {
	fill := func(value *string, fallback, name string) {
		if *value == "" {
			*value = fallback
			logger.Info("Using default "+name, zap.String(name, fallback))
		}
	}
	fill(&c.APIBaseURL, defaultAPIBaseURL, "apiBaseURL")
	fill(&c.VoiceID, defaultVoiceID, "voiceID")
	fill(&c.ModelID, defaultModelID, "modelID")
	fill(&c.OutputFormat, defaultOutputFormat, "outputFormat")

	if c.Stability == 0 {
		c.Stability = defaultStability
	}
	if c.Clarity == 0 {
		c.Clarity = defaultClarity
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	return c
}

// ElevenLabsTTS implements TextToSpeech and VoiceCatalog on the Eleven Labs REST API
type ElevenLabsTTS struct {
	config ElevenLabsConfig
	client *http.Client
	logger *zap.Logger
}

var (
	_ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)
	_ repositories.VoiceCatalog = (*ElevenLabsTTS)(nil)
)

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

type synthesisRequest struct {
	Text                   string        `json:"text"`
	ModelID                string        `json:"model_id"`
	VoiceSettings          voiceSettings `json:"voice_settings"`
	ApplyTextNormalization string        `json:"apply_text_normalization,omitempty"`
}

type voicesResponse struct {
	Voices []repositories.Voice `json:"voices"`
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}

	config = config.withDefaults(logger)
	return &ElevenLabsTTS{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		logger: logger,
	}, nil
}

// SynthesizeSpeech returns the complete encoded audio for text
func (e *ElevenLabsTTS) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	body, err := json.Marshal(synthesisRequest{
		Text:                   text,
		ModelID:                e.config.ModelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: voiceSettings{
			Stability:       e.config.Stability,
			SimilarityBoost: e.config.Clarity,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	query := url.Values{"output_format": {e.config.OutputFormat}}
	req, err := e.newRequest(ctx, http.MethodPost, "/text-to-speech/"+url.PathEscape(e.config.VoiceID), query, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", e.acceptHeader())

	started := time.Now()
	resp, err := e.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("eleven labs API returned empty audio")
	}

	e.logger.Info("Speech synthesized",
		zap.String("voiceID", e.config.VoiceID),
		zap.Int("textLength", len(text)),
		zap.Int("bytes", len(audio)),
		zap.Duration("elapsed", time.Since(started)))

	return audio, nil
}

// ListVoices retrieves the voices available to the account
func (e *ElevenLabsTTS) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	req, err := e.newRequest(ctx, http.MethodGet, "/voices", nil, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var decoded voicesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode voices: %w", err)
	}

	e.logger.Debug("Retrieved available voices", zap.Int("count", len(decoded.Voices)))
	return decoded.Voices, nil
}

func (e *ElevenLabsTTS) acceptHeader() string {
	if strings.HasPrefix(e.config.OutputFormat, "pcm") {
		return "audio/pcm"
	}
	return "audio/mpeg"
}

func (e *ElevenLabsTTS) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	target := e.config.APIBaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("xi-api-key", e.config.APIKey)
	return req, nil
}

// do executes req and turns any non-200 answer into an error carrying the
// (truncated) response body
func (e *ElevenLabsTTS) do(req *http.Request) (*http.Response, error) {
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer resp.Body.Close()

	errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	e.logger.Error("Eleven Labs API returned error",
		zap.String("path", req.URL.Path),
		zap.Int("statusCode", resp.StatusCode),
		zap.String("response", string(errorBody)))
	return nil, fmt.Errorf("eleven labs API returned status %d: %s", resp.StatusCode, string(errorBody))
}
