package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Provider names
const (
	ProviderGemini     = "gemini"
	ProviderElevenLabs = "elevenlabs"
	ProviderMock       = "mock"
)

// Config contains all runtime settings of the chat server.
type Config struct {
	Port            string
	LogLevel        string
	ShutdownTimeout time.Duration

	LLMProvider           string
	GeminiAPIKey          string
	GeminiModel           string
	GeminiTemperature     *float32 // nil leaves the adapter default
	GeminiTopP            *float32
	GeminiTopK            *float32
	GeminiMaxOutputTokens int

	TTSProvider          string
	ElevenLabsAPIKey     string
	ElevenLabsVoiceID    string
	ElevenLabsModelID    string
	ElevenLabsAPIBaseURL string

	AudioDir       string
	AssetsDir      string
	FFmpegCommand  string
	RhubarbCommand string

	MaxDrafts         int
	PipelineTimeout   time.Duration
	ArtifactRetention time.Duration
}

// Load reads the optional env files (".env" when none are given), then the
// environment, and applies defaults. Variables already set in the process
// environment win over the files.
func Load(envFiles ...string) (Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load(envFiles...)

	cfg := Config{
		Port:                 envOrDefault("PORT", "3000"),
		LogLevel:             strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
		ShutdownTimeout:      10 * time.Second,
		LLMProvider:          strings.ToLower(envOrDefault("LLM_PROVIDER", ProviderGemini)),
		GeminiAPIKey:         trimmedEnv("GEMINI_API_KEY"),
		GeminiModel:          trimmedEnv("GEMINI_MODEL"),
		TTSProvider:          strings.ToLower(envOrDefault("TTS_PROVIDER", ProviderElevenLabs)),
		ElevenLabsAPIKey:     trimmedEnv("ELEVEN_LABS_API_KEY"),
		ElevenLabsVoiceID:    trimmedEnv("ELEVEN_LABS_VOICE_ID"),
		ElevenLabsModelID:    trimmedEnv("ELEVEN_LABS_MODEL_ID"),
		ElevenLabsAPIBaseURL: trimmedEnv("ELEVEN_LABS_API_BASE_URL"),
		AudioDir:             envOrDefault("AUDIO_DIR", "audios"),
		AssetsDir:            envOrDefault("ASSETS_DIR", "audios"),
		FFmpegCommand:        trimmedEnv("FFMPEG_COMMAND"),
		RhubarbCommand:       trimmedEnv("RHUBARB_COMMAND"),
		MaxDrafts:            3,
		PipelineTimeout:      2 * time.Minute,
		ArtifactRetention:    time.Hour,
	}

	var err error
	if cfg.GeminiTemperature, err = optionalFloat32FromEnv("GEMINI_TEMPERATURE"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTopP, err = optionalFloat32FromEnv("GEMINI_TOP_P"); err != nil {
		return Config{}, err
	}
	if cfg.GeminiTopK, err = optionalFloat32FromEnv("GEMINI_TOP_K"); err != nil {
		return Config{}, err
	}
	cfg.GeminiMaxOutputTokens, err = intFromEnv("GEMINI_MAX_OUTPUT_TOKENS", 0)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxDrafts, err = intFromEnv("MAX_DRAFTS", cfg.MaxDrafts)
	if err != nil {
		return Config{}, err
	}
	cfg.PipelineTimeout, err = durationFromEnv("PIPELINE_TIMEOUT", cfg.PipelineTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ArtifactRetention, err = durationFromEnv("ARTIFACT_RETENTION", cfg.ArtifactRetention)
	if err != nil {
		return Config{}, err
	}
	cfg.ShutdownTimeout, err = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges and provider names
func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderGemini, ProviderMock:
	default:
		return fmt.Errorf("LLM_PROVIDER must be %q or %q, got %q", ProviderGemini, ProviderMock, c.LLMProvider)
	}
	switch c.TTSProvider {
	case ProviderElevenLabs, ProviderMock:
	default:
		return fmt.Errorf("TTS_PROVIDER must be %q or %q, got %q", ProviderElevenLabs, ProviderMock, c.TTSProvider)
	}
	if t := c.GeminiTemperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("GEMINI_TEMPERATURE must be between 0 and 2")
	}
	if p := c.GeminiTopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("GEMINI_TOP_P must be between 0 and 1")
	}
	if k := c.GeminiTopK; k != nil && *k < 0 {
		return fmt.Errorf("GEMINI_TOP_K must be >= 0")
	}
	if c.GeminiMaxOutputTokens < 0 {
		return fmt.Errorf("GEMINI_MAX_OUTPUT_TOKENS must be >= 0")
	}
	if c.MaxDrafts <= 0 {
		return fmt.Errorf("MAX_DRAFTS must be positive")
	}
	if c.PipelineTimeout <= 0 {
		return fmt.Errorf("PIPELINE_TIMEOUT must be positive")
	}
	if c.ArtifactRetention < 0 {
		return fmt.Errorf("ARTIFACT_RETENTION must be >= 0")
	}
	// cleanup must never reach a workspace a request may still be writing
	if c.ArtifactRetention > 0 && c.ArtifactRetention < c.PipelineTimeout {
		return fmt.Errorf("ARTIFACT_RETENTION (%s) must be 0 or at least PIPELINE_TIMEOUT (%s)", c.ArtifactRetention, c.PipelineTimeout)
	}
	if strings.TrimSpace(c.AudioDir) == "" {
		return fmt.Errorf("AUDIO_DIR must not be empty")
	}
	return nil
}

// HasCredentials reports whether both the conversational backend and the
// speech synthesizer can be reached. Mock providers need no key.
func (c Config) HasCredentials() bool {
	llmReady := c.LLMProvider == ProviderMock || c.GeminiAPIKey != ""
	ttsReady := c.TTSProvider == ProviderMock || c.ElevenLabsAPIKey != ""
	return llmReady && ttsReady
}

// Development reports whether the debug logging profile was requested
func (c Config) Development() bool {
	return c.LogLevel == "debug"
}

func envOrDefault(key, fallback string) string {
	if v := trimmedEnv(key); v != "" {
		return v
	}
	return fallback
}

func trimmedEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := trimmedEnv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := trimmedEnv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return v, nil
}

// optionalFloat32FromEnv returns nil when key is unset so an explicit zero
// stays distinguishable from no value
func optionalFloat32FromEnv(key string) (*float32, error) {
	raw := trimmedEnv(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	f := float32(v)
	return &f, nil
}
