package llm

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/wawa/domain/repositories"
)

const (
	defaultModel          = "gemini-2.0-flash"
	defaultTemperature    = 0.6
	defaultMaxTokens      = 1000
	defaultTimeoutSeconds = 30
	jsonMIMEType          = "application/json"
)

// GeminiConfig holds configuration for the Gemini adapter. Nil sampling
// settings are left to the model, except Temperature which defaults to 0.6.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     *float32
	TopP            *float32
	TopK            *float32
	MaxOutputTokens int
	TimeoutSeconds  int
}

// ValidateGeminiConfig validates the GeminiConfig
func ValidateGeminiConfig(config GeminiConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("Google AI API key is required")
	}

	// Gemini accepts temperatures up to 2
	if t := config.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", *t)
	}

	if p := config.TopP; p != nil && (*p < 0 || *p > 1) {
		return fmt.Errorf("topP must be between 0 and 1, got %f", *p)
	}

	if k := config.TopK; k != nil && *k < 0 {
		return fmt.Errorf("topK must be positive, got %f", *k)
	}

	if config.MaxOutputTokens < 0 {
		return fmt.Errorf("maxOutputTokens must be positive, got %d", config.MaxOutputTokens)
	}

	if config.TimeoutSeconds < 0 {
		return fmt.Errorf("timeout must be positive, got %d", config.TimeoutSeconds)
	}

	return nil
}

// withDefaults fills unset generation settings
func (c GeminiConfig) withDefaults(logger *zap.Logger) GeminiConfig {
	if c.Model == "" {
		c.Model = defaultModel
		logger.Debug("Using default model", zap.String("model", c.Model))
	}
	if c.Temperature == nil {
		c.Temperature = genai.Ptr[float32](defaultTemperature)
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = defaultMaxTokens
	}
	if c.TimeoutSeconds == 0 {
		c.TimeoutSeconds = defaultTimeoutSeconds
	}
	return c
}

// GeminiLLM implements the LargeLanguageModel interface using Google's Gemini API
type GeminiLLM struct {
	client *genai.Client
	config GeminiConfig
	logger *zap.Logger
}

// Ensure GeminiLLM implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*GeminiLLM)(nil)

// NewGeminiLLM creates a new Gemini LLM instance
func NewGeminiLLM(ctx context.Context, config GeminiConfig, logger *zap.Logger) (*GeminiLLM, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiLLM{
		client: client,
		config: config,
		logger: logger,
	}, nil
}

// GenerateChat creates a chat session with history
func (g *GeminiLLM) GenerateChat(ctx context.Context, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	return NewGeminiChatSession(g.client.Models, g.config, g.logger, history)
}
