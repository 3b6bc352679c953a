package llm

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/satriahrh/wawa/domain/repositories"
)

// contentGenerator is the subset of genai.Models a chat session calls
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiChatSession keeps one conversation with Gemini
type GeminiChatSession struct {
	models  contentGenerator
	config  GeminiConfig
	logger  *zap.Logger
	history []*genai.Content
}

// NewGeminiChatSession creates a chat session primed with history
func NewGeminiChatSession(models contentGenerator, config GeminiConfig, logger *zap.Logger, history []repositories.ChatMessage) (*GeminiChatSession, error) {
	if err := ValidateGeminiConfig(config); err != nil {
		return nil, err
	}

	return &GeminiChatSession{
		models:  models,
		config:  config.withDefaults(logger),
		logger:  logger,
		history: toGeminiContents(history),
	}, nil
}

// generationConfig asks for JSON output; TopP and TopK are only sent when set
func (s *GeminiChatSession) generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:      s.config.Temperature,
		TopP:             s.config.TopP,
		TopK:             s.config.TopK,
		MaxOutputTokens:  int32(s.config.MaxOutputTokens),
		ResponseMIMEType: jsonMIMEType,
	}
}

// SendMessage sends one user turn and returns the model's answer. Failures
// are returned as is; there is no retry.
func (s *GeminiChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	turn := genai.NewContentFromText(message.Content, genai.RoleUser)
	contents := append(slices.Clip(s.history), turn)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.config.TimeoutSeconds)*time.Second)
	defer cancel()

	started := time.Now()
	response, err := s.models.GenerateContent(ctx, s.config.Model, contents, s.generationConfig())
	if err != nil {
		return repositories.ChatMessage{}, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(response)
	if text == "" {
		return repositories.ChatMessage{}, fmt.Errorf("empty response from model %s", s.config.Model)
	}

	s.history = append(s.history, turn, genai.NewContentFromText(text, genai.RoleModel))

	s.logger.Info("Chat session message processed",
		zap.String("model", s.config.Model),
		zap.String("responsePreview", text[:min(50, len(text))]),
		zap.Int("historyLength", len(s.history)),
		zap.Duration("elapsed", time.Since(started)))

	return repositories.ChatMessage{Role: repositories.AvatarRole, Content: text}, nil
}

// responseText joins the text parts of the first candidate
func responseText(response *genai.GenerateContentResponse) string {
	if response == nil || len(response.Candidates) == 0 || response.Candidates[0].Content == nil {
		return ""
	}
	return contentText(response.Candidates[0].Content)
}

func contentText(content *genai.Content) string {
	var b strings.Builder
	for _, part := range content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// toGeminiContents maps avatar turns to the model role and everything else to
// the user role, since Gemini contents carry no system role
func toGeminiContents(messages []repositories.ChatMessage) []*genai.Content {
	contents := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages {
		var role genai.Role = genai.RoleUser
		if msg.Role == repositories.AvatarRole {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(msg.Content, role))
	}
	return contents
}
