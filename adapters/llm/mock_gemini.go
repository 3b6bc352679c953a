package llm

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/satriahrh/wawa/domain/repositories"
)

// ReplyFunc produces the raw model output for a user prompt
type ReplyFunc func(prompt string) (string, error)

// MockGeminiClient is a stand-in for Gemini used in development and tests
type MockGeminiClient struct {
	reply ReplyFunc

	mu      sync.Mutex
	prompts []string
	primers [][]repositories.ChatMessage
}

// Ensure MockGeminiClient implements the LargeLanguageModel interface
var _ repositories.LargeLanguageModel = (*MockGeminiClient)(nil)

// NewMockGeminiClient creates a mock client; a nil reply answers with a
// single smiling draft
func NewMockGeminiClient(reply ReplyFunc) *MockGeminiClient {
	if reply == nil {
		reply = defaultMockReply
	}
	return &MockGeminiClient{reply: reply}
}

// NewStaticMockGeminiClient always answers with raw
func NewStaticMockGeminiClient(raw string) *MockGeminiClient {
	return NewMockGeminiClient(func(string) (string, error) { return raw, nil })
}

func defaultMockReply(prompt string) (string, error) {
	payload, err := json.Marshal([]map[string]string{{
		"text":             "I heard you! Tell me more about it.",
		"facialExpression": "smile",
		"animation":        "Talking_1",
	}})
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// Prompts returns every prompt sent through any session of this client
func (g *MockGeminiClient) Prompts() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// Primers returns the history each session was opened with, in order
func (g *MockGeminiClient) Primers() [][]repositories.ChatMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]repositories.ChatMessage(nil), g.primers...)
}

// GenerateChat implements repositories.LargeLanguageModel
func (g *MockGeminiClient) GenerateChat(ctx context.Context, history []repositories.ChatMessage) (repositories.ChatSession, error) {
	g.mu.Lock()
	g.primers = append(g.primers, append([]repositories.ChatMessage(nil), history...))
	g.mu.Unlock()

	return &MockGeminiChatSession{client: g}, nil
}

// MockGeminiChatSession implements repositories.ChatSession
type MockGeminiChatSession struct {
	client *MockGeminiClient
}

// SendMessage implements repositories.ChatSession
func (s *MockGeminiChatSession) SendMessage(ctx context.Context, message repositories.ChatMessage) (repositories.ChatMessage, error) {
	s.client.mu.Lock()
	s.client.prompts = append(s.client.prompts, message.Content)
	s.client.mu.Unlock()

	content, err := s.client.reply(message.Content)
	if err != nil {
		return repositories.ChatMessage{}, err
	}

	return repositories.ChatMessage{
		Role:    repositories.AvatarRole,
		Content: content,
	}, nil
}
