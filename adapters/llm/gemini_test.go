package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/genai"

	"github.com/satriahrh/wawa/domain/repositories"
)

type fakeModels struct {
	response *genai.GenerateContentResponse
	err      error

	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	return f.response, f.err
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{Role: string(genai.RoleModel)}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{Content: content}},
	}
}

func TestValidateGeminiConfig(t *testing.T) {
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{}))
	assert.NoError(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k"}))
	assert.NoError(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", Temperature: genai.Ptr[float32](0)}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", Temperature: genai.Ptr[float32](3)}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", TopP: genai.Ptr[float32](1.5)}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", TopK: genai.Ptr[float32](-1)}))
	assert.Error(t, ValidateGeminiConfig(GeminiConfig{APIKey: "k", MaxOutputTokens: -5}))
}

func TestGeminiChatSession_SendMessage(t *testing.T) {
	models := &fakeModels{response: textResponse(`[{"text":"hi",`, `"facialExpression":"smile","animation":"Idle"}]`)}
	history := []repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "You are a virtual girlfriend."},
		{Role: repositories.AvatarRole, Content: "Understood!"},
	}

	session, err := NewGeminiChatSession(models, GeminiConfig{APIKey: "k"}, zaptest.NewLogger(t), history)
	require.NoError(t, err)

	reply, err := session.SendMessage(context.Background(), repositories.ChatMessage{Role: repositories.UserRole, Content: "hello"})
	require.NoError(t, err)

	assert.Equal(t, repositories.AvatarRole, reply.Role)
	assert.Equal(t, `[{"text":"hi","facialExpression":"smile","animation":"Idle"}]`, reply.Content)

	assert.Equal(t, defaultModel, models.model)
	require.Len(t, models.contents, 3)
	assert.Equal(t, string(genai.RoleUser), models.contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), models.contents[1].Role)
	assert.Equal(t, "hello", models.contents[2].Parts[0].Text)

	require.NotNil(t, models.config.Temperature)
	assert.InDelta(t, 0.6, *models.config.Temperature, 0.0001)
	assert.Equal(t, int32(defaultMaxTokens), models.config.MaxOutputTokens)
	assert.Equal(t, "application/json", models.config.ResponseMIMEType)
	assert.Nil(t, models.config.TopP)
	assert.Nil(t, models.config.TopK)

	// The answered turn joins the history sent with the next message
	_, err = session.SendMessage(context.Background(), repositories.ChatMessage{Role: repositories.UserRole, Content: "again"})
	require.NoError(t, err)
	require.Len(t, models.contents, 5)
	assert.Equal(t, "hello", models.contents[2].Parts[0].Text)
	assert.Equal(t, string(genai.RoleModel), models.contents[3].Role)
	assert.Equal(t, "again", models.contents[4].Parts[0].Text)
}

func TestGeminiChatSession_SamplingSettings(t *testing.T) {
	models := &fakeModels{response: textResponse(`[]`)}
	config := GeminiConfig{
		APIKey:      "k",
		Temperature: genai.Ptr[float32](0),
		TopP:        genai.Ptr[float32](0.95),
		TopK:        genai.Ptr[float32](40),
	}

	session, err := NewGeminiChatSession(models, config, zaptest.NewLogger(t), nil)
	require.NoError(t, err)
	_, err = session.SendMessage(context.Background(), repositories.ChatMessage{Role: repositories.UserRole, Content: "hello"})
	require.NoError(t, err)

	require.NotNil(t, models.config.Temperature)
	assert.Equal(t, float32(0), *models.config.Temperature, "an explicit zero temperature is kept")
	require.NotNil(t, models.config.TopP)
	assert.InDelta(t, 0.95, *models.config.TopP, 0.0001)
	require.NotNil(t, models.config.TopK)
	assert.Equal(t, float32(40), *models.config.TopK)
}

func TestToGeminiContents(t *testing.T) {
	contents := toGeminiContents([]repositories.ChatMessage{
		{Role: repositories.UserRole, Content: "persona"},
		{Role: repositories.AvatarRole, Content: "ok"},
		{Role: "system", Content: "rules"},
	})

	require.Len(t, contents, 3)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, string(genai.RoleUser), contents[2].Role)
	assert.Equal(t, "rules", contents[2].Parts[0].Text)
}

func TestGeminiChatSession_SendMessage_Errors(t *testing.T) {
	tests := []struct {
		name   string
		models *fakeModels
	}{
		{name: "transport error", models: &fakeModels{err: errors.New("quota exceeded")}},
		{name: "no candidates", models: &fakeModels{response: &genai.GenerateContentResponse{}}},
		{name: "empty text", models: &fakeModels{response: textResponse("")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := NewGeminiChatSession(tt.models, GeminiConfig{APIKey: "k"}, zaptest.NewLogger(t), nil)
			require.NoError(t, err)

			_, err = session.SendMessage(context.Background(), repositories.ChatMessage{Role: repositories.UserRole, Content: "hello"})
			assert.Error(t, err)
		})
	}
}

func TestMockGeminiClient(t *testing.T) {
	client := NewStaticMockGeminiClient("not json")

	session, err := client.GenerateChat(context.Background(), nil)
	require.NoError(t, err)

	reply, err := session.SendMessage(context.Background(), repositories.ChatMessage{Role: repositories.UserRole, Content: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "not json", reply.Content)
	assert.Equal(t, []string{"ping"}, client.Prompts())
	assert.Equal(t, [][]repositories.ChatMessage{nil}, client.Primers())

	defaultReply, err := NewMockGeminiClient(nil).reply("anything")
	require.NoError(t, err)
	assert.Contains(t, defaultReply, `"animation":"Talking_1"`)
}
