package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
)

// DefaultMaxDrafts caps how many replies one request may produce
const DefaultMaxDrafts = 3

const promptTemplate = `Create response for: %s.
Respond with JSON array format like this: [{ "text": "message text", "facialExpression": "smile|sad|angry|surprised|funnyFace|default", "animation": "Talking_0|Talking_1|Talking_2|Crying|Laughing|Rumba|Idle|Terrified|Angry" }]`

// personaHistory primes every chat with the avatar's role and output contract
func personaHistory() []repositories.ChatMessage {
	return []repositories.ChatMessage{
		{
			Role:    repositories.UserRole,
			Content: "You are a virtual girlfriend. Always respond with a JSON array of messages (max 3). Each message should have text, facialExpression, and animation properties.",
		},
		{
			Role:    repositories.AvatarRole,
			Content: "Understood! I'll respond with properly formatted JSON containing virtual girlfriend messages.",
		},
	}
}

// ConversationBackend turns a user message into reply drafts
type ConversationBackend struct {
	llm       repositories.LargeLanguageModel
	maxDrafts int
	logger    *zap.Logger
}

// NewConversationBackend creates a backend; maxDrafts <= 0 uses DefaultMaxDrafts
func NewConversationBackend(llm repositories.LargeLanguageModel, maxDrafts int, logger *zap.Logger) *ConversationBackend {
	if maxDrafts <= 0 {
		maxDrafts = DefaultMaxDrafts
		logger.Info("Using default max drafts", zap.Int("maxDrafts", maxDrafts))
	}
	return &ConversationBackend{
		llm:       llm,
		maxDrafts: maxDrafts,
		logger:    logger,
	}
}

// Prompt wraps the user message with the reply format instructions
func Prompt(message string) string {
	return fmt.Sprintf(promptTemplate, message)
}

// Drafts asks the backend for a reply. Malformed output degrades to a single
// raw-text draft; only transport failures are returned as errors.
func (b *ConversationBackend) Drafts(ctx context.Context, message string) (domain.DraftParseResult, error) {
	session, err := b.llm.GenerateChat(ctx, personaHistory())
	if err != nil {
		return domain.DraftParseResult{}, fmt.Errorf("%w: failed to start chat session: %w", ErrPipeline, err)
	}

	reply, err := session.SendMessage(ctx, repositories.ChatMessage{
		Role:    repositories.UserRole,
		Content: Prompt(message),
	})
	if err != nil {
		return domain.DraftParseResult{}, fmt.Errorf("%w: failed to get reply from backend: %w", ErrPipeline, err)
	}

	result := domain.ParseDrafts(reply.Content)
	if result.Degraded() {
		b.logger.Warn("Backend reply is not a draft list, using raw text",
			zap.String("reason", result.Fallback.Reason),
			zap.Int("length", len(result.Fallback.Raw)))
		return result, nil
	}

	if len(result.Drafts) > b.maxDrafts {
		b.logger.Warn("Backend returned too many drafts, truncating",
			zap.Int("received", len(result.Drafts)),
			zap.Int("maxDrafts", b.maxDrafts))
		result.Drafts = result.Drafts[:b.maxDrafts]
	}

	for i, draft := range result.Drafts {
		if !draft.FacialExpression.IsKnown() || !draft.Animation.IsKnown() {
			b.logger.Debug("Draft uses tags outside the renderer vocabulary",
				zap.Int("index", i),
				zap.String("facialExpression", string(draft.FacialExpression)),
				zap.String("animation", string(draft.Animation)))
		}
	}

	return result, nil
}
