package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
)

// ErrPipeline marks a failure of any stage between the user message and the
// finished envelope. Callers answer it with domain.FallbackEnvelope.
var ErrPipeline = errors.New("reply pipeline failed")

// ChatService answers one user message with an enriched reply envelope
type ChatService struct {
	canned         *CannedResponses
	backend        *ConversationBackend
	lipSync        *LipSyncService
	hasCredentials bool
	logger         *zap.Logger
}

// NewChatService creates a chat service. backend and lipSync may be nil when
// hasCredentials is false; those requests are always answered from canned replies.
func NewChatService(
	canned *CannedResponses,
	backend *ConversationBackend,
	lipSync *LipSyncService,
	hasCredentials bool,
	logger *zap.Logger,
) *ChatService {
	return &ChatService{
		canned:         canned,
		backend:        backend,
		lipSync:        lipSync,
		hasCredentials: hasCredentials && backend != nil && lipSync != nil,
		logger:         logger,
	}
}

// Chat applies, in order: the greeting for an empty message, the
// missing-credentials reply, then the backend and enrichment pipeline.
func (s *ChatService) Chat(ctx context.Context, message string) (*domain.ResponseEnvelope, error) {
	if message == "" {
		s.logger.Debug("Empty message, answering with intro")
		return s.canned.Intro()
	}

	if !s.hasCredentials {
		s.logger.Warn("Provider credentials missing, answering with reminder")
		return s.canned.MissingCredentials()
	}

	result, err := s.backend.Drafts(ctx, message)
	if err != nil {
		return nil, err
	}

	drafts := result.Items()
	s.logger.Info("Received drafts",
		zap.Int("count", len(drafts)),
		zap.Bool("degraded", result.Degraded()))

	return s.lipSync.Enrich(ctx, drafts)
}
