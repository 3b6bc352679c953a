package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
	"github.com/satriahrh/wawa/internal/saga"
)

// DefaultPipelineTimeout bounds one enrichment when no timeout is configured
const DefaultPipelineTimeout = 2 * time.Minute

// LipSyncConfig holds the collaborators of the enrichment pipeline
type LipSyncConfig struct {
	Artifacts  repositories.ArtifactStore
	Speech     repositories.TextToSpeech
	Transcoder repositories.AudioTranscoder
	Extractor  repositories.VisemeExtractor
	Assembler  *ResponseAssembler
	Sagas      *saga.Manager
	Timeout    time.Duration
}

// ValidateLipSyncConfig validates the LipSyncConfig
func ValidateLipSyncConfig(config LipSyncConfig) error {
	if config.Artifacts == nil {
		return fmt.Errorf("artifact store is required")
	}
	if config.Speech == nil {
		return fmt.Errorf("speech synthesizer is required")
	}
	if config.Transcoder == nil {
		return fmt.Errorf("audio transcoder is required")
	}
	if config.Extractor == nil {
		return fmt.Errorf("viseme extractor is required")
	}
	if config.Sagas == nil {
		return fmt.Errorf("saga manager is required")
	}
	if config.Timeout < 0 {
		return fmt.Errorf("pipeline timeout must be positive, got %s", config.Timeout)
	}
	return nil
}

// LipSyncService enriches reply drafts with speech audio and lip-sync cues
type LipSyncService struct {
	artifacts repositories.ArtifactStore
	sagas     *saga.Manager
	timeout   time.Duration
	logger    *zap.Logger
}

// NewLipSyncService registers the per-reply saga with the manager
func NewLipSyncService(config LipSyncConfig, logger *zap.Logger) (*LipSyncService, error) {
	if err := ValidateLipSyncConfig(config); err != nil {
		return nil, err
	}

	assembler := config.Assembler
	if assembler == nil {
		assembler = NewResponseAssembler()
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultPipelineTimeout
		logger.Info("Using default pipeline timeout", zap.Duration("timeout", timeout))
	}

	config.Sagas.RegisterDefinition(newLipSyncDefinition(config.Speech, config.Transcoder, config.Extractor, assembler))

	return &LipSyncService{
		artifacts: config.Artifacts,
		sagas:     config.Sagas,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

// Enrich runs every draft through the pipeline in index order. The first
// failing reply aborts the request; no partial envelope is returned.
func (s *LipSyncService) Enrich(ctx context.Context, drafts []domain.ReplyDraft) (*domain.ResponseEnvelope, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ws, err := s.artifacts.OpenWorkspace(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open artifact workspace: %w", ErrPipeline, err)
	}

	started := time.Now()
	messages := make([]domain.ResponseMessage, 0, len(drafts))
	for index, draft := range drafts {
		instance, err := s.sagas.Run(ctx, LipSyncSagaID, saga.SagaData{
			dataWorkspace: ws,
			dataIndex:     index,
			dataDraft:     draft,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: reply %d: %w", ErrPipeline, index, err)
		}

		message, err := saga.Lookup[domain.ResponseMessage](instance.Data, dataMessage)
		if err != nil {
			return nil, fmt.Errorf("%w: reply %d: %w", ErrPipeline, index, err)
		}
		messages = append(messages, message)

		fields := []zap.Field{
			zap.String("workspace", ws.ID()),
			zap.Int("index", index),
		}
		for _, step := range instance.Steps {
			fields = append(fields, zap.Duration(string(step.ID), step.Duration()))
		}
		s.logger.Info("Reply enriched", fields...)
	}

	s.logger.Info("Enrichment done",
		zap.String("workspace", ws.ID()),
		zap.Int("messages", len(messages)),
		zap.Duration("duration", time.Since(started)))

	return &domain.ResponseEnvelope{Messages: messages}, nil
}
