package media

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/adapters/storage"
	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
)

const defaultRhubarbCommand = "./bin/rhubarb -f json -o {output} {input} -r phonetic"

// RhubarbExtractor runs Rhubarb Lip Sync in phonetic recognition mode
type RhubarbExtractor struct {
	command commandTemplate
	logger  *zap.Logger
}

// Ensure RhubarbExtractor implements the VisemeExtractor interface
var _ repositories.VisemeExtractor = (*RhubarbExtractor)(nil)

// NewRhubarbExtractor creates an extractor; an empty command uses the default
func NewRhubarbExtractor(command string, logger *zap.Logger) (*RhubarbExtractor, error) {
	if command == "" {
		command = defaultRhubarbCommand
		logger.Info("Using default rhubarb command", zap.String("command", command))
	}
	tmpl, err := parseCommandTemplate(command)
	if err != nil {
		return nil, fmt.Errorf("invalid rhubarb command: %w", err)
	}
	return &RhubarbExtractor{command: tmpl, logger: logger}, nil
}

// ExtractVisemes writes the cue track for wavPath to outputPath and returns it parsed
func (r *RhubarbExtractor) ExtractVisemes(ctx context.Context, wavPath, outputPath string) (*domain.VisemeCueTrack, error) {
	start := time.Now()
	if _, err := r.command.run(ctx, wavPath, outputPath); err != nil {
		return nil, fmt.Errorf("failed to extract visemes from %s: %w", wavPath, err)
	}

	track, err := storage.ReadCueTrack(outputPath)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Lip sync done",
		zap.String("input", wavPath),
		zap.Int("mouthCues", len(track.MouthCues)),
		zap.Duration("elapsed", time.Since(start)))
	return track, nil
}
