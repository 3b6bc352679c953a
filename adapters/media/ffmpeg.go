package media

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain/repositories"
)

const defaultFFmpegCommand = "ffmpeg -y -i {input} {output}"

// FFmpegTranscoder converts synthesized speech into a waveform file
type FFmpegTranscoder struct {
	command commandTemplate
	logger  *zap.Logger
}

// Ensure FFmpegTranscoder implements the AudioTranscoder interface
var _ repositories.AudioTranscoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a transcoder; an empty command uses the default
func NewFFmpegTranscoder(command string, logger *zap.Logger) (*FFmpegTranscoder, error) {
	if command == "" {
		command = defaultFFmpegCommand
		logger.Info("Using default ffmpeg command", zap.String("command", command))
	}
	tmpl, err := parseCommandTemplate(command)
	if err != nil {
		return nil, fmt.Errorf("invalid ffmpeg command: %w", err)
	}
	return &FFmpegTranscoder{command: tmpl, logger: logger}, nil
}

// Transcode converts inputPath into outputPath
func (f *FFmpegTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); err != nil {
		return fmt.Errorf("transcode input unavailable: %w", err)
	}

	start := time.Now()
	if _, err := f.command.run(ctx, inputPath, outputPath); err != nil {
		return fmt.Errorf("failed to transcode %s: %w", inputPath, err)
	}

	f.logger.Info("Conversion done",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}
