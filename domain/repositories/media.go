package repositories

import (
	"context"

	"github.com/satriahrh/wawa/domain"
)

// AudioTranscoder converts synthesized speech into a waveform file the
// viseme extractor can read
type AudioTranscoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string) error
}

// VisemeExtractor derives a mouth-cue track from a waveform file. The track
// is written to outputPath and returned parsed.
type VisemeExtractor interface {
	ExtractVisemes(ctx context.Context, wavPath, outputPath string) (*domain.VisemeCueTrack, error)
}
