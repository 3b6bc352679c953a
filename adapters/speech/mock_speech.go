package speech

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain/repositories"
)

// MockTextToSpeech is a placeholder implementation for text-to-speech used
// for local development without an Eleven Labs account
type MockTextToSpeech struct {
	logger *zap.Logger
}

// NewMockTextToSpeech creates a new mock text-to-speech service
func NewMockTextToSpeech(logger *zap.Logger) *MockTextToSpeech {
	return &MockTextToSpeech{
		logger: logger,
	}
}

// Ensure MockTextToSpeech implements the TextToSpeech and VoiceCatalog interfaces
var (
	_ repositories.TextToSpeech = (*MockTextToSpeech)(nil)
	_ repositories.VoiceCatalog = (*MockTextToSpeech)(nil)
)

// SynthesizeSpeech implements repositories.TextToSpeech
func (t *MockTextToSpeech) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	t.logger.Info("Processing mock text-to-speech", zap.Int("textLength", len(text)))

	// Mock audio data - generate based on text length
	audioSize := len(text) * 100
	mockAudio := make([]byte, audioSize)

	// Fill with some pattern to simulate audio data
	for i := range mockAudio {
		mockAudio[i] = byte(i % 256)
	}

	return mockAudio, nil
}

// ListVoices implements repositories.VoiceCatalog
func (t *MockTextToSpeech) ListVoices(ctx context.Context) ([]repositories.Voice, error) {
	return []repositories.Voice{{ID: "mock", Name: "Mock Voice"}}, nil
}
