package repositories

import "context"

// TextToSpeech renders reply text into encoded speech audio
type TextToSpeech interface {
	// SynthesizeSpeech returns the complete audio for text
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

// Voice is one voice offered by a speech provider
type Voice struct {
	ID         string `json:"voice_id"`
	Name       string `json:"name"`
	Category   string `json:"category,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// VoiceCatalog lists the voices a speech provider offers
type VoiceCatalog interface {
	ListVoices(ctx context.Context) ([]Voice, error)
}
