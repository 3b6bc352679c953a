package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// FacialExpression is the expression tag the renderer applies while a reply is spoken
type FacialExpression string

const (
	ExpressionSmile     FacialExpression = "smile"
	ExpressionSad       FacialExpression = "sad"
	ExpressionAngry     FacialExpression = "angry"
	ExpressionSurprised FacialExpression = "surprised"
	ExpressionFunnyFace FacialExpression = "funnyFace"
	ExpressionDefault   FacialExpression = "default"
)

// IsKnown reports whether the expression belongs to the renderer vocabulary.
// Unknown values are still forwarded untouched.
func (f FacialExpression) IsKnown() bool {
	switch f {
	case ExpressionSmile, ExpressionSad, ExpressionAngry,
		ExpressionSurprised, ExpressionFunnyFace, ExpressionDefault:
		return true
	}
	return false
}

// Animation is the body animation clip the renderer plays for a reply
type Animation string

const (
	AnimationTalking0  Animation = "Talking_0"
	AnimationTalking1  Animation = "Talking_1"
	AnimationTalking2  Animation = "Talking_2"
	AnimationCrying    Animation = "Crying"
	AnimationLaughing  Animation = "Laughing"
	AnimationRumba     Animation = "Rumba"
	AnimationIdle      Animation = "Idle"
	AnimationTerrified Animation = "Terrified"
	AnimationAngry     Animation = "Angry"
)

// IsKnown reports whether the animation belongs to the renderer vocabulary.
func (a Animation) IsKnown() bool {
	switch a {
	case AnimationTalking0, AnimationTalking1, AnimationTalking2, AnimationCrying,
		AnimationLaughing, AnimationRumba, AnimationIdle, AnimationTerrified, AnimationAngry:
		return true
	}
	return false
}

// ReplyDraft is a reply produced by the conversational backend before audio
// and lip-sync data are attached
type ReplyDraft struct {
	Text             string           `json:"text"`
	FacialExpression FacialExpression `json:"facialExpression"`
	Animation        Animation        `json:"animation"`
}

// MouthCue is one time-aligned mouth shape of a cue track
type MouthCue struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Value string  `json:"value"`
}

// VisemeCueMetadata describes the audio a cue track was extracted from
type VisemeCueMetadata struct {
	SoundFile string  `json:"soundFile"`
	Duration  float64 `json:"duration"`
}

// VisemeCueTrack is the lip-sync document produced by the viseme extractor.
// A decoded track keeps the original document and is encoded back as is, so
// fields the typed view does not know about still reach the renderer.
type VisemeCueTrack struct {
	Metadata  VisemeCueMetadata `json:"metadata"`
	MouthCues []MouthCue        `json:"mouthCues"`

	raw json.RawMessage
}

// visemeCueTrackFields has the fields of VisemeCueTrack without its methods
type visemeCueTrackFields VisemeCueTrack

// DecodeVisemeCueTrack parses a lip-sync JSON document
func DecodeVisemeCueTrack(data []byte) (*VisemeCueTrack, error) {
	var fields visemeCueTrackFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode cue track: %w", err)
	}
	track := VisemeCueTrack(fields)
	track.raw = append(json.RawMessage(nil), data...)
	return &track, nil
}

// MarshalJSON forwards the decoded document unchanged, or encodes the typed
// view for tracks built in code
func (t VisemeCueTrack) MarshalJSON() ([]byte, error) {
	if len(t.raw) > 0 {
		return t.raw, nil
	}
	return json.Marshal(visemeCueTrackFields(t))
}

// UnmarshalJSON keeps the document for forwarding
func (t *VisemeCueTrack) UnmarshalJSON(data []byte) error {
	track, err := DecodeVisemeCueTrack(data)
	if err != nil {
		return err
	}
	*t = *track
	return nil
}

// AudioBlob is audio content encoded for embedding in a JSON envelope
type AudioBlob string

// NewAudioBlob encodes raw audio bytes
func NewAudioBlob(audio []byte) AudioBlob {
	return AudioBlob(base64.StdEncoding.EncodeToString(audio))
}

// Bytes decodes the blob back to raw audio
func (b AudioBlob) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(string(b))
}

// ResponseMessage is a fully enriched reply exposed to the renderer
type ResponseMessage struct {
	Text             string           `json:"text"`
	Audio            AudioBlob        `json:"audio,omitempty"`
	Lipsync          *VisemeCueTrack  `json:"lipsync,omitempty"`
	FacialExpression FacialExpression `json:"facialExpression"`
	Animation        Animation        `json:"animation"`
}

// ResponseEnvelope is the ordered result of one chat request
type ResponseEnvelope struct {
	Messages []ResponseMessage `json:"messages"`
}

const fallbackText = "Sorry, I encountered an error. Please try again."

// FallbackEnvelope is returned to the caller when any pipeline stage fails.
// It never carries audio or lip-sync data.
func FallbackEnvelope() *ResponseEnvelope {
	return &ResponseEnvelope{
		Messages: []ResponseMessage{
			{
				Text:             fallbackText,
				FacialExpression: ExpressionSad,
				Animation:        AnimationIdle,
			},
		},
	}
}
