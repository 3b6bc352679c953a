package usecase

import (
	"fmt"

	"github.com/satriahrh/wawa/domain"
)

// ResponseAssembler merges a draft with its audio and cue track
type ResponseAssembler struct{}

func NewResponseAssembler() *ResponseAssembler {
	return &ResponseAssembler{}
}

// Assemble builds the renderer message; audio is embedded byte for byte.
// A reply without audio or without a cue track cannot be rendered.
func (a *ResponseAssembler) Assemble(draft domain.ReplyDraft, audio []byte, track *domain.VisemeCueTrack) (domain.ResponseMessage, error) {
	if len(audio) == 0 {
		return domain.ResponseMessage{}, fmt.Errorf("reply %q has no audio", draft.Text)
	}
	if track == nil {
		return domain.ResponseMessage{}, fmt.Errorf("reply %q has no cue track", draft.Text)
	}

	return domain.ResponseMessage{
		Text:             draft.Text,
		Audio:            domain.NewAudioBlob(audio),
		Lipsync:          track,
		FacialExpression: draft.FacialExpression,
		Animation:        draft.Animation,
	}, nil
}
