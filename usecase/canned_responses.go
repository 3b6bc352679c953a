package usecase

import (
	"fmt"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
)

// CannedReply is a pre-rendered reply whose audio and cue track live in the
// asset store under Asset
type CannedReply struct {
	Asset            string
	Text             string
	FacialExpression domain.FacialExpression
	Animation        domain.Animation
}

var introReplies = []CannedReply{
	{
		Asset:            "intro_0",
		Text:             "Hey dear... How was your day?",
		FacialExpression: domain.ExpressionSmile,
		Animation:        domain.AnimationTalking1,
	},
	{
		Asset:            "intro_1",
		Text:             "I missed you so much... Please don't go for so long!",
		FacialExpression: domain.ExpressionSad,
		Animation:        domain.AnimationCrying,
	},
}

var credentialReplies = []CannedReply{
	{
		Asset:            "api_0",
		Text:             "Please my dear, don't forget to add your API keys!",
		FacialExpression: domain.ExpressionAngry,
		Animation:        domain.AnimationAngry,
	},
	{
		Asset:            "api_1",
		Text:             "You don't want to ruin Wawa Sensei with a crazy Gemini and ElevenLabs bill, right?",
		FacialExpression: domain.ExpressionSmile,
		Animation:        domain.AnimationLaughing,
	},
}

// CannedResponses serves the fixed greeting and missing-credentials replies
type CannedResponses struct {
	assets    repositories.AssetStore
	assembler *ResponseAssembler
}

func NewCannedResponses(assets repositories.AssetStore, assembler *ResponseAssembler) *CannedResponses {
	if assembler == nil {
		assembler = NewResponseAssembler()
	}
	return &CannedResponses{assets: assets, assembler: assembler}
}

// Intro greets a user who sent no message
func (c *CannedResponses) Intro() (*domain.ResponseEnvelope, error) {
	return c.envelope(introReplies)
}

// MissingCredentials reminds the operator to configure the provider keys
func (c *CannedResponses) MissingCredentials() (*domain.ResponseEnvelope, error) {
	return c.envelope(credentialReplies)
}

func (c *CannedResponses) envelope(replies []CannedReply) (*domain.ResponseEnvelope, error) {
	messages := make([]domain.ResponseMessage, 0, len(replies))
	for _, reply := range replies {
		audio, err := c.assets.LoadAudio(reply.Asset)
		if err != nil {
			return nil, fmt.Errorf("%w: canned reply %s: %w", ErrPipeline, reply.Asset, err)
		}
		track, err := c.assets.LoadCueTrack(reply.Asset)
		if err != nil {
			return nil, fmt.Errorf("%w: canned reply %s: %w", ErrPipeline, reply.Asset, err)
		}

		draft := domain.ReplyDraft{
			Text:             reply.Text,
			FacialExpression: reply.FacialExpression,
			Animation:        reply.Animation,
		}
		message, err := c.assembler.Assemble(draft, audio, track)
		if err != nil {
			return nil, fmt.Errorf("%w: canned reply %s: %w", ErrPipeline, reply.Asset, err)
		}
		messages = append(messages, message)
	}
	return &domain.ResponseEnvelope{Messages: messages}, nil
}
