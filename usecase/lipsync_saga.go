package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
	"github.com/satriahrh/wawa/internal/saga"
)

// LipSyncSagaID names the per-reply enrichment saga
const LipSyncSagaID = "lipsync_reply"

// Step ids, in execution order
const (
	StepSynthesize     saga.StepID = "synthesize"
	StepTranscode      saga.StepID = "transcode"
	StepExtractVisemes saga.StepID = "extract_visemes"
	StepAssemble       saga.StepID = "assemble"
)

// Saga data keys
const (
	dataWorkspace = "workspace"
	dataIndex     = "index"
	dataDraft     = "draft"
	dataAudio     = "audio"
	dataCueTrack  = "cue_track"
	dataMessage   = "message"
)

type replyInput struct {
	ws    repositories.ArtifactWorkspace
	index int
	draft domain.ReplyDraft
}

func readReplyInput(data saga.SagaData) (in replyInput, err error) {
	if in.ws, err = saga.Lookup[repositories.ArtifactWorkspace](data, dataWorkspace); err != nil {
		return replyInput{}, err
	}
	if in.index, err = saga.Lookup[int](data, dataIndex); err != nil {
		return replyInput{}, err
	}
	if in.draft, err = saga.Lookup[domain.ReplyDraft](data, dataDraft); err != nil {
		return replyInput{}, err
	}
	return in, nil
}

// lipSyncDefinition runs one reply through synthesize, transcode,
// extract_visemes and assemble. Compensation removes the files the completed
// steps wrote so a failed reply leaves no half-built artifacts behind.
type lipSyncDefinition struct {
	steps []saga.Step
}

func newLipSyncDefinition(
	tts repositories.TextToSpeech,
	transcoder repositories.AudioTranscoder,
	extractor repositories.VisemeExtractor,
	assembler *ResponseAssembler,
) *lipSyncDefinition {
	return &lipSyncDefinition{
		steps: []saga.Step{
			&synthesizeStep{tts: tts},
			&transcodeStep{transcoder: transcoder},
			&extractVisemesStep{extractor: extractor},
			&assembleStep{assembler: assembler},
		},
	}
}

func (d *lipSyncDefinition) ID() string { return LipSyncSagaID }

func (d *lipSyncDefinition) Steps() []saga.Step { return d.steps }

// Timeout is zero; the whole enrichment is bounded by the caller's context
func (d *lipSyncDefinition) Timeout() time.Duration { return 0 }

type synthesizeStep struct {
	tts repositories.TextToSpeech
}

func (s *synthesizeStep) ID() saga.StepID { return StepSynthesize }

func (s *synthesizeStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	in, err := readReplyInput(data)
	if err != nil {
		return saga.Failed(err)
	}

	audio, err := s.tts.SynthesizeSpeech(ctx, in.draft.Text)
	if err != nil {
		return saga.Failed(fmt.Errorf("failed to synthesize reply %d: %w", in.index, err))
	}

	// ffmpeg reads the speech from disk; assembly uses the bytes kept here
	path, err := in.ws.Write(in.index, repositories.ArtifactSpeech, audio)
	if err != nil {
		return saga.Failed(err)
	}
	data[dataAudio] = audio
	return saga.Succeeded(path)
}

func (s *synthesizeStep) Compensate(ctx context.Context, data saga.SagaData) error {
	delete(data, dataAudio)
	return removeArtifact(data, repositories.ArtifactSpeech)
}

type transcodeStep struct {
	transcoder repositories.AudioTranscoder
}

func (s *transcodeStep) ID() saga.StepID { return StepTranscode }

func (s *transcodeStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	in, err := readReplyInput(data)
	if err != nil {
		return saga.Failed(err)
	}

	input := in.ws.Path(in.index, repositories.ArtifactSpeech)
	output := in.ws.Path(in.index, repositories.ArtifactWaveform)
	if err := s.transcoder.Transcode(ctx, input, output); err != nil {
		return saga.Failed(fmt.Errorf("failed to transcode reply %d: %w", in.index, err))
	}
	return saga.Succeeded(output)
}

func (s *transcodeStep) Compensate(ctx context.Context, data saga.SagaData) error {
	return removeArtifact(data, repositories.ArtifactWaveform)
}

type extractVisemesStep struct {
	extractor repositories.VisemeExtractor
}

func (s *extractVisemesStep) ID() saga.StepID { return StepExtractVisemes }

func (s *extractVisemesStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	in, err := readReplyInput(data)
	if err != nil {
		return saga.Failed(err)
	}

	input := in.ws.Path(in.index, repositories.ArtifactWaveform)
	output := in.ws.Path(in.index, repositories.ArtifactCueTrack)
	track, err := s.extractor.ExtractVisemes(ctx, input, output)
	if err != nil {
		return saga.Failed(fmt.Errorf("failed to extract visemes of reply %d: %w", in.index, err))
	}

	data[dataCueTrack] = track
	return saga.Succeeded(output)
}

func (s *extractVisemesStep) Compensate(ctx context.Context, data saga.SagaData) error {
	delete(data, dataCueTrack)
	return removeArtifact(data, repositories.ArtifactCueTrack)
}

type assembleStep struct {
	assembler *ResponseAssembler
}

func (s *assembleStep) ID() saga.StepID { return StepAssemble }

func (s *assembleStep) Execute(ctx context.Context, data saga.SagaData) saga.StepResult {
	in, err := readReplyInput(data)
	if err != nil {
		return saga.Failed(err)
	}

	audio, err := saga.Lookup[[]byte](data, dataAudio)
	if err != nil {
		return saga.Failed(err)
	}
	track, err := saga.Lookup[*domain.VisemeCueTrack](data, dataCueTrack)
	if err != nil {
		return saga.Failed(err)
	}

	message, err := s.assembler.Assemble(in.draft, audio, track)
	if err != nil {
		return saga.Failed(fmt.Errorf("failed to assemble reply %d: %w", in.index, err))
	}

	data[dataMessage] = message
	return saga.Succeeded(nil)
}

func (s *assembleStep) Compensate(ctx context.Context, data saga.SagaData) error {
	delete(data, dataMessage)
	return nil
}

func removeArtifact(data saga.SagaData, kind repositories.ArtifactKind) error {
	in, err := readReplyInput(data)
	if err != nil {
		return err
	}
	return in.ws.Remove(in.index, kind)
}
