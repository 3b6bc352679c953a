package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/wawa/adapters/llm"
	"github.com/satriahrh/wawa/adapters/storage"
	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/internal/saga"
)

// fakeSpeech returns "audio:<text>" so tests can check the bytes end to end
type fakeSpeech struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (f *fakeSpeech) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("audio:" + text), nil
}

func (f *fakeSpeech) calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

// fakeTranscoder copies the input to the output like a lossless conversion
type fakeTranscoder struct {
	err error
}

func (f *fakeTranscoder) Transcode(ctx context.Context, inputPath, outputPath string) error {
	if f.err != nil {
		return f.err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// fakeExtractor writes a one-cue track whose sound file is the input name.
// failAt makes the extraction of that call number (zero-based) fail.
// noTrack writes a broken document and reports success without a track.
type fakeExtractor struct {
	mu      sync.Mutex
	calls   int
	failAt  int
	noTrack bool
}

func newFakeExtractor() *fakeExtractor {
	return &fakeExtractor{failAt: -1}
}

func (f *fakeExtractor) ExtractVisemes(ctx context.Context, wavPath, outputPath string) (*domain.VisemeCueTrack, error) {
	f.mu.Lock()
	call := f.calls
	f.calls++
	f.mu.Unlock()

	if call == f.failAt {
		return nil, fmt.Errorf("rhubarb exited with status 1")
	}
	if _, err := os.Stat(wavPath); err != nil {
		return nil, err
	}
	if f.noTrack {
		return nil, os.WriteFile(outputPath, []byte("{oops"), 0o644)
	}

	track := cueTrackFor(filepath.Base(wavPath))
	data, err := json.Marshal(track)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(outputPath, data, 0o644); err != nil {
		return nil, err
	}
	return track, nil
}

func cueTrackFor(soundFile string) *domain.VisemeCueTrack {
	return &domain.VisemeCueTrack{
		Metadata:  domain.VisemeCueMetadata{SoundFile: soundFile, Duration: 0.4},
		MouthCues: []domain.MouthCue{{Start: 0, End: 0.4, Value: "B"}},
	}
}

type harness struct {
	root       string
	assets     string
	llm        *llm.MockGeminiClient
	speech     *fakeSpeech
	transcoder *fakeTranscoder
	extractor  *fakeExtractor
}

func newHarness(t *testing.T, reply llm.ReplyFunc) *harness {
	t.Helper()
	h := &harness{
		root:       t.TempDir(),
		assets:     t.TempDir(),
		llm:        llm.NewMockGeminiClient(reply),
		speech:     &fakeSpeech{},
		transcoder: &fakeTranscoder{},
		extractor:  newFakeExtractor(),
	}
	for _, name := range []string{"intro_0", "intro_1", "api_0", "api_1"} {
		writeAsset(t, h.assets, name)
	}
	return h
}

func writeAsset(t *testing.T, dir, name string) {
	t.Helper()
	data, err := json.Marshal(cueTrackFor(name + ".wav"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".wav"), []byte("wav:"+name), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".json"), data, 0o644))
}

func (h *harness) chatService(t *testing.T, hasCredentials bool, maxDrafts int) *ChatService {
	t.Helper()
	logger := zaptest.NewLogger(t)

	artifacts, err := storage.NewFileArtifactStore(h.root, logger)
	require.NoError(t, err)

	assembler := NewResponseAssembler()
	lipSync, err := NewLipSyncService(LipSyncConfig{
		Artifacts:  artifacts,
		Speech:     h.speech,
		Transcoder: h.transcoder,
		Extractor:  h.extractor,
		Assembler:  assembler,
		Sagas:      saga.NewManager(logger),
	}, logger)
	require.NoError(t, err)

	return NewChatService(
		NewCannedResponses(storage.NewFileAssetStore(h.assets), assembler),
		NewConversationBackend(h.llm, maxDrafts, logger),
		lipSync,
		hasCredentials,
		logger,
	)
}

// workspaces lists the request directories created under the artifact root
func (h *harness) workspaces(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(h.root)
	require.NoError(t, err)
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(h.root, e.Name()))
		}
	}
	return dirs
}

func staticReply(raw string) llm.ReplyFunc {
	return func(string) (string, error) { return raw, nil }
}
