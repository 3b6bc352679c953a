package repositories

import (
	"context"

	"github.com/satriahrh/wawa/domain"
)

// ArtifactKind is the file type of an intermediate pipeline artifact
type ArtifactKind string

const (
	ArtifactSpeech   ArtifactKind = "mp3"
	ArtifactWaveform ArtifactKind = "wav"
	ArtifactCueTrack ArtifactKind = "json"
)

// ArtifactWorkspace is the request-scoped directory holding the files the
// external tools read and write. Every artifact is keyed by reply index.
type ArtifactWorkspace interface {
	ID() string
	Path(index int, kind ArtifactKind) string
	Write(index int, kind ArtifactKind, data []byte) (string, error)
	Remove(index int, kind ArtifactKind) error
}

// ArtifactStore opens fresh workspaces so concurrent requests never share paths
type ArtifactStore interface {
	OpenWorkspace(ctx context.Context) (ArtifactWorkspace, error)
}

// AssetStore serves the pre-rendered audio and cue tracks of canned replies
type AssetStore interface {
	LoadAudio(name string) ([]byte, error)
	LoadCueTrack(name string) (*domain.VisemeCueTrack, error)
}
