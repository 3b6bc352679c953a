package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/satriahrh/wawa/domain"
	"github.com/satriahrh/wawa/domain/repositories"
)

const artifactPrefix = "message_"

// FileArtifactStore creates request-scoped workspaces under a root directory
type FileArtifactStore struct {
	root   string
	logger *zap.Logger
}

// Ensure FileArtifactStore implements the ArtifactStore interface
var _ repositories.ArtifactStore = (*FileArtifactStore)(nil)

// NewFileArtifactStore creates the root directory if needed
func NewFileArtifactStore(root string, logger *zap.Logger) (*FileArtifactStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("artifact root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact root: %w", err)
	}
	return &FileArtifactStore{root: root, logger: logger}, nil
}

// Root returns the directory all workspaces live in
func (s *FileArtifactStore) Root() string {
	return s.root
}

// OpenWorkspace creates a fresh directory named by a random request id
func (s *FileArtifactStore) OpenWorkspace(ctx context.Context) (repositories.ArtifactWorkspace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := uuid.New().String()
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create workspace %s: %w", id, err)
	}

	s.logger.Debug("Opened artifact workspace", zap.String("workspace", id), zap.String("dir", dir))
	return &FileWorkspace{id: id, dir: dir}, nil
}

// FileWorkspace is one request's artifact directory
type FileWorkspace struct {
	id  string
	dir string
}

// Ensure FileWorkspace implements the ArtifactWorkspace interface
var _ repositories.ArtifactWorkspace = (*FileWorkspace)(nil)

func (w *FileWorkspace) ID() string {
	return w.id
}

// Path returns message_<index>.<kind> inside the workspace
func (w *FileWorkspace) Path(index int, kind repositories.ArtifactKind) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s%d.%s", artifactPrefix, index, kind))
}

// Write creates or overwrites the artifact and returns its path
func (w *FileWorkspace) Write(index int, kind repositories.ArtifactKind, data []byte) (string, error) {
	path := w.Path(index, kind)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// Remove deletes the artifact; a missing file is not an error
func (w *FileWorkspace) Remove(index int, kind repositories.ArtifactKind) error {
	path := w.Path(index, kind)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// FileAssetStore reads canned reply assets named <name>.wav and <name>.json
type FileAssetStore struct {
	dir string
}

// Ensure FileAssetStore implements the AssetStore interface
var _ repositories.AssetStore = (*FileAssetStore)(nil)

func NewFileAssetStore(dir string) *FileAssetStore {
	return &FileAssetStore{dir: dir}
}

func (s *FileAssetStore) LoadAudio(name string) ([]byte, error) {
	path := filepath.Join(s.dir, name+".wav")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read asset audio %s: %w", path, err)
	}
	return data, nil
}

func (s *FileAssetStore) LoadCueTrack(name string) (*domain.VisemeCueTrack, error) {
	return ReadCueTrack(filepath.Join(s.dir, name+".json"))
}

// ReadCueTrack reads and parses a lip-sync JSON document
func ReadCueTrack(path string) (*domain.VisemeCueTrack, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cue track %s: %w", path, err)
	}
	return DecodeCueTrack(data)
}

// DecodeCueTrack parses a lip-sync JSON document
func DecodeCueTrack(data []byte) (*domain.VisemeCueTrack, error) {
	return domain.DecodeVisemeCueTrack(data)
}
