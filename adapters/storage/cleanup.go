package storage

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ArtifactCleanupService periodically removes request workspaces older than
// the retention window
type ArtifactCleanupService struct {
	root      string
	retention time.Duration
	interval  time.Duration
	logger    *zap.Logger
	stopChan  chan struct{}
	now       func() time.Time
}

// NewArtifactCleanupService creates a cleanup service for the store's root
func NewArtifactCleanupService(root string, retention time.Duration, logger *zap.Logger) *ArtifactCleanupService {
	interval := retention / 2
	if interval < time.Minute {
		interval = time.Minute
	}
	return &ArtifactCleanupService{
		root:      root,
		retention: retention,
		interval:  interval,
		logger:    logger,
		stopChan:  make(chan struct{}),
		now:       time.Now,
	}
}

// Start begins the background cleanup process
func (s *ArtifactCleanupService) Start() {
	go s.cleanupLoop()
	s.logger.Info("Artifact cleanup service started",
		zap.String("root", s.root),
		zap.Duration("retention", s.retention),
		zap.Duration("interval", s.interval))
}

// Stop gracefully stops the cleanup service
func (s *ArtifactCleanupService) Stop() {
	close(s.stopChan)
	s.logger.Info("Artifact cleanup service stopped")
}

func (s *ArtifactCleanupService) cleanupLoop() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunCleanup()
		}
	}
}

// RunCleanup deletes every workspace directory last modified before the
// retention cutoff and returns how many were removed
func (s *ArtifactCleanupService) RunCleanup() int {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		s.logger.Error("Failed to list artifact workspaces", zap.Error(err))
		return 0
	}

	cutoff := s.now().Add(-s.retention)
	removed := 0
	for _, entry := range entries {
		// Only directories named by OpenWorkspace are ours to delete
		if !entry.IsDir() || uuid.Validate(entry.Name()) != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove artifact workspace", zap.String("dir", dir), zap.Error(err))
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Artifact cleanup completed", zap.Int("removed", removed))
	}
	return removed
}
