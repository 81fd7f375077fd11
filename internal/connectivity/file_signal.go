package connectivity

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/MKhiriev/civic-sync/internal/logger"
)

// FileSignal follows a status file written by the host network hook. The
// file holds "online" or "offline"; a missing file or any other content is
// read as offline.
type FileSignal struct {
	path   string
	logger *logger.Logger
}

func NewFileSignal(path string, logger *logger.Logger) *FileSignal {
	return &FileSignal{path: path, logger: logger}
}

// Read returns the state the file currently holds.
func (s *FileSignal) Read() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(string(data)), "online")
}

// Watch implements [Signal]. The directory is watched rather than the file so
// that hooks replacing the file atomically (write + rename) are seen.
func (s *FileSignal) Watch(ctx context.Context, observe func(online bool)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(s.path)
	if err = watcher.Add(dir); err != nil {
		return fmt.Errorf("error watching %s: %w", dir, err)
	}

	observe(s.Read())

	name := filepath.Clean(s.path)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			observe(s.Read())
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(werr).Str("func", "FileSignal.Watch").Msg("watcher error")
		}
	}
}
