// Package recovery persists the progress of a multi-volume conversion so
// that an interrupted run can resume where it stopped.
//
// Progress is a small JSON side file next to the outputs. It lists the
// source chapters whose volume was fully written, together with the volume
// size they were grouped by. A later run with the same volume size skips
// those chapters and continues numbering after the finished volumes.
package recovery

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// FileName is the side file name inside the output directory.
const FileName = ".comicpress-recovery.json"

// State is the persisted progress.
type State struct {
	// Done lists finished source chapter directory names in book order.
	Done []string `json:"done_chapters"`

	// ChaptersPerVolume is the volume size Done was grouped by.
	ChaptersPerVolume int `json:"chapters_per_volume,omitempty"`
}

// Contains reports whether chapter is already finished.
func (s *State) Contains(chapter string) bool {
	return slices.Contains(s.Done, chapter)
}

// Merge appends chapters that are not yet recorded, keeping order.
func (s *State) Merge(chapters ...string) {
	for _, c := range chapters {
		if !s.Contains(c) {
			s.Done = append(s.Done, c)
		}
	}
}

// FinishedVolumes returns how many volumes Done covers.
func (s *State) FinishedVolumes() int {
	if s.ChaptersPerVolume <= 0 {
		return 0
	}
	return (len(s.Done) + s.ChaptersPerVolume - 1) / s.ChaptersPerVolume
}

// FileStore keeps a State in a JSON file.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore returns a store for the side file in dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{path: filepath.Join(dir, FileName)}
}

// Path returns the side file path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the stored state. A missing or unreadable side file, or one
// written for a different volume size, yields a fresh state for
// chaptersPerVolume.
func (s *FileStore) Load(_ context.Context, chaptersPerVolume int) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fresh := &State{ChaptersPerVolume: chaptersPerVolume}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return fresh, nil
		}
		return nil, fmt.Errorf("read recovery file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fresh, nil
	}
	if st.ChaptersPerVolume != chaptersPerVolume {
		return fresh, nil
	}
	return &st, nil
}

// Save writes st, replacing the side file atomically.
func (s *FileStore) Save(_ context.Context, st *State) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal recovery state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create recovery dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write recovery file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write recovery file: %w", err)
	}
	return nil
}

// Delete removes the side file. A missing file is not an error.
func (s *FileStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove recovery file: %w", err)
	}
	return nil
}
