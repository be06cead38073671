// Package state persists the last-known repository and package counters
// between runs as a single JSON snapshot file.
package state

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spiffcs/pulse/internal/log"
)

// TimeLayout is the timestamp format used in the snapshot file and for
// explicit cutoffs: ISO-8601 UTC with second precision and a literal Z.
const TimeLayout = "2006-01-02T15:04:05Z"

// utf8BOM is written at the start of the snapshot file and stripped on
// read. The file format predates this tool and its other consumers
// expect the marker.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RepoSnapshot holds the last observed counters for one repository.
// Fields are pointers so a partially populated legacy entry is
// distinguishable from an explicit zero.
type RepoSnapshot struct {
	Stars *int `json:"stars,omitempty"`
	Forks *int `json:"forks,omitempty"`
}

// PackageSnapshot holds the last observed download count for one
// gallery package.
type PackageSnapshot struct {
	Downloads *int `json:"downloads,omitempty"`
}

// Snapshot is the persisted last-known state for one owner.
type Snapshot struct {
	LastCheck *string                    `json:"last_check"`
	Repos     map[string]RepoSnapshot    `json:"repos"`
	Packages  map[string]PackageSnapshot `json:"psgallery"`
}

// emptySnapshot returns a snapshot with all maps allocated so callers
// never nil-check.
func emptySnapshot() Snapshot {
	return Snapshot{
		Repos:    make(map[string]RepoSnapshot),
		Packages: make(map[string]PackageSnapshot),
	}
}

// Store manages persistence of the snapshot file.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// DefaultPath returns the snapshot location under the user cache dir.
func DefaultPath() (string, error) {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cacheDir, "pulse", "state.json"), nil
}

// Load reads the snapshot from disk. A missing or corrupt file yields a
// fresh empty snapshot with a warning; Load never fails the caller.
func (s *Store) Load() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) read() Snapshot {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not read state file, starting fresh", "path", s.path, "error", err)
		}
		return emptySnapshot()
	}

	data = bytes.TrimPrefix(data, utf8BOM)

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Warn("state file corrupt, starting fresh", "path", s.path, "error", err)
		return emptySnapshot()
	}
	if snap.Repos == nil {
		snap.Repos = make(map[string]RepoSnapshot)
	}
	if snap.Packages == nil {
		snap.Packages = make(map[string]PackageSnapshot)
	}
	return snap
}

// Save merges the patch into the persisted snapshot: patched keys win,
// keys absent from the patch survive unchanged. Parent directories are
// created on demand and the file is replaced via temp-file + rename.
func (s *Store) Save(patch Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.read()
	if patch.LastCheck != nil {
		current.LastCheck = patch.LastCheck
	}
	for name, repo := range patch.Repos {
		current.Repos[name] = repo
	}
	for name, pkg := range patch.Packages {
		current.Packages[name] = pkg
	}

	return s.write(current)
}

func (s *Store) write(snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	payload := append(append([]byte{}, utf8BOM...), data...)
	payload = append(payload, '\n')
	if err := os.WriteFile(tmp, payload, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}

	log.Debug("saved state", "path", s.path, "repos", len(snap.Repos), "packages", len(snap.Packages))
	return nil
}

// Reset removes the snapshot file entirely.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// FormatTime renders a time in the snapshot's timestamp format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a snapshot-format timestamp.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeLayout, s)
}

// Int returns a pointer to v, for building snapshot entries.
func Int(v int) *int {
	return &v
}
