// Package artifact persists collected records as JSON files. Writes go
// through a temp-file-plus-rename so a concurrent reader of the same path
// never observes a half-written artifact.
package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/dugoutdata/dugout/internal/logger"
)

// ErrNotFound indicates no artifact exists at the requested path
var ErrNotFound = errors.New("artifact not found")

// PersistenceError indicates an artifact could not be durably stored or read
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

// Error implements the error interface
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("artifact %s failed for %s: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping
func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Store writes and reads artifacts under a root directory
type Store struct {
	root   string
	logger *logger.Logger
}

// New creates an artifact store rooted at root
func New(root string) *Store {
	return &Store{
		root:   root,
		logger: logger.GetLogger().Artifact(),
	}
}

// Abs returns the absolute path for a root-relative artifact path
func (s *Store) Abs(rel string) string {
	return filepath.Join(s.root, filepath.FromSlash(rel))
}

// Write serializes the record to the given root-relative path, replacing any
// prior artifact atomically. Old timestamped snapshots of the same artifact
// are removed first so disk usage stays bounded. Returns the number of bytes
// written.
func (s *Store) Write(rel string, record interface{}) (int64, error) {
	path := s.Abs(rel)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, &PersistenceError{Op: "write", Path: path, Err: err}
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return 0, &PersistenceError{Op: "write", Path: path, Err: err}
	}

	s.cleanupSnapshots(path)

	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return 0, &PersistenceError{Op: "write", Path: path, Err: err}
	}

	s.logger.Debug().Str("path", path).Int("bytes", len(data)).Msg("Wrote artifact")
	return int64(len(data)), nil
}

// Read deserializes the artifact at the given root-relative path into out.
// Returns ErrNotFound when no artifact exists.
func (s *Store) Read(rel string, out interface{}) error {
	path := s.Abs(rel)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return &PersistenceError{Op: "read", Path: path, Err: err}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return &PersistenceError{Op: "read", Path: path, Err: err}
	}

	return nil
}

// cleanupSnapshots removes legacy timestamped copies of an artifact, e.g.
// rosters_20250411T0700.json next to rosters.json. History retention is the
// caller's responsibility; by default only the current artifact is kept.
func (s *Store) cleanupSnapshots(path string) {
	base := strings.TrimSuffix(filepath.Base(path), ".json")
	pattern := filepath.Join(filepath.Dir(path), base+"_*.json")

	matches, err := filepath.Glob(pattern)
	if err != nil {
		return
	}

	for _, old := range matches {
		if err := os.Remove(old); err != nil {
			s.logger.Warn().Err(err).Str("path", old).Msg("Failed to remove old artifact snapshot")
			continue
		}
		s.logger.Debug().Str("path", old).Msg("Removed old artifact snapshot")
	}
}
