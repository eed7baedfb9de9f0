// Package hashstore persists the last-known content hash for each sync unit
// as a small JSON sidecar file. One file per unit under
// <root>/<namespace>/, so concurrent workers never contend on the same path.
package hashstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/natefinch/atomic"

	"github.com/dugoutdata/dugout/internal/logger"
)

// Record is the persisted sidecar for one sync unit
type Record struct {
	UnitKey      []string  `json:"unit_key"`
	ContentHash  string    `json:"content_hash"`
	ComputedAt   time.Time `json:"computed_at"`
	SizeBytes    int64     `json:"size_bytes"`
	ArtifactPath string    `json:"artifact_path"`
}

// Store manages sidecar files for one collector namespace
type Store struct {
	root      string
	namespace string
	clock     clockwork.Clock
	logger    *logger.Logger
}

// New creates a hash store rooted at root for the given collector namespace
func New(root, namespace string) *Store {
	return NewWithClock(root, namespace, clockwork.NewRealClock())
}

// NewWithClock creates a hash store with an injected clock, used by tests to
// control timestamps without real time
func NewWithClock(root, namespace string, clock clockwork.Clock) *Store {
	return &Store{
		root:      root,
		namespace: namespace,
		clock:     clock,
		logger:    logger.GetLogger().HashStore(),
	}
}

// Namespace returns the collector namespace this store serves
func (s *Store) Namespace() string {
	return s.namespace
}

// Dir returns the directory holding this namespace's sidecar files
func (s *Store) Dir() string {
	return filepath.Join(s.root, filepath.FromSlash(s.namespace))
}

// EnsureDir creates the namespace directory if it does not exist
func (s *Store) EnsureDir() error {
	if err := os.MkdirAll(s.Dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create hash directory %s: %w", s.Dir(), err)
	}
	return nil
}

// Path returns the sidecar file path for a unit key
func (s *Store) Path(key []string) string {
	return filepath.Join(s.Dir(), encodeKey(key)+"_hash.json")
}

// Load reads the sidecar for a unit. It returns nil when no sidecar exists,
// and also nil when the file is unreadable or corrupt: a broken cache entry
// must never block forward progress, it just forces the next update.
func (s *Store) Load(key []string) *Record {
	path := s.Path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", path).Msg("Failed to read hash sidecar, treating as absent")
		}
		return nil
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		s.logger.Warn().Err(err).Str("path", path).Msg("Corrupt hash sidecar, treating as absent")
		return nil
	}

	if rec.ContentHash == "" {
		s.logger.Warn().Str("path", path).Msg("Hash sidecar missing content_hash, treating as absent")
		return nil
	}

	return &rec
}

// Save writes the sidecar for a unit, fully replacing any prior content.
// Unlike Load, write failures are returned: the caller decides whether losing
// the cache entry is fatal for the unit.
func (s *Store) Save(key []string, contentHash string, sizeBytes int64, artifactPath string) error {
	if err := s.EnsureDir(); err != nil {
		return err
	}

	rec := Record{
		UnitKey:      key,
		ContentHash:  contentHash,
		ComputedAt:   s.clock.Now().UTC(),
		SizeBytes:    sizeBytes,
		ArtifactPath: artifactPath,
	}

	data, err := json.MarshalIndent(&rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode hash sidecar: %w", err)
	}

	path := s.Path(key)
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write hash sidecar %s: %w", path, err)
	}

	return nil
}

// List enumerates every sidecar under the namespace, including nested role
// directories. Malformed files are skipped and logged, never fatal.
func (s *Store) List() ([]Record, error) {
	var records []Record

	err := filepath.WalkDir(s.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), "_hash.json") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Skipping unreadable hash sidecar")
			return nil
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			s.logger.Warn().Err(err).Str("path", path).Msg("Skipping corrupt hash sidecar")
			return nil
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list hash sidecars under %s: %w", s.Dir(), err)
	}

	return records, nil
}

// PurgeOlderThan deletes sidecar files whose modification time is older than
// maxAge and returns the number removed. Never invoked implicitly during a
// sync cycle.
func (s *Store) PurgeOlderThan(maxAge time.Duration) (int, error) {
	cutoff := s.clock.Now().Add(-maxAge)
	removed := 0

	err := filepath.WalkDir(s.Dir(), func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), "_hash.json") {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return nil
		}

		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil {
				s.logger.Warn().Err(err).Str("path", path).Msg("Failed to remove stale hash sidecar")
				return nil
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("failed to purge hash sidecars under %s: %w", s.Dir(), err)
	}

	if removed > 0 {
		s.logger.Info().Int("removed", removed).Str("namespace", s.namespace).Msg("Purged stale hash sidecars")
	}

	return removed, nil
}

// encodeKey joins key parts into a filename-safe encoding. Path separators
// are replaced so two units can never share a sidecar path.
func encodeKey(key []string) string {
	parts := make([]string, len(key))
	for i, p := range key {
		p = strings.ReplaceAll(p, "/", "-")
		p = strings.ReplaceAll(p, string(filepath.Separator), "-")
		parts[i] = p
	}
	return strings.Join(parts, "_")
}
