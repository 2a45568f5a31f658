// Package persistence implements the append-safe catalog documents of §6:
// one JSON document each for conditions, attack-graph templates, and
// workflows, read at startup and atomically rewritten by Save (§9's
// durable-atom pattern). The process calls Save only when seeding empty
// documents from a bootstrap fixture; the HTTP CRUD endpoints update the
// in-memory catalogs and do not rewrite these documents.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"mitigationengine/internal/logger"
)

// Store holds one JSON document of type []T, guarded against concurrent
// CRUD by a mutex and rewritten atomically (write-to-temp, then rename) so
// a crash mid-write never leaves a partial document.
type Store[T any] struct {
	mu   sync.Mutex
	path string
}

// NewStore opens (without yet reading) a document at path.
func NewStore[T any](path string) *Store[T] {
	return &Store[T]{path: path}
}

// Load reads the full document. A missing file is treated as an empty
// document, matching "provide catalog objects at startup" for a fresh
// install.
func (s *Store[T]) Load() ([]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return out, nil
}

// Save atomically rewrites the full document.
func (s *Store[T]) Save(items []T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create persistence directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", s.path, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file for %s: %w", s.path, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("rename temp file into place for %s: %w", s.path, err)
	}
	logger.Debugf("persisted %d items to %s", len(items), s.path)
	return nil
}
