package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SchemaVersion is the version of the persisted model envelope.
const SchemaVersion = 1

// cacheFileName is the persisted model inside a project's cache directory.
const cacheFileName = "project.json"

type envelope struct {
	SchemaVersion int       `json:"schema_version"`
	WrittenAt     time.Time `json:"written_at"`
	Model         *Model    `json:"model"`
}

// Store reads and writes the persisted model of one project root.
// The file lives at <cache root>/<root hash>/project.json.
type Store struct {
	path string
}

// NewStore returns the store for root under cacheRoot.
func NewStore(cacheRoot, root string) *Store {
	return &Store{path: filepath.Join(cacheRoot, rootKey(root), cacheFileName)}
}

// Path returns the persisted file location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a persisted model is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Read decodes the persisted model. Undecodable content and unknown schema
// versions are ErrCacheCorrupt.
func (s *Store) Read() (*Model, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheCorrupt, err)
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("%w: schema version %d, want %d", ErrCacheCorrupt, env.SchemaVersion, SchemaVersion)
	}
	if env.Model == nil || env.Model.ID == "" {
		return nil, fmt.Errorf("%w: missing model", ErrCacheCorrupt)
	}
	return env.Model, nil
}

// Write persists the model using atomic write (temp + rename).
func (s *Store) Write(m *Model) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(envelope{
		SchemaVersion: SchemaVersion,
		WrittenAt:     time.Now().UTC(),
		Model:         m,
	}, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Remove deletes the persisted model. A missing file is not an error.
func (s *Store) Remove() error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
