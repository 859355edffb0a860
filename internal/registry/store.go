package registry

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Store persists the raw registry document. The registry owns the JSON
// encoding; a store only moves bytes.
type Store interface {
	// Load returns the current document bytes.
	Load() ([]byte, error)
	// Save atomically replaces the document.
	Save(data []byte) error
}

// FileStore keeps the document in a single JSON file. When the file does not
// exist yet, Load falls back to a bundled example file.
type FileStore struct {
	path    string
	example string
}

// NewFileStore creates a store writing to path. example may be empty when no
// bundled fallback document ships with the deployment.
func NewFileStore(path, example string) *FileStore {
	return &FileStore{path: path, example: example}
}

// Path returns the config file location, for watching.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load() ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, fs.ErrNotExist) || s.example == "" {
		return nil, fmt.Errorf("registry: read config: %w", err)
	}
	data, exErr := os.ReadFile(s.example)
	if exErr != nil {
		return nil, fmt.Errorf("registry: read config: %w", err)
	}
	return data, nil
}

// Save writes to a temp file in the target directory and renames it into
// place, so a crash mid-write never leaves a truncated document.
func (s *FileStore) Save(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("registry: create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("registry: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("registry: write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: close config: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("registry: replace config: %w", err)
	}
	return nil
}
