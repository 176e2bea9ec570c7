// internal/config/store.go
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
)

// Record is the persisted user configuration: where captures upload to and
// who they are attributed to. It is read at every capture/status check and
// always written as a whole.
type Record struct {
	APIEndpoint string `json:"apiEndpoint"`
	UserID      string `json:"userId"`
}

// Store abstracts the persisted key-value record so the orchestrator stays
// free of storage coupling.
type Store interface {
	Load() (Record, error)
	Save(Record) error
}

// FileStore keeps the record in a single JSON file, written atomically via a
// rename so concurrent readers never observe a torn record.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// DefaultStorePath resolves the per-user settings location.
func DefaultStorePath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".pagesnap", "settings.json"), nil
}

// NewFileStore creates a store rooted at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted record. A missing file yields the defaults rather
// than an error: configuration is never implicitly cleared, only never set.
func (s *FileStore) Load() (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := Record{APIEndpoint: DefaultAPIEndpoint}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return rec, nil
		}
		return rec, fmt.Errorf("failed to read settings: %w", err)
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, fmt.Errorf("settings file is corrupt: %w", err)
	}
	if rec.APIEndpoint == "" {
		rec.APIEndpoint = DefaultAPIEndpoint
	}
	return rec, nil
}

// Save persists the whole record.
func (s *FileStore) Save(rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	raw, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings: %w", err)
	}
	return nil
}
