// internal/ingest/store.go
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/pagesnap/pagesnap-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists one JSON file per received bundle under a flat data
// directory. Filenames encode the receive time, domain and user so the
// directory stays greppable without opening files.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore roots a store at dir, creating it on first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Dir reports the data directory.
func (s *Store) Dir() string { return s.dir }

// Save writes the payload as an indented JSON file and returns its path.
func (s *Store) Save(payload schemas.IngestPayload) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s.json",
		s.now().Format("20060102_150405"),
		sanitizeComponent(payload.Domain),
		sanitizeComponent(payload.UserID))
	path := filepath.Join(s.dir, name)

	raw, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return path, nil
}

// List returns stored bundle paths, newest first. The timestamp prefix makes
// lexical order chronological.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(s.dir, e.Name()))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	return paths, nil
}

// Load reads one stored bundle back.
func (s *Store) Load(path string) (schemas.IngestPayload, error) {
	var payload schemas.IngestPayload
	raw, err := os.ReadFile(path)
	if err != nil {
		return payload, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return payload, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return payload, nil
}

// sanitizeComponent keeps filename components shell- and filesystem-safe.
func sanitizeComponent(s string) string {
	if s == "" {
		return "unknown"
	}
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
