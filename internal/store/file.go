package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CurrentSchema is the version written into new state files.
const CurrentSchema = 1

const stateFileName = "state.json"

// For mocking in tests
var osUserHomeDir = os.UserHomeDir

// stateDocument is the on-disk shape of the file store: one JSON document
// holding every key-value pair.
type stateDocument struct {
	SchemaVersion int               `json:"schemaVersion"`
	Values        map[string]string `json:"values"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// FileStore is a Store persisted as a single JSON document. Writes are
// atomic (temp file + rename); the document is loaded lazily on first access.
type FileStore struct {
	mu     sync.Mutex
	path   string
	loaded bool
	values map[string]string
}

// DefaultStatePath returns the standard location of the state file,
// ~/.config/envswitch/state.json.
func DefaultStatePath() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "envswitch", stateFileName), nil
}

// NewFileStore creates a file store rooted at path. The file does not need
// to exist yet; it is created on the first Set.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// load reads the state file into memory. A missing file is an empty store; a
// corrupt file surfaces as an error on every access until repaired.
func (s *FileStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.values = make(map[string]string)
			s.loaded = true
			return nil
		}
		return fmt.Errorf("read state file %s: %w", s.path, err)
	}

	var doc stateDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode state file %s: %w", s.path, err)
	}

	s.values = doc.Values
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.loaded = true
	return nil
}

// save writes the in-memory document back to disk atomically.
func (s *FileStore) save() error {
	doc := stateDocument{
		SchemaVersion: CurrentSchema,
		Values:        s.values,
		UpdatedAt:     time.Now().UTC(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tempFile := s.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return err
	}
	return os.Rename(tempFile, s.path)
}

// Get retrieves the value stored under key.
func (s *FileStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return "", err
	}
	v, ok := s.values[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

// Set stores value under key and flushes the document to disk.
func (s *FileStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	s.values[key] = value
	return s.save()
}

// Delete removes the value stored under key. Deleting an absent key is a
// no-op and does not touch the file.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.save()
}

// Keys returns all keys currently present.
func (s *FileStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ Store = (*FileStore)(nil)
