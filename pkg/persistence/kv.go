package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned when a key is not present.
var ErrNotFound = errors.New("key not found")

// KVStore is a JSON file holding one document per key.
// It is safe for concurrent use within one process.
type KVStore struct {
	mu   sync.Mutex
	path string
}

// NewKVStore creates a store backed by the file at path. The file is created
// on the first write.
func NewKVStore(path string) *KVStore {
	return &KVStore{path: path}
}

// Path returns the backing file path.
func (s *KVStore) Path() string {
	return s.path
}

// Get decodes the document stored under key into v.
func (s *KVStore) Get(key string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return err
	}
	raw, ok := docs[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return json.Unmarshal(raw, v)
}

// Set stores v under key.
func (s *KVStore) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return err
	}
	docs[key] = raw
	return s.write(docs)
}

// Delete removes key. Deleting a missing key is not an error.
func (s *KVStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return err
	}
	if _, ok := docs[key]; !ok {
		return nil
	}
	delete(docs, key)
	if len(docs) == 0 {
		err := os.Remove(s.path)
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return s.write(docs)
}

// Keys returns the stored keys in sorted order.
func (s *KVStore) Keys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.read()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) read() (map[string]json.RawMessage, error) {
	docs := make(map[string]json.RawMessage)
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return docs, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return docs, nil
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return docs, nil
}

// write replaces the file atomically.
func (s *KVStore) write(docs map[string]json.RawMessage) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
