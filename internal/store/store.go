// Package store persists the reservation ledger.
//
// The persisted form is a flat mapping of port number to service name. The
// encoding follows the file extension (.json, .yaml, .toml, .cbor); every
// codec round-trips the mapping exactly.
//
// Saves overwrite atomically: the new contents are written to a temporary
// file in the same directory, synced, and renamed over the old file. There
// are no durability guarantees beyond that.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sync"
)

// Store loads and saves the ledger mapping.
type Store interface {
	// Load returns the persisted mapping. When nothing has been persisted
	// yet the error wraps fs.ErrNotExist.
	Load() (map[uint16]string, error)
	Save(map[uint16]string) error
}

// FileStore keeps the mapping in a single file.
type FileStore struct {
	Path  string
	codec Codec
}

// NewFileStore returns a store for path, choosing the codec by extension.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("ledger path is required")
	}
	codec, err := CodecFor(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{Path: path, codec: codec}, nil
}

func (s *FileStore) Load() (map[uint16]string, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading ledger %s: %w", s.Path, err)
	}
	m, err := s.codec.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger %s: %w", s.Path, err)
	}
	return m, nil
}

func (s *FileStore) Save(m map[uint16]string) error {
	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}
	return writeFileAtomic(s.Path, data, 0644)
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp ledger file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp ledger file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp ledger file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting ledger permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp ledger file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming ledger to %s: %w", path, err)
	}

	success = true
	return nil
}

// MemoryStore keeps the mapping in memory. Used for ephemeral runs and tests.
type MemoryStore struct {
	mu    sync.Mutex
	data  map[uint16]string
	saved bool

	// Err, when set, is returned from every Save.
	Err error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() (map[uint16]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.saved {
		return nil, fmt.Errorf("memory ledger: %w", fs.ErrNotExist)
	}
	return maps.Clone(s.data), nil
}

func (s *MemoryStore) Save(m map[uint16]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.data = maps.Clone(m)
	if s.data == nil {
		s.data = map[uint16]string{}
	}
	s.saved = true
	return nil
}

// IsNotExist reports whether err means nothing has been persisted yet.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
