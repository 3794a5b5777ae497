// Package cas implements the fingerprint store of compile units.
package cas

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.trai.ch/forge/internal/core/domain"
	"go.trai.ch/forge/internal/core/ports"
	"go.trai.ch/zerr"
)

// FileName is the name of the store file inside the fingerprint directory.
const FileName = "fingerprints.json"

var _ ports.FingerprintStore = (*Store)(nil)

// Store implements ports.FingerprintStore using a flat JSON file.
type Store struct {
	path  string
	mu    sync.RWMutex
	cache map[string]domain.Fingerprint
}

// NewStore creates a store backed by the file at the given path.
func NewStore(path string) (*Store, error) {
	s := &Store{
		path:  filepath.Clean(path),
		cache: make(map[string]domain.Fingerprint),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

// Open opens the store of the output directory dir.
func Open(dir string) (ports.FingerprintStore, error) {
	return NewStore(filepath.Join(dir, domain.FingerprintDirName, FileName))
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return zerr.With(zerr.Wrap(err, "failed to read fingerprint store"), "path", s.path)
	}

	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, &s.cache); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to unmarshal fingerprint store"), "path", s.path)
	}

	return nil
}

func (s *Store) save() error {
	s.mu.RLock()
	data, err := json.MarshalIndent(s.cache, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return zerr.Wrap(err, "failed to marshal fingerprint store")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return zerr.Wrap(err, "failed to create directory for fingerprint store")
	}

	tmp, err := os.CreateTemp(dir, FileName+".*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temp fingerprint store")
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to write fingerprint store")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close fingerprint store")
	}
	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return zerr.Wrap(err, "failed to chmod fingerprint store")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return zerr.Wrap(err, "failed to replace fingerprint store")
	}
	return nil
}

// Get retrieves the fingerprint of a unit.
func (s *Store) Get(unit string) (*domain.Fingerprint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fp, ok := s.cache[unit]
	if !ok {
		return nil, nil
	}
	return &fp, nil
}

// Put stores the fingerprint and persists the store.
func (s *Store) Put(fp domain.Fingerprint) error {
	s.mu.Lock()
	s.cache[fp.Unit] = fp
	s.mu.Unlock()

	return s.save()
}
