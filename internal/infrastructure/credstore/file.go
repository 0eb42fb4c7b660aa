// Package credstore persists the client credential on the local filesystem.
package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopassist/shopchat/internal/core/ports"
)

// errCorrupt marks a file that exists but does not decode. Writers replace it
// instead of failing, so a damaged file can always be purged or overwritten.
var errCorrupt = errors.New("credential file is corrupt")

// FileStore keeps credential entries as a flat JSON object in a single file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

var _ ports.CredentialStore = (*FileStore)(nil)

// NewFileStore returns a store backed by path. A leading "~" is expanded to
// the user's home directory.
func NewFileStore(path string) (*FileStore, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	return &FileStore{path: expanded}, nil
}

// Path returns the resolved file location.
func (s *FileStore) Path() string { return s.path }

// Get returns "" when the file or the key does not exist.
func (s *FileStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return "", err
	}
	return entries[key], nil
}

// SetMany writes all values in one atomic replace of the file.
func (s *FileStore) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.loadForWrite()
	if err != nil {
		return err
	}
	for k, v := range values {
		entries[k] = v
	}
	return s.save(entries)
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	changed := false
	if errors.Is(err, errCorrupt) {
		entries, changed = map[string]string{}, true
	} else if err != nil {
		return err
	}
	for _, k := range keys {
		if _, ok := entries[k]; ok {
			delete(entries, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(entries)
}

func (s *FileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	entries := map[string]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode credential file: %w: %w", errCorrupt, err)
	}
	return entries, nil
}

func (s *FileStore) loadForWrite() (map[string]string, error) {
	entries, err := s.load()
	if errors.Is(err, errCorrupt) {
		return map[string]string{}, nil
	}
	return entries, err
}

// save uses 0600 permissions and a rename so readers never see a partial file.
func (s *FileStore) save(entries map[string]string) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
