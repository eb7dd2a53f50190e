package hostsfile

import (
	"fmt"
	"strings"

	"github.com/danmuck/hostctl/internal/hostfs"
	"github.com/spf13/afero"
)

// Store reads and atomically rewrites one hosts file. It holds no state
// between calls.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore returns a store for path on fsys. An empty path means DefaultPath.
func NewStore(fsys afero.Fs, path string) *Store {
	resolved := strings.TrimSpace(path)
	if resolved == "" {
		resolved = DefaultPath
	}
	return &Store{fs: fsys, path: resolved}
}

// Path returns the file this store edits.
func (s *Store) Path() string {
	return s.path
}

// Load parses the current file. A missing file loads as empty.
func (s *Store) Load() (*File, error) {
	data, err := hostfs.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, fmt.Errorf("hostsfile: %w", err)
	}
	return Parse(data), nil
}

// Save replaces the file with f.
func (s *Store) Save(f *File) error {
	if err := hostfs.WriteFile(s.fs, s.path, f.Bytes(), 0o644); err != nil {
		return fmt.Errorf("hostsfile: %w", err)
	}
	return nil
}

// Update loads the file, applies fn and saves only when fn reports a change.
func (s *Store) Update(fn func(f *File) bool) (bool, error) {
	f, err := s.Load()
	if err != nil {
		return false, err
	}
	if !fn(f) {
		return false, nil
	}
	if err := s.Save(f); err != nil {
		return false, err
	}
	return true, nil
}
