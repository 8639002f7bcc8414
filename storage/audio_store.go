package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// PartSuffix marks a temp file belonging to an in-flight upload. A .part
// file is renamed to its final name only after the metadata row exists.
const PartSuffix = ".part"

// AudioStore manages the on-disk directory that holds uploaded audio files.
type AudioStore struct {
	dir string
}

// NewAudioStore returns a store rooted at dir. The directory is created
// lazily by EnsureDir.
func NewAudioStore(dir string) *AudioStore {
	return &AudioStore{dir: dir}
}

// Dir returns the managed directory.
func (s *AudioStore) Dir() string {
	return s.dir
}

// EnsureDir creates the upload directory and any missing parents. Idempotent.
func (s *AudioStore) EnsureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", s.dir, err)
	}
	return nil
}

// CreateTemp opens the temp file for an in-flight upload identified by
// demoID. The caller either Commits the file under its final name or
// Discards it.
func (s *AudioStore) CreateTemp(demoID string) (*os.File, error) {
	path := filepath.Join(s.dir, demoID+PartSuffix)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file %s: %w", path, err)
	}
	return f, nil
}

// Commit renames the temp file for demoID into its final filename.
func (s *AudioStore) Commit(demoID, filename string) error {
	from := filepath.Join(s.dir, demoID+PartSuffix)
	to := filepath.Join(s.dir, filename)
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("failed to commit %s as %s: %w", from, filename, err)
	}
	return nil
}

// Discard removes the temp file for demoID. Removing a temp file that was
// never created is not an error.
func (s *AudioStore) Discard(demoID string) error {
	path := filepath.Join(s.dir, demoID+PartSuffix)
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove temp file %s: %w", path, err)
	}
	return nil
}

// Open opens a stored file for reading. The fs.ErrNotExist from a missing
// file passes through for the caller to map to a 404.
func (s *AudioStore) Open(filename string) (*os.File, error) {
	return os.Open(filepath.Join(s.dir, filename))
}

// Exists reports whether a stored file is present. A Stat failure other
// than absence (a permission problem, say) is returned so the caller does
// not mistake an unreadable file for a missing one.
func (s *AudioStore) Exists(filename string) (bool, error) {
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	return true, nil
}

// Remove deletes a stored file.
func (s *AudioStore) Remove(filename string) error {
	path := filepath.Join(s.dir, filename)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// List returns the names of regular files in the directory, temp files
// included.
func (s *AudioStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload directory %s: %w", s.dir, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.Type().IsRegular() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// ValidName reports whether name is a plain filename that stays inside the
// upload directory. The /audio/ routes are keyed by raw filename, so
// anything with a path separator or a dot-dot segment is rejected before it
// reaches the filesystem.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return name == filepath.Base(name)
}
