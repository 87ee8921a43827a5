// Package store implements the blob store: a single flat directory of
// completed files. The directory is the only source of truth: listings
// re-read the filesystem on every call so concurrent uploads, deletes,
// and expiry sweeps are always reflected.
package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned when a named blob does not exist.
var ErrNotFound = errors.New("file not found")

// Entry describes one completed file in the store.
type Entry struct {
	Name      string
	Size      int64
	CreatedAt time.Time
}

// Store manages a flat directory of blobs. Files are written to a temp
// name and renamed into place, so readers and listers never observe a
// partially written blob.
type Store struct {
	dir string
}

// New creates the backing directory if needed and returns a Store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string {
	return s.dir
}

// SanitizeName reduces a client-supplied filename to its base component.
// Returns an empty string when nothing usable remains, which callers must
// treat as a rejected name. This is the single path-traversal defense and
// is applied on every path-accepting operation.
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	// Clients on Windows may send backslash-separated paths.
	name = strings.ReplaceAll(name, "\\", "/")
	// A trailing separator names a directory, not a file.
	if strings.HasSuffix(name, "/") {
		return ""
	}
	name = filepath.Base(name)
	if name == "." || name == ".." || name == "/" || name == "" {
		return ""
	}
	return name
}

// Put writes the blob atomically: content goes to a temp file in the same
// directory and is renamed to the final name only once fully written.
// An existing blob with the same name is replaced.
func (s *Store) Put(name string, r io.Reader) (Entry, error) {
	safe := SanitizeName(name)
	if safe == "" {
		return Entry{}, fmt.Errorf("invalid file name %q", name)
	}

	tmp, err := os.CreateTemp(s.dir, ".put-*")
	if err != nil {
		return Entry{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return Entry{}, fmt.Errorf("write blob %s: %w", safe, err)
	}

	final := filepath.Join(s.dir, safe)
	if err := os.Rename(tmpName, final); err != nil {
		_ = os.Remove(tmpName)
		return Entry{}, fmt.Errorf("finalize blob %s: %w", safe, err)
	}

	info, err := os.Stat(final)
	if err != nil {
		return Entry{}, fmt.Errorf("stat blob %s: %w", safe, err)
	}
	return Entry{Name: safe, Size: size, CreatedAt: info.ModTime()}, nil
}

// List enumerates the directory fresh on every call. Subdirectories (the
// chunk staging root lives inside the store) and dot-prefixed temp files
// are skipped.
func (s *Store) List() ([]Entry, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list store: %w", err)
	}

	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || strings.HasPrefix(de.Name(), ".") {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Deleted between ReadDir and Info; a later listing will agree.
			continue
		}
		entries = append(entries, Entry{
			Name:      de.Name(),
			Size:      info.Size(),
			CreatedAt: info.ModTime(),
		})
	}
	return entries, nil
}

// Open returns the named blob for reading along with its entry.
// The caller owns the returned file.
func (s *Store) Open(name string) (*os.File, Entry, error) {
	safe := SanitizeName(name)
	if safe == "" {
		return nil, Entry{}, ErrNotFound
	}
	path := filepath.Join(s.dir, safe)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return nil, Entry{}, ErrNotFound
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Entry{}, ErrNotFound
		}
		return nil, Entry{}, fmt.Errorf("open blob %s: %w", safe, err)
	}
	return f, Entry{Name: safe, Size: info.Size(), CreatedAt: info.ModTime()}, nil
}

// Delete removes the named blob. Deleting a nonexistent blob is reported
// as ErrNotFound, not a silent no-op.
func (s *Store) Delete(name string) error {
	safe := SanitizeName(name)
	if safe == "" {
		return ErrNotFound
	}
	err := os.Remove(filepath.Join(s.dir, safe))
	if os.IsNotExist(err) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete blob %s: %w", safe, err)
	}
	return nil
}
