package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain name", "a.txt", "a.txt"},
		{"leading dirs stripped", "foo/bar/a.txt", "a.txt"},
		{"traversal stripped", "../../etc/passwd", "passwd"},
		{"windows separators", `..\..\boot.ini`, "boot.ini"},
		{"dot rejected", ".", ""},
		{"dotdot rejected", "..", ""},
		{"empty rejected", "", ""},
		{"whitespace rejected", "   ", ""},
		{"trailing slash", "dir/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPutAndOpen(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	entry, err := s.Put("hello.txt", strings.NewReader("hello world"))
	require.NoError(t, err)
	require.Equal(t, "hello.txt", entry.Name)
	require.Equal(t, int64(11), entry.Size)
	require.False(t, entry.CreatedAt.IsZero())

	f, got, err := s.Open("hello.txt")
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, entry.Size, got.Size)

	buf := make([]byte, 32)
	n, _ := f.Read(buf)
	require.Equal(t, "hello world", string(buf[:n]))
}

func TestPutSanitizesTraversal(t *testing.T) {
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "data"))
	require.NoError(t, err)

	_, err = s.Put("../escape.txt", strings.NewReader("x"))
	require.NoError(t, err)

	// The file must land inside the store, not beside it.
	_, statErr := os.Stat(filepath.Join(dir, "escape.txt"))
	require.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(dir, "data", "escape.txt"))
	require.NoError(t, statErr)
}

func TestListSkipsDirsAndTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	require.NoError(t, err)

	_, err = s.Put("visible.txt", strings.NewReader("abc"))
	require.NoError(t, err)

	// Staging root and a stray temp file must not appear in listings.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "_chunks", "u1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".put-123"), []byte("x"), 0o644))

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "visible.txt", entries[0].Name)
	require.Equal(t, int64(3), entries[0].Size)
}

func TestDelete(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put("gone.txt", strings.NewReader("bye"))
	require.NoError(t, err)

	require.NoError(t, s.Delete("gone.txt"))

	entries, err := s.List()
	require.NoError(t, err)
	require.Empty(t, entries)

	err = s.Delete("gone.txt")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestOpenNotFound(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, _, err = s.Open("nope.txt")
	require.True(t, errors.Is(err, ErrNotFound))

	_, _, err = s.Open("../nope.txt")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestPutReplacesExisting(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Put("a.txt", strings.NewReader("first"))
	require.NoError(t, err)
	entry, err := s.Put("a.txt", strings.NewReader("second!"))
	require.NoError(t, err)
	require.Equal(t, int64(7), entry.Size)

	entries, err := s.List()
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
