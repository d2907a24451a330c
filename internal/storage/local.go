// Package storage keeps uploaded file contents on the local disk.  The
// database only records the path relative to the upload root.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrTooLarge is returned when a body exceeds the allowed size.  Nothing is
// left on disk in that case.
var ErrTooLarge = errors.New("file too large")

// ErrInvalidPath is returned for paths escaping the upload root.
var ErrInvalidPath = errors.New("invalid storage path")

// Local stores files below Root, one directory per project.
type Local struct {
	Root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{Root: root}, nil
}

// Save copies at most maxBytes from r into a new file under dir and
// returns its relative path and size.  The stored name is random; the
// original filename only lives in the database.
func (l *Local) Save(dir, filename string, r io.Reader, maxBytes int64) (string, int64, error) {
	dir = sanitizeSegment(dir)
	if err := os.MkdirAll(filepath.Join(l.Root, dir), 0o755); err != nil {
		return "", 0, err
	}
	rel := filepath.Join(dir, uuid.NewString()+strings.ToLower(filepath.Ext(sanitizeSegment(filename))))
	full := filepath.Join(l.Root, rel)

	dst, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, err
	}
	// Read one byte past the limit to tell "exactly max" from "too large".
	n, err := io.Copy(dst, io.LimitReader(r, maxBytes+1))
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > maxBytes {
		err = ErrTooLarge
	}
	if err != nil {
		_ = os.Remove(full)
		return "", 0, err
	}
	return filepath.ToSlash(rel), n, nil
}

// Open opens a stored file for reading.
func (l *Local) Open(rel string) (io.ReadCloser, error) {
	full, err := l.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes a stored file.  Missing files are not an error.
func (l *Local) Remove(rel string) error {
	full, err := l.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (l *Local) resolve(rel string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(rel))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(l.Root, clean), nil
}

func sanitizeSegment(s string) string {
	s = filepath.Base(filepath.Clean("/" + s))
	if s == "/" || s == "." || s == ".." {
		return "misc"
	}
	return s
}
