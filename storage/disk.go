// Package storage keeps uploaded blobs on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrTooLarge is returned by Put when the stream exceeds the size limit.
	ErrTooLarge = errors.New("blob exceeds size limit")
	// ErrNotExist is returned when a blob is missing.
	ErrNotExist = errors.New("blob does not exist")
	// ErrInvalidName rejects names that could escape the root directory.
	ErrInvalidName = errors.New("invalid blob name")
)

const tempPrefix = ".upload-"

// DiskStore stores blobs as flat files under Root.
type DiskStore struct {
	Root string
}

// NewDiskStore creates the root directory if needed.
func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{Root: root}, nil
}

func (s *DiskStore) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return filepath.Join(s.Root, name), nil
}

// Put streams r into a temp file and renames it to name once complete, so a
// reader never observes a partial blob. At most limit bytes are accepted.
func (s *DiskStore) Put(name string, r io.Reader, limit int64) (int64, error) {
	dst, err := s.path(name)
	if err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(s.Root, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	lr := &io.LimitedReader{R: r, N: limit + 1}
	written, err := io.Copy(tmp, lr)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if written > limit {
		cleanup()
		return 0, ErrTooLarge
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return 0, fmt.Errorf("sync blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("close blob: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return 0, fmt.Errorf("publish blob: %w", err)
	}
	return written, nil
}

// Open returns a reader for the blob.
func (s *DiskStore) Open(name string) (*os.File, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return f, err
}

// Remove deletes the blob. A blob that is already gone is not an error.
func (s *DiskStore) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Names lists the published blobs, skipping in-flight temp files.
func (s *DiskStore) Names() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Stat returns file info for a published blob.
func (s *DiskStore) Stat(name string) (os.FileInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return fi, err
}
