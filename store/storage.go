// Package store holds locally retained image files as a flat directory
// of {hash}.{ext} entries.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested file is absent from the store.
// Absence is a normal outcome, distinct from read failures.
var ErrNotFound = errors.New("cache file not found")

// Storage defines the interface for cache file operations
type Storage interface {
	Write(filename string, content []byte) error
	Read(filename string) ([]byte, error)
	Exists(filename string) bool
	Stat(filename string) (Info, error)
	Path(filename string) (string, error)
}

// Info describes a stored file. ModTime doubles as the entry's fetch
// timestamp: refreshes rewrite the file, so it is monotonically
// non-decreasing.
type Info struct {
	SizeBytes int64
	ModTime   time.Time
}

// FileStorage implements Storage using a single flat directory
type FileStorage struct {
	baseDir string
}

// NewFileStorage creates a new file-based cache store
// It ensures the cache directory exists before returning
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}

	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileStorage{
		baseDir: baseDir,
	}, nil
}

// Write stores content under filename. The bytes are written to a
// uniquely named temporary file in the same directory and renamed into
// place, so a concurrent reader never observes a partial file.
func (fs *FileStorage) Write(filename string, content []byte) error {
	target, err := fs.Path(filename)
	if err != nil {
		return err
	}

	tmpPath := target + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmpPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write cache temp file: %w", err)
	}

	if err := os.Rename(tmpPath, target); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move cache file into place: %w", err)
	}

	return nil
}

// Read retrieves a stored file's bytes. A missing file yields
// ErrNotFound, never an error that looks like corruption.
func (fs *FileStorage) Read(filename string) ([]byte, error) {
	path, err := fs.Path(filename)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	return data, nil
}

// Exists reports whether a file is present in the store.
func (fs *FileStorage) Exists(filename string) bool {
	path, err := fs.Path(filename)
	if err != nil {
		return false
	}

	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Stat returns size and modification time for a stored file, or
// ErrNotFound when absent.
func (fs *FileStorage) Stat(filename string) (Info, error) {
	path, err := fs.Path(filename)
	if err != nil {
		return Info{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Info{}, ErrNotFound
		}
		return Info{}, fmt.Errorf("failed to stat cache file: %w", err)
	}

	return Info{SizeBytes: info.Size(), ModTime: info.ModTime()}, nil
}

// Path returns the absolute path for a filename after validating that it
// cannot escape the cache directory.
func (fs *FileStorage) Path(filename string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename cannot be empty")
	}
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		return "", fmt.Errorf("invalid cache filename: %q", filename)
	}

	return filepath.Join(fs.baseDir, filename), nil
}

// TotalSize returns the combined size in bytes of every file in the
// store. Used by the stats endpoint.
func (fs *FileStorage) TotalSize() (int64, error) {
	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}

	return total, nil
}
