// Package mapping maintains the durable index between source URLs, local
// cache filenames and the upstream record IDs that reference them.
//
// The index is persisted as two plain JSON key-value files so operators
// can diff and hand-edit them for manual overrides: one maps source URL
// to local filename, the other maps local filename to the set of record
// IDs that use it.
package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ConflictError is returned when a source URL is recorded against a
// different filename than the one it already maps to. The existing
// mapping is left untouched; a conflict indicates hash or extension
// drift and must never be auto-resolved by overwriting.
type ConflictError struct {
	SourceURL string
	Existing  string
	Proposed  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("mapping conflict for %s: already mapped to %s, refusing %s",
		e.SourceURL, e.Existing, e.Proposed)
}

// IsConflict reports whether err is a mapping conflict.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// Store is a thread-safe, file-backed URL mapping index.
type Store struct {
	mu         sync.RWMutex
	urlToFile  map[string]string
	fileToRecs map[string][]string
	urlsPath   string
	recsPath   string
}

// NewStore loads (or initializes) a mapping store backed by the two given
// JSON files. Missing or corrupt files are treated as an empty index with
// a logged warning; they must never prevent startup.
func NewStore(urlsPath, recsPath string) (*Store, error) {
	if urlsPath == "" || recsPath == "" {
		return nil, fmt.Errorf("mapping file paths cannot be empty")
	}

	s := &Store{
		urlToFile:  make(map[string]string),
		fileToRecs: make(map[string][]string),
		urlsPath:   urlsPath,
		recsPath:   recsPath,
	}

	loadJSONFile(urlsPath, &s.urlToFile)
	loadJSONFile(recsPath, &s.fileToRecs)

	return s, nil
}

// loadJSONFile reads a JSON key-value file into target. Absence is
// normal on first run; parse failures are logged and ignored so a
// corrupt index degrades to an empty one instead of crashing.
func loadJSONFile(path string, target interface{}) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("Warning: failed to read mapping file %s: %v", path, err)
		}
		return
	}

	if err := json.Unmarshal(data, target); err != nil {
		log.Printf("Warning: mapping file %s is corrupt, starting empty: %v", path, err)
	}
}

// Lookup returns the local filename for a source URL, if one is recorded.
func (s *Store) Lookup(sourceURL string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	filename, ok := s.urlToFile[sourceURL]
	return filename, ok
}

// Record associates sourceURL with filename and, when recordID is
// non-empty, adds recordID to the filename's record set. Recording the
// same URL/filename pair is idempotent. Recording an already-mapped URL
// against a different filename returns a *ConflictError and leaves the
// store unchanged.
func (s *Store) Record(sourceURL, filename, recordID string) error {
	if sourceURL == "" {
		return fmt.Errorf("source URL cannot be empty")
	}
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.urlToFile[sourceURL]
	if ok && existing != filename {
		return &ConflictError{SourceURL: sourceURL, Existing: existing, Proposed: filename}
	}

	changed := false
	if !ok {
		s.urlToFile[sourceURL] = filename
		changed = true
	}

	if recordID != "" && !containsString(s.fileToRecs[filename], recordID) {
		s.fileToRecs[filename] = append(s.fileToRecs[filename], recordID)
		sort.Strings(s.fileToRecs[filename])
		changed = true
	}

	if !changed {
		return nil
	}

	if err := s.saveLocked(); err != nil {
		return fmt.Errorf("failed to persist mapping: %w", err)
	}

	return nil
}

// RecordIDsFor returns the record IDs known to reference a local filename.
// The returned slice is a copy.
func (s *Store) RecordIDsFor(filename string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.fileToRecs[filename]
	if len(ids) == 0 {
		return nil
	}

	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// URLs returns every recorded source URL. Used by the background refresh
// worker to sweep known entries.
func (s *Store) URLs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	urls := make([]string, 0, len(s.urlToFile))
	for u := range s.urlToFile {
		urls = append(urls, u)
	}
	sort.Strings(urls)
	return urls
}

// Len returns the number of recorded URL mappings.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.urlToFile)
}

// saveLocked persists both index files. Must be called with the write
// lock held. Each file is written to a temporary path and renamed into
// place so readers never observe a partial file.
func (s *Store) saveLocked() error {
	if err := writeJSONFile(s.urlsPath, s.urlToFile); err != nil {
		return err
	}
	return writeJSONFile(s.recsPath, s.fileToRecs)
}

func writeJSONFile(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
