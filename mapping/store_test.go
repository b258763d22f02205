package mapping

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// newTestStore creates a store backed by files in a temp directory.
func newTestStore(t *testing.T) (*Store, string, string) {
	t.Helper()

	dir := t.TempDir()
	urlsPath := filepath.Join(dir, "image-urls.json")
	recsPath := filepath.Join(dir, "image-records.json")

	store, err := NewStore(urlsPath, recsPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	return store, urlsPath, recsPath
}

func TestNewStore(t *testing.T) {
	t.Run("starts empty when files are missing", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if store.Len() != 0 {
			t.Errorf("Expected empty store, got %d entries", store.Len())
		}
	})

	t.Run("treats corrupt files as empty", func(t *testing.T) {
		dir := t.TempDir()
		urlsPath := filepath.Join(dir, "image-urls.json")
		recsPath := filepath.Join(dir, "image-records.json")

		if err := os.WriteFile(urlsPath, []byte("{not json"), 0644); err != nil {
			t.Fatalf("Failed to write corrupt file: %v", err)
		}

		store, err := NewStore(urlsPath, recsPath)
		if err != nil {
			t.Fatalf("NewStore failed on corrupt file: %v", err)
		}

		if store.Len() != 0 {
			t.Errorf("Expected empty store from corrupt file, got %d entries", store.Len())
		}
	})

	t.Run("rejects empty paths", func(t *testing.T) {
		if _, err := NewStore("", ""); err == nil {
			t.Error("Expected error for empty paths")
		}
	})
}

func TestRecordAndLookup(t *testing.T) {
	t.Run("records and looks up a mapping", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if err := store.Record("https://img.example/a.jpg", "abc123.jpg", "rec1"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		filename, ok := store.Lookup("https://img.example/a.jpg")
		if !ok {
			t.Fatal("Expected mapping to exist")
		}
		if filename != "abc123.jpg" {
			t.Errorf("Expected abc123.jpg, got %q", filename)
		}
	})

	t.Run("lookup of unknown URL reports absent", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if _, ok := store.Lookup("https://img.example/missing.jpg"); ok {
			t.Error("Expected absent for unknown URL")
		}
	})

	t.Run("recording the same pair twice is idempotent", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		for i := 0; i < 2; i++ {
			if err := store.Record("https://img.example/a.jpg", "abc123.jpg", "rec1"); err != nil {
				t.Fatalf("Record %d failed: %v", i, err)
			}
		}

		if store.Len() != 1 {
			t.Errorf("Expected 1 mapping, got %d", store.Len())
		}
		if ids := store.RecordIDsFor("abc123.jpg"); len(ids) != 1 {
			t.Errorf("Expected 1 record ID, got %v", ids)
		}
	})

	t.Run("conflicting filename is rejected and mapping unchanged", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if err := store.Record("https://img.example/a.jpg", "abc123.jpg", "rec1"); err != nil {
			t.Fatalf("Record failed: %v", err)
		}

		err := store.Record("https://img.example/a.jpg", "def456.jpg", "rec2")
		if err == nil {
			t.Fatal("Expected conflict error")
		}
		if !IsConflict(err) {
			t.Errorf("Expected ConflictError, got %T: %v", err, err)
		}

		filename, _ := store.Lookup("https://img.example/a.jpg")
		if filename != "abc123.jpg" {
			t.Errorf("Existing mapping changed to %q after conflict", filename)
		}
	})

	t.Run("rejects empty inputs", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if err := store.Record("", "f.jpg", ""); err == nil {
			t.Error("Expected error for empty URL")
		}
		if err := store.Record("https://img.example/a.jpg", "", ""); err == nil {
			t.Error("Expected error for empty filename")
		}
	})
}

func TestRecordIDsFor(t *testing.T) {
	t.Run("accumulates distinct record IDs per filename", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "rec2")
		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "rec1")
		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "rec2")

		ids := store.RecordIDsFor("abc123.jpg")
		if len(ids) != 2 || ids[0] != "rec1" || ids[1] != "rec2" {
			t.Errorf("Expected [rec1 rec2], got %v", ids)
		}
	})

	t.Run("returns nil for unknown filename", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		if ids := store.RecordIDsFor("nope.jpg"); ids != nil {
			t.Errorf("Expected nil, got %v", ids)
		}
	})

	t.Run("empty record ID is not stored", func(t *testing.T) {
		store, _, _ := newTestStore(t)

		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "")

		if ids := store.RecordIDsFor("abc123.jpg"); ids != nil {
			t.Errorf("Expected nil, got %v", ids)
		}
	})
}

func TestPersistence(t *testing.T) {
	t.Run("mappings survive a reload", func(t *testing.T) {
		store, urlsPath, recsPath := newTestStore(t)

		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "rec1")
		mustRecord(t, store, "https://img.example/b.png", "def456.png", "rec2")

		reloaded, err := NewStore(urlsPath, recsPath)
		if err != nil {
			t.Fatalf("Reload failed: %v", err)
		}

		if reloaded.Len() != 2 {
			t.Fatalf("Expected 2 mappings after reload, got %d", reloaded.Len())
		}
		if filename, _ := reloaded.Lookup("https://img.example/b.png"); filename != "def456.png" {
			t.Errorf("Expected def456.png, got %q", filename)
		}
		if ids := reloaded.RecordIDsFor("abc123.jpg"); len(ids) != 1 || ids[0] != "rec1" {
			t.Errorf("Expected [rec1], got %v", ids)
		}
	})

	t.Run("backing files are plain JSON objects", func(t *testing.T) {
		store, urlsPath, _ := newTestStore(t)

		mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "rec1")

		data, err := os.ReadFile(urlsPath)
		if err != nil {
			t.Fatalf("Failed to read URL mapping file: %v", err)
		}

		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			t.Fatalf("URL mapping file is not a plain JSON object: %v", err)
		}
		if m["https://img.example/a.jpg"] != "abc123.jpg" {
			t.Errorf("Unexpected file contents: %v", m)
		}
	})
}

func TestURLs(t *testing.T) {
	store, _, _ := newTestStore(t)

	mustRecord(t, store, "https://img.example/b.png", "def456.png", "")
	mustRecord(t, store, "https://img.example/a.jpg", "abc123.jpg", "")

	urls := store.URLs()
	if len(urls) != 2 || urls[0] != "https://img.example/a.jpg" {
		t.Errorf("Expected sorted URL list, got %v", urls)
	}
}

func mustRecord(t *testing.T, store *Store, url, filename, recordID string) {
	t.Helper()
	if err := store.Record(url, filename, recordID); err != nil {
		t.Fatalf("Record(%s, %s, %s) failed: %v", url, filename, recordID, err)
	}
}
