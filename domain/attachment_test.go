package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestIsHTTPURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://img.example/a.jpg", true},
		{"http://img.example/a.jpg", true},
		{"  https://img.example/a.jpg  ", true},
		{"ftp://img.example/a.jpg", false},
		{"img.example/a.jpg", false},
		{"https://", false},
		{"", false},
		{"not a url", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := IsHTTPURL(tt.input); got != tt.want {
				t.Errorf("IsHTTPURL(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCandidateURLs(t *testing.T) {
	t.Run("bare string URL", func(t *testing.T) {
		got := CandidateURLs("https://img.example/a.jpg")
		want := []string{"https://img.example/a.jpg"}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("array of attachment objects", func(t *testing.T) {
		var value interface{}
		payload := `[
			{"id": "att1", "url": "https://img.example/a.jpg", "filename": "a.jpg"},
			{"id": "att2", "url": "https://img.example/b.png"}
		]`
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			t.Fatalf("Failed to unmarshal fixture: %v", err)
		}

		got := CandidateURLs(value)
		want := []string{"https://img.example/a.jpg", "https://img.example/b.png"}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("single nested object with thumbnails", func(t *testing.T) {
		var value interface{}
		payload := `{
			"url": "https://img.example/full.jpg",
			"thumbnails": {
				"small": {"url": "https://img.example/small.jpg"},
				"large": {"url": "https://img.example/large.jpg"}
			}
		}`
		if err := json.Unmarshal([]byte(payload), &value); err != nil {
			t.Fatalf("Failed to unmarshal fixture: %v", err)
		}

		got := CandidateURLs(value)
		if len(got) != 3 {
			t.Fatalf("Expected 3 URLs, got %v", got)
		}
		if got[0] != "https://img.example/full.jpg" {
			t.Errorf("Expected full-size URL first, got %v", got)
		}
	})

	t.Run("inline URLs in prose", func(t *testing.T) {
		got := CandidateURLs("See https://img.example/a.jpg and also https://img.example/b.png.")
		want := []string{"https://img.example/a.jpg", "https://img.example/b.png"}

		if !reflect.DeepEqual(got, want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("duplicates are removed", func(t *testing.T) {
		got := CandidateURLs([]string{
			"https://img.example/a.jpg",
			"https://img.example/a.jpg",
		})

		if len(got) != 1 {
			t.Errorf("Expected 1 URL, got %v", got)
		}
	})

	t.Run("bare string values inside a field map are collected", func(t *testing.T) {
		got := CandidateURLs(map[string]interface{}{
			"Thumbnail": "https://img.example/thumb.png",
			"Caption":   "no urls here",
		})

		if len(got) != 1 || got[0] != "https://img.example/thumb.png" {
			t.Errorf("Expected the thumbnail URL, got %v", got)
		}
	})

	t.Run("unrecognized shapes yield nil", func(t *testing.T) {
		for _, value := range []interface{}{nil, 42, true, map[string]interface{}{"name": "no url here"}} {
			if got := CandidateURLs(value); got != nil {
				t.Errorf("CandidateURLs(%v) = %v, want nil", value, got)
			}
		}
	})

	t.Run("non-http references are dropped", func(t *testing.T) {
		got := CandidateURLs([]string{"ftp://img.example/a.jpg", "/relative/path.png"})
		if got != nil {
			t.Errorf("Expected nil, got %v", got)
		}
	})
}
