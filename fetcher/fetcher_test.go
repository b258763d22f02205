package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/circuitbreaker"
)

func newTestFetcher(timeout time.Duration) *Fetcher {
	return New(timeout, BreakerConfig{
		FailureThreshold: 100, // effectively disabled unless a test tightens it
		Timeout:          time.Second,
		HalfOpenRequests: 1,
	}, nil)
}

func TestFetch(t *testing.T) {
	t.Run("returns body and content type on success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/jpeg")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("jpeg bytes"))
		}))
		defer server.Close()

		f := newTestFetcher(5 * time.Second)
		result, err := f.Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}

		if string(result.Body) != "jpeg bytes" {
			t.Errorf("Expected body %q, got %q", "jpeg bytes", result.Body)
		}
		if result.ContentType != "image/jpeg" {
			t.Errorf("Expected content type image/jpeg, got %q", result.ContentType)
		}
	})

	t.Run("rejects non-http schemes", func(t *testing.T) {
		f := newTestFetcher(time.Second)

		for _, bad := range []string{"ftp://example.com/a.jpg", "file:///etc/passwd", "data:image/png;base64,xx"} {
			_, err := f.Fetch(context.Background(), bad)
			if !errors.Is(err, ErrUnsupportedScheme) {
				t.Errorf("Fetch(%q): expected ErrUnsupportedScheme, got %v", bad, err)
			}
		}
	})

	t.Run("propagates upstream status as FetchError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "gone", http.StatusGone)
		}))
		defer server.Close()

		f := newTestFetcher(5 * time.Second)
		_, err := f.Fetch(context.Background(), server.URL)

		var fe *FetchError
		if !errors.As(err, &fe) {
			t.Fatalf("Expected FetchError, got %v", err)
		}
		if fe.StatusCode != http.StatusGone {
			t.Errorf("Expected status 410, got %d", fe.StatusCode)
		}
		if !fe.Permanent() {
			t.Error("Expected 410 to be permanent")
		}
	})

	t.Run("times out against a hanging upstream", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-release
		}))
		defer func() {
			close(release)
			server.Close()
		}()

		f := newTestFetcher(50 * time.Millisecond)
		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrTimeout) {
			t.Errorf("Expected ErrTimeout, got %v", err)
		}
	})
}

func TestFetchCircuitBreaker(t *testing.T) {
	t.Run("repeated failures open the host breaker", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer server.Close()

		f := New(time.Second, BreakerConfig{
			FailureThreshold: 2,
			Timeout:          time.Hour,
			HalfOpenRequests: 1,
		}, nil)

		for i := 0; i < 2; i++ {
			if _, err := f.Fetch(context.Background(), server.URL); err == nil {
				t.Fatalf("Expected failure on fetch %d", i)
			}
		}

		_, err := f.Fetch(context.Background(), server.URL)
		if !errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			t.Errorf("Expected ErrCircuitOpen after threshold, got %v", err)
		}
	})

	t.Run("breaker state is reported per host", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		f := newTestFetcher(time.Second)
		if _, err := f.Fetch(context.Background(), server.URL); err != nil {
			t.Fatalf("Fetch failed: %v", err)
		}

		states := f.BreakerStates()
		if len(states) != 1 {
			t.Fatalf("Expected 1 breaker, got %d", len(states))
		}
		for _, state := range states {
			if state != circuitbreaker.StateClosed {
				t.Errorf("Expected CLOSED, got %s", state)
			}
		}
	})
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unsupported scheme", ErrUnsupportedScheme, false},
		{"timeout", ErrTimeout, true},
		{"server error", &FetchError{URL: "u", StatusCode: 503}, true},
		{"not found", &FetchError{URL: "u", StatusCode: 404}, false},
		{"gone", &FetchError{URL: "u", StatusCode: 410}, false},
		{"rate limited", &FetchError{URL: "u", StatusCode: 429}, true},
		{"circuit open", circuitbreaker.ErrCircuitOpen, false},
		{"transport error", errors.New("connection refused"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
