// Package fetcher downloads source images over HTTP(S) with a bounded
// timeout and a per-host circuit breaker in front of flaky upstreams.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/circuitbreaker"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/metrics"
)

// BreakerConfig carries the per-host circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold int
	Timeout          time.Duration
	HalfOpenRequests int
}

// Fetcher downloads image bytes from http(s) sources
type Fetcher struct {
	client     *http.Client
	breakerCfg BreakerConfig
	logger     *logging.Logger

	mu       sync.Mutex
	breakers map[string]circuitbreaker.CircuitBreaker
}

// New creates a new Fetcher with the specified timeout and circuit
// breaker configuration. A nil logger disables breaker state logging.
func New(timeout time.Duration, breakerCfg BreakerConfig, logger *logging.Logger) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		breakerCfg: breakerCfg,
		logger:     logger,
		breakers:   make(map[string]circuitbreaker.CircuitBreaker),
	}
}

// Fetch downloads the resource at rawURL through the host's circuit
// breaker. Only http and https schemes are accepted.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, rawURL)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}

	cb := f.breakerFor(parsed.Host)

	var result *Result
	execErr := cb.Execute(func() error {
		var fetchErr error
		result, fetchErr = f.fetchFromURL(ctx, rawURL)
		return fetchErr
	})
	metrics.SetCircuitBreakerState(parsed.Host, cb.State().String())
	if execErr != nil {
		return nil, execErr
	}

	return result, nil
}

// fetchFromURL performs the actual HTTP fetch with timeout
func (f *Fetcher) fetchFromURL(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Result{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// breakerFor returns the circuit breaker guarding an upstream host,
// creating it on first use.
func (f *Fetcher) breakerFor(host string) circuitbreaker.CircuitBreaker {
	f.mu.Lock()
	defer f.mu.Unlock()

	cb, ok := f.breakers[host]
	if !ok {
		cb = circuitbreaker.New(circuitbreaker.Config{
			FailureThreshold: f.breakerCfg.FailureThreshold,
			Timeout:          f.breakerCfg.Timeout,
			HalfOpenRequests: f.breakerCfg.HalfOpenRequests,
			Logger:           f.logger,
			Host:             host,
		})
		f.breakers[host] = cb
	}

	return cb
}

// BreakerStates returns the current breaker state per upstream host.
func (f *Fetcher) BreakerStates() map[string]circuitbreaker.State {
	f.mu.Lock()
	defer f.mu.Unlock()

	states := make(map[string]circuitbreaker.State, len(f.breakers))
	for host, cb := range f.breakers {
		states[host] = cb.State()
	}
	return states
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
