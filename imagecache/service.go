// Package imagecache resolves externally-owned image URLs to locally
// cached, servable bytes. Upstream attachment URLs expire, so the cache
// is the source of record once an image has been fetched: a request is
// answered from disk whenever any copy exists, and upstream is only
// consulted to fill or refresh entries.
package imagecache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/circuitbreaker"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/fetcher"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/mapping"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/metrics"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/namer"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/store"
)

// ErrResolutionFailed is returned when no servable bytes, fresh or
// stale, can be produced for a source URL. It is the only error that
// crosses into the proxy endpoint.
var ErrResolutionFailed = errors.New("image resolution failed")

// Resolution is the outcome of resolving a source URL: the servable
// bytes plus the metadata the proxy endpoint needs.
type Resolution struct {
	Filename    string
	Body        []byte
	ContentType string
	SizeBytes   int64
	FetchedAt   time.Time
	Stale       bool // served past its tier expiry
	FromCache   bool // answered without an upstream fetch
}

// Service orchestrates the namer, mapping store, fetcher and cache
// store into a single resolve operation.
type Service struct {
	mappings *mapping.Store
	storage  store.Storage
	fetch    fetcher.Interface
	sched    *scheduler.Scheduler
	logger   *logging.Logger

	group      singleflight.Group
	background *backgroundTasks
}

// NewService creates an image cache service. A nil logger falls back to
// a default INFO logger.
func NewService(mappings *mapping.Store, storage store.Storage, fetch fetcher.Interface, sched *scheduler.Scheduler, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.New(logging.INFO, "[imagecache]")
	}

	return &Service{
		mappings:   mappings,
		storage:    storage,
		fetch:      fetch,
		sched:      sched,
		logger:     logger,
		background: newBackgroundTasks(),
	}
}

// Resolve maps a source URL to servable bytes.
//
// A mapped URL whose file is on disk is answered from disk: fresh
// entries immediately, stale entries immediately too with a refresh
// scheduled off the request path. Only a URL with no usable local copy
// pays for an upstream fetch, and concurrent resolves for the same URL
// coalesce into one fetch. When nothing servable can be produced the
// error wraps ErrResolutionFailed.
func (s *Service) Resolve(ctx context.Context, sourceURL string, tier scheduler.Tier, recordID string) (*Resolution, error) {
	if sourceURL == "" {
		return nil, fmt.Errorf("%w: empty source URL", ErrResolutionFailed)
	}

	if filename, ok := s.mappings.Lookup(sourceURL); ok {
		if res, ok := s.resolveFromDisk(sourceURL, filename, tier, recordID); ok {
			return res, nil
		}
		// Mapped but evicted from disk: refill like a miss.
	}

	metrics.CacheMisses.Inc()

	stored, err := s.fetchAndStore(ctx, sourceURL, recordID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrResolutionFailed, sourceURL, err)
	}

	return &Resolution{
		Filename:    stored.filename,
		Body:        stored.body,
		ContentType: stored.contentType,
		SizeBytes:   int64(len(stored.body)),
		FetchedAt:   stored.fetchedAt,
	}, nil
}

// resolveFromDisk serves a mapped entry from the cache store. The
// second return value is false when the file is missing and the caller
// must fall through to the fetch path.
func (s *Service) resolveFromDisk(sourceURL, filename string, tier scheduler.Tier, recordID string) (*Resolution, bool) {
	info, err := s.storage.Stat(filename)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to stat cached file", map[string]interface{}{
				"filename": filename, "error": err.Error(),
			})
		}
		return nil, false
	}

	body, err := s.storage.Read(filename)
	if err != nil {
		return nil, false
	}

	age := time.Since(info.ModTime)
	stale := age > s.sched.GetCacheExpiry(tier)

	if stale {
		metrics.StaleServes.Inc()
		s.scheduleRefresh(sourceURL, tier, recordID, age)
	} else {
		metrics.CacheHits.Inc()
	}

	return &Resolution{
		Filename:    filename,
		Body:        body,
		ContentType: namer.ContentTypeFor(filename),
		SizeBytes:   info.SizeBytes,
		FetchedAt:   info.ModTime,
		Stale:       stale,
		FromCache:   true,
	}, true
}

// scheduleRefresh kicks off a detached refresh for a stale entry. The
// triggering request never waits on it; failures are logged and leave
// the stale file in place.
func (s *Service) scheduleRefresh(sourceURL string, tier scheduler.Tier, recordID string, age time.Duration) {
	s.logger.LogRefreshScheduled(sourceURL, age)

	s.background.run(func() {
		// Detached from the request context on purpose: the fetcher's
		// own timeout bounds the work.
		if err := s.RefreshIfStale(context.Background(), sourceURL, tier, recordID); err != nil {
			// The stale copy stays in place and keeps being served.
			s.logger.LogStaleServe(sourceURL, age, err)
			metrics.RecordBackgroundRefresh(metrics.RefreshFailed)
			return
		}
		metrics.RecordBackgroundRefresh(metrics.RefreshOK)
	})
}

// RefreshIfStale re-fetches a mapped URL when its cached copy is absent
// or past the tier expiry. Fresh entries are left alone. Used by the
// stale-serve path and the background sweep worker.
func (s *Service) RefreshIfStale(ctx context.Context, sourceURL string, tier scheduler.Tier, recordID string) error {
	filename, ok := s.mappings.Lookup(sourceURL)
	if ok {
		if info, err := s.storage.Stat(filename); err == nil {
			if time.Since(info.ModTime) <= s.sched.GetCacheExpiry(tier) {
				return nil
			}
		}
	}

	_, err := s.fetchAndStore(ctx, sourceURL, recordID)
	return err
}

// storedResult is what a completed fetch-and-store leaves behind.
type storedResult struct {
	filename    string
	body        []byte
	contentType string
	fetchedAt   time.Time
}

// fetchAndStore downloads sourceURL, writes the bytes to the cache
// store and records the mapping. Concurrent calls for the same URL
// coalesce into a single in-flight fetch; every caller gets the shared
// outcome.
func (s *Service) fetchAndStore(ctx context.Context, sourceURL, recordID string) (*storedResult, error) {
	v, err, shared := s.group.Do(sourceURL, func() (interface{}, error) {
		return s.doFetchAndStore(ctx, sourceURL, recordID)
	})
	if shared {
		metrics.CoalescedRequests.Inc()
	}
	if err != nil {
		return nil, err
	}

	return v.(*storedResult), nil
}

func (s *Service) doFetchAndStore(ctx context.Context, sourceURL, recordID string) (*storedResult, error) {
	result, err := s.fetchWithRetry(ctx, sourceURL)
	if err != nil {
		s.recordFetchFailure(err)
		return nil, err
	}

	filename := namer.Filename(sourceURL, result.ContentType)

	// Refuse to write under a filename the URL is not mapped to: a
	// collision or extension drift must surface, never overwrite.
	if existing, ok := s.mappings.Lookup(sourceURL); ok && existing != filename {
		s.logger.LogMappingConflict(sourceURL, existing, filename)
		metrics.MappingConflicts.Inc()
		return nil, &mapping.ConflictError{SourceURL: sourceURL, Existing: existing, Proposed: filename}
	}

	if err := s.storage.Write(filename, result.Body); err != nil {
		return nil, fmt.Errorf("failed to store fetched image: %w", err)
	}

	if err := s.mappings.Record(sourceURL, filename, recordID); err != nil {
		if mapping.IsConflict(err) {
			s.logger.LogMappingConflict(sourceURL, filename, filename)
			metrics.MappingConflicts.Inc()
		}
		return nil, err
	}
	metrics.KnownMappings.Set(float64(s.mappings.Len()))

	contentType := result.ContentType
	if contentType == "" {
		contentType = namer.ContentTypeFor(filename)
	}

	return &storedResult{
		filename:    filename,
		body:        result.Body,
		contentType: contentType,
		fetchedAt:   time.Now(),
	}, nil
}

// fetchWithRetry performs the upstream fetch with a single retry for
// transient failures. Permanent failures (bad scheme, 404/410, open
// breaker) are returned as-is.
func (s *Service) fetchWithRetry(ctx context.Context, sourceURL string) (*fetcher.Result, error) {
	result, err := s.fetch.Fetch(ctx, sourceURL)
	if err == nil {
		return result, nil
	}

	if !fetcher.IsRetryable(err) {
		return nil, err
	}

	s.logger.Debug("Retrying fetch after transient failure", map[string]interface{}{
		"sourceURL": sourceURL,
		"error":     err.Error(),
	})

	return s.fetch.Fetch(ctx, sourceURL)
}

// recordFetchFailure classifies a fetch error for metrics.
func (s *Service) recordFetchFailure(err error) {
	switch {
	case errors.Is(err, fetcher.ErrUnsupportedScheme):
		metrics.RecordFetchError(metrics.ReasonUnsupportedScheme)
	case errors.Is(err, fetcher.ErrTimeout):
		metrics.RecordFetchError(metrics.ReasonTimeout)
	case errors.Is(err, circuitbreaker.ErrCircuitOpen),
		errors.Is(err, circuitbreaker.ErrHalfOpenLimitReached):
		metrics.RecordFetchError(metrics.ReasonCircuitOpen)
	default:
		var fe *fetcher.FetchError
		if errors.As(err, &fe) {
			metrics.RecordFetchError(metrics.ReasonUpstreamStatus)
		} else {
			metrics.RecordFetchError(metrics.ReasonTransport)
		}
	}
}

// EntryCount returns the number of known URL mappings.
func (s *Service) EntryCount() int {
	return s.mappings.Len()
}

// Wait blocks until all detached background refreshes have finished.
// Used at shutdown and by tests.
func (s *Service) Wait() {
	s.background.wait()
}
