package handlers

import (
	"fmt"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/config"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/fetcher"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/imagecache"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/mapping"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/metrics"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/store"
)

// Dependencies holds all the dependencies needed by the handlers
type Dependencies struct {
	Cache     *imagecache.Service
	Mappings  *mapping.Store
	Storage   *store.FileStorage
	Fetcher   *fetcher.Fetcher
	Scheduler *scheduler.Scheduler
	Logger    *logging.Logger
}

// InitDependencies initializes all application components
func InitDependencies(cfg *config.Config) (Dependencies, error) {
	logger := logging.New(logging.ParseLogLevel(cfg.LogLevel), "[image-proxy]")

	storage, err := store.NewFileStorage(cfg.Cache.Dir)
	if err != nil {
		return Dependencies{}, fmt.Errorf("failed to initialize cache storage: %w", err)
	}

	mappings, err := mapping.NewStore(cfg.Mapping.URLsFile, cfg.Mapping.RecordsFile)
	if err != nil {
		return Dependencies{}, fmt.Errorf("failed to initialize mapping store: %w", err)
	}
	logger.Info("Loaded URL mappings", map[string]interface{}{
		"entries":   mappings.Len(),
		"urlsFile":  cfg.Mapping.URLsFile,
		"recsFile":  cfg.Mapping.RecordsFile,
		"cacheDir":  cfg.Cache.Dir,
	})
	metrics.KnownMappings.Set(float64(mappings.Len()))

	sched, err := scheduler.New(cfg.Scheduler)
	if err != nil {
		return Dependencies{}, fmt.Errorf("failed to initialize refresh scheduler: %w", err)
	}

	fetch := fetcher.New(cfg.Fetch.Timeout, fetcher.BreakerConfig{
		FailureThreshold: cfg.CircuitBreaker.FailureThreshold,
		Timeout:          cfg.CircuitBreaker.Timeout,
		HalfOpenRequests: cfg.CircuitBreaker.HalfOpenRequests,
	}, logger)

	return Dependencies{
		Cache:     imagecache.NewService(mappings, storage, fetch, sched, logger),
		Mappings:  mappings,
		Storage:   storage,
		Fetcher:   fetch,
		Scheduler: sched,
		Logger:    logger,
	}, nil
}
