package handlers

import (
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/config"
)

// SetupRoutes configures all HTTP routes and handlers
func SetupRoutes(cfg *config.Config, deps Dependencies) http.Handler {
	handler := http.NewServeMux()

	handler.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Printf("Error writing health response: %v", err)
		}
	})

	// Prometheus metrics endpoint
	handler.Handle("/metrics", promhttp.Handler())

	// Pre-cache every image a record references. More specific than the
	// proxy prefix, so the mux routes it here.
	handler.HandleFunc("/api/images/warm", CreateWarmHandler(deps))

	// Image proxy - the path carries the URL-escaped source URL
	handler.HandleFunc("/api/images/", CreateImageHandler(deps))

	// Operational visibility into the cache
	handler.HandleFunc("/api/cache/stats", CreateStatsHandler(deps))

	return handler
}
