package handlers

import (
	"net/http"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
)

// CacheStats is the payload of GET /api/cache/stats.
type CacheStats struct {
	Entries         int               `json:"entries"`
	CacheBytes      int64             `json:"cacheBytes"`
	CircuitBreakers map[string]string `json:"circuitBreakers,omitempty"`
}

// CreateStatsHandler returns a handler reporting cache occupancy and the
// per-host circuit breaker states.
func CreateStatsHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
			})
			return
		}

		size, err := deps.Storage.TotalSize()
		if err != nil {
			logging.WriteJSONError(w, deps.Logger, "Failed to compute cache size", http.StatusInternalServerError, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		stats := CacheStats{
			Entries:    deps.Mappings.Len(),
			CacheBytes: size,
		}

		if states := deps.Fetcher.BreakerStates(); len(states) > 0 {
			stats.CircuitBreakers = make(map[string]string, len(states))
			for host, state := range states {
				stats.CircuitBreakers[host] = state.String()
			}
		}

		logging.WriteJSONSuccess(w, deps.Logger, stats, nil)
	}
}
