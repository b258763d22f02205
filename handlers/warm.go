package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/domain"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/logging"
	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
)

// WarmRequest is the payload of POST /api/images/warm: one upstream
// record whose fields may reference images in any of the upstream's
// shapes (bare URL string, attachment object list, nested objects,
// prose with inline links).
type WarmRequest struct {
	RecordID string                 `json:"recordID"`
	Tier     string                 `json:"tier,omitempty"`
	Fields   map[string]interface{} `json:"fields"`
}

// WarmResponse reports how the warm run went.
type WarmResponse struct {
	Candidates int      `json:"candidates"`
	Cached     int      `json:"cached"`
	Failed     []string `json:"failed,omitempty"`
}

// CreateWarmHandler returns a handler that pre-caches every image a
// record references, so the first page view after publication is served
// from disk. Individual fetch failures do not fail the request; they are
// reported back per URL.
func CreateWarmHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			logging.WriteJSONError(w, deps.Logger, "Method not allowed", http.StatusMethodNotAllowed, map[string]interface{}{
				"method": r.Method,
			})
			return
		}

		var req WarmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logging.WriteJSONError(w, deps.Logger, "Invalid JSON body", http.StatusBadRequest, map[string]interface{}{
				"error": err.Error(),
			})
			return
		}

		candidates := domain.CandidateURLs(req.Fields)
		tier := scheduler.Tier(req.Tier)

		resp := WarmResponse{Candidates: len(candidates)}
		for _, sourceURL := range candidates {
			if _, err := deps.Cache.Resolve(r.Context(), sourceURL, tier, req.RecordID); err != nil {
				resp.Failed = append(resp.Failed, sourceURL)
				continue
			}
			resp.Cached++
		}

		deps.Logger.Info("Warm run finished", map[string]interface{}{
			"recordID":   req.RecordID,
			"candidates": resp.Candidates,
			"cached":     resp.Cached,
			"failed":     len(resp.Failed),
		})

		logging.WriteJSONSuccess(w, deps.Logger, resp, nil)
	}
}
