package handlers

import (
	_ "embed"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pinkytoedev/PinkyToeWebsite-sub001/scheduler"
)

// placeholderPNG is served whenever an image cannot be resolved, so that
// article pages never render a broken <img>. Always sent with 200.
//
//go:embed placeholder.png
var placeholderPNG []byte

// staleCacheControl is the client cache policy for responses whose bytes
// are past their tier expiry or are the placeholder: short, so clients
// come back soon for a fresher copy.
const staleCacheControl = "public, max-age=60"

// CreateImageHandler returns the proxy handler for
// GET /api/images/{escaped-source-url}.
//
// The final path segment is the URL-escaped upstream source URL. Optional
// query parameters: "tier" (critical, important or stable; defaults to
// stable) and "record" (the article or record ID referencing the image).
// Every failure, including malformed input, degrades to the placeholder
// image with status 200.
func CreateImageHandler(deps Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		// Work from the escaped form so the source URL is decoded exactly
		// once, even when it contains percent-encoded characters itself.
		encoded := strings.TrimPrefix(r.URL.EscapedPath(), "/api/images/")
		sourceURL, err := url.PathUnescape(encoded)
		if err != nil || sourceURL == "" {
			deps.Logger.Warn("Malformed image proxy path", map[string]interface{}{
				"path": r.URL.Path,
			})
			servePlaceholder(w, r)
			return
		}

		tier := scheduler.Tier(r.URL.Query().Get("tier"))
		recordID := r.URL.Query().Get("record")

		res, err := deps.Cache.Resolve(r.Context(), sourceURL, tier, recordID)
		if err != nil {
			deps.Logger.Warn("Image resolution failed, serving placeholder", map[string]interface{}{
				"sourceURL": sourceURL,
				"error":     err.Error(),
			})
			servePlaceholder(w, r)
			return
		}

		w.Header().Set("Content-Type", res.ContentType)
		w.Header().Set("Content-Length", strconv.Itoa(len(res.Body)))
		w.Header().Set("Cache-Control", cacheControlFor(deps.Scheduler, tier, res.Stale, res.FetchedAt))

		if r.Method == http.MethodHead {
			return
		}
		if _, err := w.Write(res.Body); err != nil {
			deps.Logger.Debug("Failed to write image response", map[string]interface{}{
				"sourceURL": sourceURL,
				"error":     err.Error(),
			})
		}
	}
}

// cacheControlFor derives the client cache policy: stale bytes get the
// short policy, fresh bytes may be cached for their remaining validity.
func cacheControlFor(sched *scheduler.Scheduler, tier scheduler.Tier, stale bool, fetchedAt time.Time) string {
	if stale {
		return staleCacheControl
	}

	remaining := sched.GetCacheExpiry(tier) - time.Since(fetchedAt)
	if remaining < time.Minute {
		remaining = time.Minute
	}
	return fmt.Sprintf("public, max-age=%d", int(remaining.Seconds()))
}

func servePlaceholder(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(placeholderPNG)))
	w.Header().Set("Cache-Control", staleCacheControl)
	w.WriteHeader(http.StatusOK)

	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(placeholderPNG)
}
