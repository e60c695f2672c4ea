package server

import (
	"errors"
	"log/slog"
	"net/http"
	"path"
	"strings"

	"github.com/MeKo-Tech/hueswap/internal/store"
)

// ResultsHandler serves previously recolored images from the result cache by key.
// Keys are handed out in the X-Hueswap-Key header of /recolor responses.
type ResultsHandler struct {
	cache        Cache
	logger       *slog.Logger
	cacheControl string
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(cache Cache, cacheControl string, logger *slog.Logger) *ResultsHandler {
	if cacheControl == "" {
		cacheControl = "public, max-age=86400, immutable"
	}
	return &ResultsHandler{
		cache:        cache,
		logger:       logger,
		cacheControl: cacheControl,
	}
}

// Handler returns the HTTP handler function.
func (h *ResultsHandler) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serveResult(w, r)
	}
}

func (h *ResultsHandler) serveResult(w http.ResponseWriter, r *http.Request) {
	key, ok := parseResultPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	e, err := h.cache.Lookup(key)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "result not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log().Error("failed to read result", "key", key, "error", err)
		http.Error(w, "failed to read result", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Cache-Control", h.cacheControl)
	if e.Matched != "" {
		w.Header().Set(headerMatched, e.Matched)
	}
	writePNG(w, e.Data, h.log())
}

func (h *ResultsHandler) log() *slog.Logger {
	if h.logger != nil {
		return h.logger
	}
	return slog.Default()
}

// parseResultPath extracts the key from /results/<64 hex chars>.png.
func parseResultPath(requestPath string) (string, bool) {
	if !strings.HasPrefix(requestPath, "/results/") {
		return "", false
	}
	base := path.Base(requestPath)
	if !strings.HasSuffix(base, ".png") {
		return "", false
	}
	key := strings.TrimSuffix(base, ".png")
	if len(key) != 64 {
		return "", false
	}
	for _, c := range key {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return "", false
		}
	}
	return key, true
}
