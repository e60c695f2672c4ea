package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/hueswap/internal/imageio"
	"github.com/MeKo-Tech/hueswap/internal/recolor"
	"github.com/MeKo-Tech/hueswap/internal/store"
)

const (
	// DefaultMaxBodyBytes limits uploaded images to 32 MiB.
	DefaultMaxBodyBytes = 32 << 20

	headerMatched = "X-Hueswap-Matched"
	headerCache   = "X-Hueswap-Cache"
	headerKey     = "X-Hueswap-Key"
)

// Cache stores encoded results and their per-rule match counts by key.
// *store.Store implements it.
type Cache interface {
	Lookup(key string) (store.Entry, error)
	Put(key string, data []byte, matched string) error
}

// RecolorConfig configures a RecolorService.
type RecolorConfig struct {
	PNGCompression string
	CacheControl   string
	MaxBodyBytes   int64
	// MaxPixels rejects uploads whose header declares more pixels, before decoding.
	MaxPixels int64
	// MaxSize downscales uploads so neither side exceeds it (0 keeps the original size).
	MaxSize       int
	MaxConcurrent int
	// Workers is the number of goroutines scanning one image.
	Workers        int
	RequestTimeout time.Duration
}

// RecolorService recolors uploaded images.
type RecolorService struct {
	cache  Cache
	rc     *recolor.Recolorer
	logger *slog.Logger
	sem    chan struct{}
	cfg    RecolorConfig

	activeJobs  atomic.Int32
	queuedJobs  atomic.Int32
	totalDone   atomic.Int64
	totalFailed atomic.Int64
	totalPixels atomic.Int64
	cacheHits   atomic.Int64
	rejected    atomic.Int64
}

// Status represents the current state of the service.
type Status struct {
	ActiveJobs    int   `json:"active_jobs"`
	QueuedJobs    int   `json:"queued_jobs"`
	MaxConcurrent int   `json:"max_concurrent"`
	TotalDone     int64 `json:"total_done"`
	TotalFailed   int64 `json:"total_failed"`
	TotalPixels   int64 `json:"total_pixels"`
	CacheHits     int64 `json:"cache_hits"`
	Rejected      int64 `json:"rejected"`
	CacheEnabled  bool  `json:"cache_enabled"`
}

// NewRecolorService creates a service. cache may be nil to disable result caching.
func NewRecolorService(cfg RecolorConfig, cache Cache, logger *slog.Logger) (*RecolorService, error) {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.MaxPixels <= 0 {
		cfg.MaxPixels = imageio.DefaultMaxPixels
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 1
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = time.Minute
	}
	if cfg.CacheControl == "" {
		cfg.CacheControl = "no-store"
	}
	if _, err := imageio.ParsePNGCompression(cfg.PNGCompression); err != nil {
		return nil, err
	}

	return &RecolorService{
		cfg:    cfg,
		cache:  cache,
		logger: logger,
		sem:    make(chan struct{}, cfg.MaxConcurrent),
		rc:     recolor.New(recolor.Config{Workers: cfg.Workers, Logger: logger}),
	}, nil
}

// Status returns the current counters.
func (s *RecolorService) Status() Status {
	return Status{
		ActiveJobs:    int(s.activeJobs.Load()),
		QueuedJobs:    int(s.queuedJobs.Load()),
		MaxConcurrent: s.cfg.MaxConcurrent,
		TotalDone:     s.totalDone.Load(),
		TotalFailed:   s.totalFailed.Load(),
		TotalPixels:   s.totalPixels.Load(),
		CacheHits:     s.cacheHits.Load(),
		Rejected:      s.rejected.Load(),
		CacheEnabled:  s.cache != nil,
	}
}

// StatusHandler returns an HTTP handler for the status endpoint (JSON).
func (s *RecolorService) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-store")

		if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
			s.log().Error("failed to encode status", "error", err)
			http.Error(w, "failed to encode status", http.StatusInternalServerError)
			return
		}
	})
}

// Handler returns the HTTP handler for POST /recolor.
func (s *RecolorService) Handler() http.Handler {
	return http.HandlerFunc(s.serveRecolor)
}

func (s *RecolorService) serveRecolor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST, OPTIONS")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	rules, err := recolor.ParseRules(r.URL.Query()["rule"])
	if err != nil {
		s.rejected.Add(1)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(rules) == 0 {
		s.rejected.Add(1)
		http.Error(w, "at least one rule parameter is required", http.StatusBadRequest)
		return
	}

	body, err := readBody(w, r, s.cfg.MaxBodyBytes)
	if err != nil {
		s.rejected.Add(1)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, fmt.Sprintf("image exceeds %d bytes", tooLarge.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	if _, err := imageio.CheckDimensions(bytes.NewReader(body), s.cfg.MaxPixels); err != nil {
		s.rejected.Add(1)
		var tooMany *imageio.TooManyPixelsError
		if errors.As(err, &tooMany) {
			http.Error(w, err.Error(), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := store.Key(body, rules, s.variant())
	w.Header().Set(headerKey, key)
	w.Header().Set("Cache-Control", s.cfg.CacheControl)

	if s.cache != nil {
		e, err := s.cache.Lookup(key)
		switch {
		case err == nil:
			s.cacheHits.Add(1)
			if e.Matched != "" {
				w.Header().Set(headerMatched, e.Matched)
			}
			w.Header().Set(headerCache, "hit")
			writePNG(w, e.Data, s.log())
			return
		case !errors.Is(err, store.ErrNotFound):
			s.log().Warn("cache lookup failed", "key", key, "error", err)
		}
	}

	// Track request as queued (waiting for semaphore)
	s.queuedJobs.Add(1)
	waitCtx, cancelWait := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancelWait()
	select {
	case s.sem <- struct{}{}:
		s.queuedJobs.Add(-1)
		defer func() { <-s.sem }()
	case <-waitCtx.Done():
		s.queuedJobs.Add(-1)
		s.rejected.Add(1)
		http.Error(w, "server busy", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()

	s.activeJobs.Add(1)
	data, stats, err := s.process(ctx, body, rules)
	s.activeJobs.Add(-1)

	if err != nil {
		status := errorStatus(err)
		if status == http.StatusBadRequest {
			s.rejected.Add(1)
		} else {
			s.totalFailed.Add(1)
			s.log().Error("failed to recolor image", "rules", len(rules), "error", err)
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.totalDone.Add(1)
	s.totalPixels.Add(int64(stats.Pixels))
	s.log().Info("image recolored",
		"pixels", stats.Pixels,
		"matched", stats.Matched,
		"skipped", stats.Skipped,
		"ms", stats.Elapsed.Milliseconds(),
	)

	matched := joinInts(stats.Matched)
	if s.cache != nil {
		if err := s.cache.Put(key, data, matched); err != nil {
			s.log().Warn("failed to cache result", "key", key, "error", err)
		}
	}

	w.Header().Set(headerMatched, matched)
	w.Header().Set(headerCache, "miss")
	writePNG(w, data, s.log())
}

// process decodes, recolors and re-encodes one image.
func (s *RecolorService) process(ctx context.Context, body []byte, rules []recolor.Rule) ([]byte, recolor.Stats, error) {
	img, err := imageio.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, recolor.Stats{}, &badRequestError{err: err}
	}
	img = imageio.Downscale(img, s.cfg.MaxSize)

	stats, err := s.rc.Recolor(ctx, img.Pix, rules)
	if err != nil {
		return nil, stats, err
	}

	level, err := imageio.ParsePNGCompression(s.cfg.PNGCompression)
	if err != nil {
		return nil, stats, err
	}

	var buf bytes.Buffer
	if err := imageio.EncodePNG(&buf, img, level); err != nil {
		return nil, stats, err
	}

	return buf.Bytes(), stats, nil
}

// variant captures the output settings that change the encoded result.
func (s *RecolorService) variant() string {
	return fmt.Sprintf("max=%d;png=%s", s.cfg.MaxSize, strings.ToLower(s.cfg.PNGCompression))
}

func (s *RecolorService) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func errorStatus(err error) int {
	var bad *badRequestError
	var badRule *recolor.InvalidRuleError
	var badBuf *recolor.InvalidBufferError
	switch {
	case errors.As(err, &bad), errors.As(err, &badRule), errors.As(err, &badBuf):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	if r.ContentLength > 0 && r.ContentLength <= limit {
		buf.Grow(int(r.ContentLength))
	}
	if _, err := buf.ReadFrom(http.MaxBytesReader(w, r.Body, limit)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writePNG(w http.ResponseWriter, data []byte, logger *slog.Logger) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func joinInts(vals []int) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, ",")
}
