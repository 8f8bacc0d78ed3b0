// Package proxy implements the caching forwarder that fronts the upstream
// timetable API: key check, cache lookup, upstream call, store-or-skip and
// response, plus the CORS policy for the browser-facing surface.
package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Sternrassler/course-checker-proxy/pkg/cache"
	"github.com/Sternrassler/course-checker-proxy/pkg/client"
	"github.com/rs/zerolog"
)

// Cache status markers written to the X-Cache header.
const (
	CacheHit    = "HIT"
	CacheMiss   = "MISS"
	CacheBypass = "BYPASS"

	// HeaderCacheStatus carries the cache status marker.
	HeaderCacheStatus = "X-Cache"

	// DefaultContentType is used when the upstream omits a content type.
	DefaultContentType = "application/xml"
)

//go:generate mockgen -source=forwarder.go -destination=../../internal/mocks/mock_proxy.go -package=mocks

// Store is the key-value cache the forwarder reads and fills.
// *cache.Manager implements it.
type Store interface {
	Get(ctx context.Context, key cache.CacheKey) (string, error)
	Set(ctx context.Context, key cache.CacheKey, value string) error
}

// Upstream issues the equivalent request against the origin.
// *client.Client implements it.
type Upstream interface {
	Do(ctx context.Context, req client.Request) (*client.Response, error)
}

// Config holds forwarder settings.
type Config struct {
	// PublicPrefix is stripped from inbound paths (e.g. "/api")
	PublicPrefix string

	// CacheTimeout bounds each cache lookup and store
	CacheTimeout time.Duration

	// MaxBodyBytes limits inbound request bodies
	MaxBodyBytes int64

	// LogBodies logs forwarded headers and bodies of POST/PUT/PATCH requests
	LogBodies bool
}

// DefaultConfig returns the default forwarder configuration.
func DefaultConfig() Config {
	return Config{
		PublicPrefix: "/api",
		CacheTimeout: 2 * time.Second,
		MaxBodyBytes: 1 << 20,
	}
}

// Forwarder handles every call on the public API surface.
// Each call makes at most one upstream request; the cache lookup always
// precedes it and the store always follows it.
type Forwarder struct {
	upstream Upstream
	store    Store
	config   Config
	logger   zerolog.Logger
}

// NewForwarder creates a forwarder. A nil store disables caching and every
// response is marked BYPASS.
func NewForwarder(upstream Upstream, store Store, cfg Config, logger zerolog.Logger) *Forwarder {
	if upstream == nil {
		panic("upstream cannot be nil")
	}

	def := DefaultConfig()
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = def.CacheTimeout
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}

	return &Forwarder{
		upstream: upstream,
		store:    store,
		config:   cfg,
		logger:   logger,
	}
}

// ServeHTTP implements http.Handler.
func (f *Forwarder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, f.config.PublicPrefix), "/")

	body, err := f.readBody(w, r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			responsesTotal.WithLabelValues("rejected").Inc()
			WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Error: "Request body too large"})
			return
		}
		responsesTotal.WithLabelValues("rejected").Inc()
		WriteJSON(w, http.StatusBadRequest, ErrorBody{Error: "Failed to read request body", Message: err.Error()})
		return
	}

	key, cacheable := cache.DeriveKey(cache.Request{
		Method: r.Method,
		Path:   path,
		Query:  r.URL.Query(),
		Body:   body,
	})
	caching := cacheable && f.store != nil

	logger := f.logger.With().Str("method", r.Method).Str("path", path).Logger()

	// Key check
	if caching {
		if cached, ok := f.lookup(r.Context(), key, logger); ok {
			logger.Debug().Str("key", key.String()).Msg("Cache hit")
			f.write(w, http.StatusOK, DefaultContentType, CacheHit, []byte(cached))
			return
		}
	}

	// Upstream call
	if f.config.LogBodies && hasBody(r.Method) {
		logger.Info().
			Str("content_type", r.Header.Get("Content-Type")).
			Str("accept", r.Header.Get("Accept")).
			Int64("content_length", r.ContentLength).
			RawJSON("body", jsonOrQuoted(body)).
			Msg("Forwarding request")
	} else {
		logger.Debug().Msg("Forwarding request")
	}

	resp, err := f.upstream.Do(r.Context(), client.Request{
		Method:   r.Method,
		Path:     path,
		RawQuery: r.URL.RawQuery,
		Header:   r.Header,
		Body:     body,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Backend request error")
		responsesTotal.WithLabelValues("error").Inc()
		WriteJSON(w, http.StatusBadGateway, ErrorBody{
			Error:   "Failed to connect to backend",
			Message: err.Error(),
		})
		return
	}

	// Store-or-skip
	status := CacheBypass
	if caching && resp.IsSuccess() {
		f.storeResponse(r.Context(), key, string(resp.Body), logger)
		status = CacheMiss
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = DefaultContentType
	}

	f.write(w, resp.StatusCode, contentType, status, resp.Body)
}

// lookup reads the cache; any store failure is logged and reported as a miss.
func (f *Forwarder) lookup(ctx context.Context, key cache.CacheKey, logger zerolog.Logger) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, f.config.CacheTimeout)
	defer cancel()

	value, err := f.store.Get(ctx, key)
	if err == nil {
		return value, true
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed, treating as miss")
	}
	return "", false
}

// storeResponse writes the body under key. Failures are logged, never surfaced.
// The store is detached from the inbound request so a client hang-up after
// the upstream answered does not discard the fetched body.
func (f *Forwarder) storeResponse(ctx context.Context, key cache.CacheKey, body string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.config.CacheTimeout)
	defer cancel()

	if err := f.store.Set(ctx, key, body); err != nil {
		logger.Warn().Err(err).Str("key", key.String()).Msg("Cache store failed")
		return
	}
	logger.Info().Str("key", key.String()).Int("bytes", len(body)).Msg("Stored in cache")
}

func (f *Forwarder) write(w http.ResponseWriter, status int, contentType, cacheStatus string, body []byte) {
	responsesTotal.WithLabelValues(cacheStatus).Inc()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set(HeaderCacheStatus, cacheStatus)
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		f.logger.Debug().Err(err).Msg("Failed to write response")
	}
}

func (f *Forwarder) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, f.config.MaxBodyBytes))
}

func hasBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}
