// Package client provides the upstream timetable HTTP client: path rewriting
// into the upstream namespace, header normalization and failure
// classification.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/course-checker-proxy/pkg/cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for upstream operations.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttb_upstream_requests_total",
		Help: "Total upstream timetable requests by endpoint and status",
	}, []string{"endpoint", "status"})

	upstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ttb_upstream_request_duration_seconds",
		Help:    "Upstream timetable request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ttb_upstream_errors_total",
		Help: "Total upstream failures (no usable response) by class",
	}, []string{"class"})
)

const (
	// DefaultUpstreamPrefix is the namespace of the upstream timetable API.
	DefaultUpstreamPrefix = "/ttb"

	// DefaultUserAgent is sent when the inbound request has none.
	DefaultUserAgent = "course-checker-cache-proxy"

	// DefaultAccept is sent when the inbound request has no Accept header.
	DefaultAccept = "*/*"

	// DefaultTimeout bounds one upstream call.
	DefaultTimeout = 8 * time.Second
)

// Client forwards requests to the upstream timetable API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream origin, e.g. "https://api.easi.utoronto.ca" (REQUIRED)
	BaseURL string

	// UpstreamPrefix replaces the public path prefix (default "/ttb")
	UpstreamPrefix string

	// UserAgent is the fallback User-Agent header
	UserAgent string

	// Timeout bounds each upstream call
	Timeout time.Duration
}

// DefaultConfig returns a default configuration for the given upstream.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:        baseURL,
		UpstreamPrefix: DefaultUpstreamPrefix,
		UserAgent:      DefaultUserAgent,
		Timeout:        DefaultTimeout,
	}
}

// New creates a new upstream client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base URL is required")
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse upstream base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("upstream base URL must be http(s), got %q", cfg.BaseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("upstream base URL has no host: %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		config:  cfg,
		logger:  log.With().Str("component", "upstream-client").Logger(),
	}, nil
}

// Request is a request on the public API surface, public prefix already stripped.
type Request struct {
	Method   string
	Path     string
	RawQuery string
	Header   http.Header
	Body     []byte
}

// Response is a captured upstream response. Non-2xx statuses are returned
// as responses, never as errors.
type Response struct {
	StatusCode  int
	ContentType string
	Header      http.Header
	Body        []byte
}

// IsSuccess reports whether the upstream answered with a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// URL builds the upstream URL for a public path and raw query.
// Example: "getPageableCourses" -> "<base>/ttb/getPageableCourses"
func (c *Client) URL(path, rawQuery string) string {
	target := c.baseURL + c.config.UpstreamPrefix + "/" + strings.TrimLeft(path, "/")
	if rawQuery != "" {
		target += "?" + rawQuery
	}
	return target
}

// Do forwards req to the upstream and captures status, headers and body.
// Errors are always *UpstreamError and mean no usable response exists.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	endpoint := EndpointLabel(req.Path)
	target := c.URL(req.Path, req.RawQuery)

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	var body io.Reader
	if req.Method != http.MethodGet && req.Method != http.MethodHead && req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, c.fail(endpoint, ErrorClassMalformed, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header = c.forwardHeaders(req.Header)

	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", req.Method).
		Str("url", target).
		Msg("Forwarding upstream request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.fail(endpoint, classifyError(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		class := classifyError(err)
		if class == ErrorClassNetwork {
			class = ErrorClassMalformed
		}
		return nil, c.fail(endpoint, class, fmt.Errorf("read response body: %w", err))
	}

	upstreamRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	out := &Response{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Header:      resp.Header.Clone(),
		Body:        data,
	}

	if !out.IsSuccess() {
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Upstream returned error status")
	}

	return out, nil
}

// forwardHeaders keeps only the headers the upstream needs, with defaults.
func (c *Client) forwardHeaders(in http.Header) http.Header {
	out := make(http.Header)

	accept := in.Get("Accept")
	if accept == "" {
		accept = DefaultAccept
	}
	out.Set("Accept", accept)

	userAgent := in.Get("User-Agent")
	if userAgent == "" {
		userAgent = c.config.UserAgent
	}
	out.Set("User-Agent", userAgent)

	if contentType := in.Get("Content-Type"); contentType != "" {
		out.Set("Content-Type", contentType)
	}

	return out
}

func (c *Client) fail(endpoint string, class ErrorClass, err error) error {
	upstreamErrorsTotal.WithLabelValues(string(class)).Inc()
	upstreamRequestsTotal.WithLabelValues(endpoint, string(class)).Inc()

	c.logger.Error().
		Err(err).
		Str("endpoint", endpoint).
		Str("error_class", string(class)).
		Msg("Upstream request failed")

	return &UpstreamError{
		Class:    class,
		Endpoint: endpoint,
		Err:      err,
	}
}

// EndpointLabel maps a path to a bounded metrics label.
func EndpointLabel(path string) string {
	switch {
	case strings.Contains(path, cache.TitleSearchEndpoint):
		return cache.TitleSearchEndpoint
	case strings.Contains(path, cache.CourseDetailEndpoint):
		return cache.CourseDetailEndpoint
	default:
		return "other"
	}
}
