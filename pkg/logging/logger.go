// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// LogLevel is a LOG_LEVEL value. Matching is case-insensitive and unknown
// values fall back to info.
type LogLevel string

const (
	LevelTrace LogLevel = "trace"
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	Level LogLevel

	// Pretty switches from JSON lines to the console writer (LOG_PRETTY).
	Pretty bool

	// Service, when set, is stamped on every event as "service".
	Service string

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig is used before configuration has been loaded.
func DefaultConfig() Config {
	return Config{
		Level:   LevelInfo,
		Service: "ttb-proxy",
		Output:  os.Stderr,
	}
}

// Setup builds the root logger, applies its level globally and installs it
// as the zerolog/log default so NewLogger derives from it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// RequestIDHeader is the response header carrying the per-request id.
const RequestIDHeader = "X-Request-Id"

// AccessLog returns middleware that attaches logger to each request context,
// assigns a request id and logs one line per completed request.
func AccessLog(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	})

	return func(next http.Handler) http.Handler {
		h := access(next)
		h = hlog.RemoteAddrHandler("remote_addr")(h)
		h = hlog.RequestIDHandler("request_id", RequestIDHeader)(h)
		return hlog.NewHandler(logger)(h)
	}
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Cache hits and derived keys
//   - Upstream request URLs
//
// Info: Normal operation events
//   - Completed requests (access log)
//   - Successful cache stores
//   - Forwarded request bodies when PROXY_LOG_BODIES is set
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Cache lookup/store failures (request still served)
//   - Upstream 4xx/5xx answers
//   - Redis connection retries
//
// Error: Error conditions requiring attention
//   - Upstream unreachable or timed out (502)
//   - Redis unavailable after all connection attempts
//   - Configuration errors
//
// Context Fields:
//   - component: proxy, cache, upstream, timetable
//   - endpoint: upstream endpoint label
//   - key: cache key
//   - status: HTTP status code
//   - error_class: upstream failure class (network, timeout, malformed)
//   - request_id: per-request id, echoed in X-Request-Id
