package proxy

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// DefaultAllowedOrigins are the known course checker frontend origins.
var DefaultAllowedOrigins = []string{
	"http://localhost:4200",
	"http://angular-frontend:4200",
}

// CORS is the cross-origin policy of the public surface.
type CORS struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string

	// MaxAge is how long browsers may cache a preflight answer
	MaxAge time.Duration
}

// DefaultCORS returns the policy for the given origins with the fixed
// method/header allow-lists and a one-day preflight lifetime.
func DefaultCORS(origins []string) CORS {
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins
	}
	return CORS{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Accept"},
		MaxAge:         24 * time.Hour,
	}
}

// IsAllowedOrigin reports whether origin may call the proxy.
// Requests without an Origin (curl, server-side callers) are allowed.
func IsAllowedOrigin(origin string, allowList []string) bool {
	if origin == "" {
		return true
	}
	for _, allowed := range allowList {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), origin) {
			return true
		}
	}
	return false
}

// Handler applies the policy: rejects foreign origins, decorates allowed
// responses and answers preflight requests without calling next.
func (c CORS) Handler(next http.Handler) http.Handler {
	methods := strings.Join(c.AllowedMethods, ", ")
	headers := strings.Join(c.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(int(c.MaxAge.Seconds()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if !IsAllowedOrigin(origin, c.AllowedOrigins) {
			corsRejectionsTotal.Inc()
			WriteJSON(w, http.StatusForbidden, ErrorBody{Error: "Not allowed by CORS", Message: origin})
			return
		}

		h := w.Header()
		h.Add("Vary", "Origin")
		if origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		}
		h.Set("Access-Control-Allow-Methods", methods)
		h.Set("Access-Control-Allow-Headers", headers)

		if r.Method == http.MethodOptions {
			h.Set("Access-Control-Max-Age", maxAge)
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
