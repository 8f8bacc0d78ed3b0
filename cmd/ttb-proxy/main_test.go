package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/course-checker-proxy/internal/testutil"
	"github.com/Sternrassler/course-checker-proxy/pkg/cache"
	"github.com/Sternrassler/course-checker-proxy/pkg/client"
	"github.com/Sternrassler/course-checker-proxy/pkg/proxy"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("Redis container not available: %v", err)
	}

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := cache.NewRedisClient(cache.StoreOptions{
		Host: host,
		Port: port.Int(),
	})

	cleanup := func() {
		redisClient.Close()
		_ = redisC.Terminate(ctx)
	}

	return redisClient, cleanup
}

// fakeStore serves the operational endpoints without a cache store.
type fakeStore struct {
	pingErr  error
	stats    string
	statsErr error
}

func (f fakeStore) Ping(context.Context) error { return f.pingErr }

func (f fakeStore) Stats(context.Context) (string, error) { return f.stats, f.statsErr }

func newTestRouter(t *testing.T, baseURL string, store *cache.Manager, ops cacheStore) http.Handler {
	t.Helper()

	upstream, err := client.New(client.DefaultConfig(baseURL))
	if err != nil {
		t.Fatalf("Failed to create upstream client: %v", err)
	}

	var fwdStore proxy.Store
	if store != nil {
		fwdStore = store
	}
	forwarder := proxy.NewForwarder(upstream, fwdStore, proxy.DefaultConfig(), zerolog.Nop())

	return newRouter(forwarder, ops, proxy.DefaultCORS(nil), zerolog.Nop())
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %q", body["status"])
	}
	if _, err := time.Parse(time.RFC3339, body["timestamp"]); err != nil {
		t.Errorf("Expected RFC3339 timestamp, got %q", body["timestamp"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	handler := readyHandler(cache.NewManager(redisClient, time.Minute))

	t.Run("ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		resp := w.Result()
		body, _ := io.ReadAll(resp.Body)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected status 200, got %d", resp.StatusCode)
		}

		if string(body) != "OK" {
			t.Errorf("Expected body 'OK', got %s", string(body))
		}
	})

	t.Run("not_ready_redis_down", func(t *testing.T) {
		// Close Redis to simulate failure
		redisClient.Close()

		req := httptest.NewRequest("GET", "/ready", nil)
		w := httptest.NewRecorder()

		handler(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Expected status 503, got %d", w.Code)
		}
	})
}

func TestCacheStatsEndpoint(t *testing.T) {
	t.Run("stats", func(t *testing.T) {
		handler := statsHandler(fakeStore{stats: "# Stats\r\nkeyspace_hits:3\r\n"})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/cache/stats", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}

		var body map[string]string
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("Failed to decode body: %v", err)
		}
		if !strings.Contains(body["redis_stats"], "keyspace_hits:3") {
			t.Errorf("Expected redis_stats to carry INFO text, got %q", body["redis_stats"])
		}
	})

	t.Run("store_error", func(t *testing.T) {
		handler := statsHandler(fakeStore{statsErr: errors.New("connection refused")})

		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/cache/stats", nil))

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected status 500, got %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), "Failed to get cache stats") {
			t.Errorf("Unexpected body: %s", w.Body.String())
		}
	})
}

func TestRouter(t *testing.T) {
	mock := testutil.NewMockTTB()
	defer mock.Close()
	mock.SetResponse("/ttb/getOptimizedMatchingCourseTitles", testutil.NewXMLResponse(testutil.SampleTitlesXML))

	router := newTestRouter(t, mock.URL(), nil, fakeStore{stats: "keyspace_hits:0"})

	t.Run("api_forwarded", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/getOptimizedMatchingCourseTitles?term=CSC1&sessions=20251", nil)
		req.Header.Set("Origin", "http://localhost:4200")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != testutil.SampleTitlesXML {
			t.Errorf("Unexpected body: %s", w.Body.String())
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
			t.Errorf("Expected CORS origin header, got %q", got)
		}
		if w.Header().Get("X-Request-Id") == "" {
			t.Error("Expected X-Request-Id header")
		}
	})

	t.Run("preflight", func(t *testing.T) {
		before := mock.GetRequestCount()

		req := httptest.NewRequest("OPTIONS", "/api/getPageableCourses", nil)
		req.Header.Set("Origin", "http://angular-frontend:4200")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNoContent {
			t.Errorf("Expected status 204, got %d", w.Code)
		}
		if mock.GetRequestCount() != before {
			t.Error("Preflight must not reach the upstream")
		}
	})

	t.Run("foreign_origin", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/getOptimizedMatchingCourseTitles?term=CSC1&sessions=20251", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusForbidden {
			t.Errorf("Expected status 403, got %d", w.Code)
		}
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

		body := w.Body.String()
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
		if !strings.Contains(body, "# HELP") || !strings.Contains(body, "# TYPE") {
			t.Error("Expected Prometheus format metrics output")
		}
		if !strings.Contains(body, "ttb_proxy_responses_total") {
			t.Error("Expected metrics output to contain ttb_proxy_responses_total")
		}
	})

	t.Run("unknown_route", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", "/nothing", nil))

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status 404, got %d", w.Code)
		}
	})
}

func TestRouter_CachesThroughRedis(t *testing.T) {
	redisClient, cleanup := setupTestRedis(t)
	defer cleanup()

	mock := testutil.NewMockTTB()
	defer mock.Close()
	mock.SetResponse("/ttb/getOptimizedMatchingCourseTitles", testutil.NewXMLResponse(testutil.SampleTitlesXML))

	manager := cache.NewManager(redisClient, time.Minute)
	router := newTestRouter(t, mock.URL(), manager, manager)

	target := "/api/getOptimizedMatchingCourseTitles?term=CSC1&sessions=20251"
	for i, want := range []string{proxy.CacheMiss, proxy.CacheHit} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest("GET", target, nil))

		if got := w.Header().Get(proxy.HeaderCacheStatus); got != want {
			t.Errorf("request %d: expected X-Cache %s, got %s", i+1, want, got)
		}
	}

	if mock.GetRequestCount() != 1 {
		t.Errorf("Expected 1 upstream call, got %d", mock.GetRequestCount())
	}

	ttl, err := redisClient.TTL(context.Background(), "titles:CSC1:20251").Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("Expected TTL within (0, 1m], got %v", ttl)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/cache/stats", nil))
	if !strings.Contains(w.Body.String(), "keyspace_hits") {
		t.Errorf("Expected cache stats to contain keyspace_hits, got %s", w.Body.String())
	}
}
