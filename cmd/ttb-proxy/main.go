package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/course-checker-proxy/pkg/cache"
	"github.com/Sternrassler/course-checker-proxy/pkg/client"
	"github.com/Sternrassler/course-checker-proxy/pkg/config"
	"github.com/Sternrassler/course-checker-proxy/pkg/logging"
	"github.com/Sternrassler/course-checker-proxy/pkg/metrics"
	"github.com/Sternrassler/course-checker-proxy/pkg/proxy"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Configuration from environment
	cfg, err := config.Load()
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	logger := logging.Setup(logging.Config{
		Level:   logging.LogLevel(cfg.LogLevel),
		Pretty:  cfg.LogPretty,
		Service: "ttb-proxy",
		Output:  os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Redis
	redisClient := cache.NewRedisClient(cache.StoreOptions{
		Host:      cfg.Redis.Host,
		Port:      cfg.Redis.Port,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		OpTimeout: cfg.CacheTimeout,
	})
	defer redisClient.Close()

	retry := cache.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Redis.ConnectAttempts
	if err := cache.Connect(ctx, redisClient, retry, logging.NewLogger("cache")); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr()).Msg("Failed to connect to Redis")
	}
	logger.Info().Str("addr", cfg.RedisAddr()).Msg("Connected to Redis")

	// Create upstream client
	upstream, err := client.New(client.Config{
		BaseURL:        cfg.BackendURL,
		UpstreamPrefix: client.DefaultUpstreamPrefix,
		UserAgent:      cfg.UserAgent,
		Timeout:        cfg.UpstreamTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create upstream client")
	}

	store := cache.NewManager(redisClient, cfg.CacheTTL())

	fwdCfg := proxy.DefaultConfig()
	fwdCfg.CacheTimeout = cfg.CacheTimeout
	fwdCfg.LogBodies = cfg.LogBodies
	forwarder := proxy.NewForwarder(upstream, store, fwdCfg, logging.NewLogger("proxy"))

	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           newRouter(forwarder, store, proxy.DefaultCORS(cfg.AllowedOrigins), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.UpstreamTimeout + cfg.CacheTimeout*2 + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}()

	logger.Info().
		Str("addr", srv.Addr).
		Str("backend", cfg.BackendURL).
		Dur("cache_ttl", cfg.CacheTTL()).
		Strs("cors_origins", cfg.AllowedOrigins).
		Msg("Starting timetable proxy server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Server failed")
	}
	logger.Info().Msg("Server stopped")
}

// cacheStore is the cache surface used by the operational endpoints.
type cacheStore interface {
	Ping(ctx context.Context) error
	Stats(ctx context.Context) (string, error)
}

func newRouter(api http.Handler, store cacheStore, cors proxy.CORS, logger zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(logging.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(store))
	r.Get("/cache/stats", statsHandler(store))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Handle("/api/*", api)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	proxy.WriteJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func readyHandler(store cacheStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			proxy.WriteJSON(w, http.StatusServiceUnavailable, proxy.ErrorBody{
				Error:   "Cache store unavailable",
				Message: err.Error(),
			})
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func statsHandler(store cacheStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		stats, err := store.Stats(ctx)
		if err != nil {
			log.Ctx(r.Context()).Error().Err(err).Msg("Failed to get cache stats")
			proxy.WriteJSON(w, http.StatusInternalServerError, proxy.ErrorBody{Error: "Failed to get cache stats"})
			return
		}

		proxy.WriteJSON(w, http.StatusOK, map[string]string{"redis_stats": stats})
	}
}
