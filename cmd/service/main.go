package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gkiss/odp-extremes-service/internal/archive"
	"github.com/gkiss/odp-extremes-service/internal/cache"
	"github.com/gkiss/odp-extremes-service/internal/clock"
	"github.com/gkiss/odp-extremes-service/internal/config"
	httphandler "github.com/gkiss/odp-extremes-service/internal/http"
	"github.com/gkiss/odp-extremes-service/internal/lifecycle"
	"github.com/gkiss/odp-extremes-service/internal/observability"
	"github.com/gkiss/odp-extremes-service/internal/report"
	"github.com/gkiss/odp-extremes-service/internal/scheduler"
	"github.com/gkiss/odp-extremes-service/internal/schema"
)

func main() {
	_ = godotenv.Load()

	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	feedClient, err := archive.NewClient(cfg.FeedBaseURL, cfg.FeedTimeout, cfg.FeedLegacyName)
	if err != nil {
		logger.Fatal("feed client", zap.Error(err))
	}
	if cfg.FeedLegacyName {
		logger.Warn("legacy archive name form enabled (HABP_1D_<date>.zip); the .csv.zip form is canonical")
	}

	var reportCache cache.Cache
	var memcacheCloser *cache.MemcachedCache
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		memcacheCloser = mc
		reportCache = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	default:
		reportCache = cache.NewInMemoryCache()
		logger.Info("cache backend: in_memory")
	}

	resolver := schema.NewResolver(cfg.SchemaTokens)
	reportService := report.NewService(feedClient, resolver, reportCache, cfg.CacheTTL, cfg.CoalesceTimeout)

	clk := clockwork.NewRealClock()
	zone := clock.FeedZone()

	handler := httphandler.NewHandler(reportService, feedClient, logger, clk, zone, cfg.EarliestDate)
	if memcacheCloser != nil {
		handler.CachePing = memcacheCloser.Ping
	}

	var warmScheduler *scheduler.Scheduler
	if cfg.WarmCache {
		warmer := cache.NewWarmer(reportService, clk, zone, logger)
		warmCtx, warmCancel := context.WithTimeout(context.Background(), 60*time.Second)
		if err := warmer.Warm(warmCtx); err != nil {
			logger.Warn("initial cache warm failed", zap.Error(err))
		}
		warmCancel()
		warmScheduler = scheduler.New(warmer, cfg.WarmInterval, logger)
		if err := warmScheduler.Start(); err != nil {
			logger.Error("warm scheduler", zap.Error(err))
		}
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())

	dataRouter := router.PathPrefix("/").Subrouter()
	dataRouter.Use(httphandler.RateLimitMiddleware(limiter))
	dataRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	dataRouter.HandleFunc("/extremes", handler.GetExtremes).Methods("GET")
	dataRouter.HandleFunc("/extremes/{date}", handler.GetExtremes).Methods("GET")
	dataRouter.HandleFunc("/archive/{date}", handler.DownloadArchive).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort), zap.String("feed", cfg.FeedBaseURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	if warmScheduler != nil {
		warmScheduler.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	if memcacheCloser != nil {
		if err := memcacheCloser.Close(); err != nil {
			logger.Error("memcached close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
