package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"cityhop/internal/cache"
	"cityhop/internal/config"
	"cityhop/internal/gtfsdata"
	"cityhop/internal/hub"
	"cityhop/internal/httpmw"
	"cityhop/internal/planner"
	"cityhop/internal/quote"
	"cityhop/internal/quote/producers"
	"cityhop/internal/schedule"
	"cityhop/internal/transport"
	"cityhop/pkg/metro"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("starting cityhop server",
		"log_level", cfg.LogLevel.String(),
		"http_addr", cfg.HTTPAddr,
		"gtfs_feed_dir", cfg.GTFSFeedDir,
		"redis_enabled", cfg.RedisEnabled,
	)

	var redisCache *cache.RedisCache
	if cfg.RedisEnabled {
		var err error
		redisCache, err = cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			logger.Error("failed to connect to Redis", "error", err)
			logger.Warn("continuing without warm cache mirror")
			redisCache = nil
		} else {
			logger.Info("connected to Redis", "addr", cfg.RedisAddr)
		}
	}

	loader := gtfsdata.NewLoader(logger)
	feed, err := loader.Load(cfg.GTFSFeedDir)
	var idx *schedule.Index
	feedLoaded := false
	if err != nil {
		logger.Warn("GTFS feed unavailable, planner disabled", "dir", cfg.GTFSFeedDir, "error", err)
		idx = schedule.Build(&gtfsdata.Feed{Disabled: true, DisabledCause: err.Error()})
	} else if feed.Disabled {
		logger.Warn("GTFS feed marked disabled", "cause", feed.DisabledCause)
		idx = schedule.Build(feed)
	} else {
		idx = schedule.Build(feed)
		feedLoaded = true
		logger.Info("GTFS feed loaded",
			"stops", len(feed.Stops), "routes", len(feed.Routes), "trips", len(feed.Trips))
	}

	pln := planner.New(idx)

	var prods []quote.Producer
	if cfg.ProducerQuickRideEnabled {
		prods = append(prods, producers.NewQuickRide(cfg.QuickRideBaseURL, cfg.QuickRideAPIKey, logger))
	}
	if cfg.ProducerMetrocabEnabled {
		prods = append(prods, producers.NewMetrocab(cfg.MetrocabQuoteURL, logger))
	}
	if cfg.ProducerCityGoEnabled {
		prods = append(prods, producers.NewCityGo())
	}

	fallback := quote.NewFallbackEstimator(cfg.Currency)
	quoteCache := quote.NewCache(cfg.QuoteCacheTTL)
	aggregator := quote.NewAggregator(prods, fallback, quoteCache, cfg.ProducerTimeout, logger)
	if redisCache != nil {
		aggregator = aggregator.WithWarmMirror(redisCache, cfg.CacheTTL)
	}

	// metro.Provider is wired but unused by any route today: no
	// retrieved metro timetable source exists yet. It exists so a
	// future rail producer has a seam to land in without touching the
	// transport boundary.
	var _ metro.Provider = metro.Unavailable{}

	wsHub := hub.NewHub(logger)
	rateLimiter := httpmw.NewRateLimiter(cfg.RateLimitPerWindow, cfg.RateLimitWindow, cfg.RateLimitWhitelist, logger)

	boundary := transport.NewBoundary(pln, aggregator, logger)
	health := transport.NewHealth(func() bool { return true })
	quoteStream := transport.NewQuoteStream(aggregator, wsHub, logger)

	feedStats := func() transport.FeedStats {
		if !feedLoaded || feed == nil {
			return transport.FeedStats{Loaded: false}
		}
		return transport.FeedStats{
			Stops:     len(feed.Stops),
			Routes:    len(feed.Routes),
			Trips:     len(feed.Trips),
			StopTimes: len(feed.StopTimes),
			Loaded:    true,
		}
	}
	stats := transport.NewStats(boundary, quoteCache, wsHub, rateLimiter, feedStats)

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/compare-fares", boundary.CompareFares)
	mux.HandleFunc("POST /api/bus-routes", boundary.BusRoutes)
	mux.HandleFunc("GET /api/quotes/stream", quoteStream.ServeWS)

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz)
	mux.HandleFunc("GET /stats", stats.GetStats)

	// Apply middleware chain: CORS -> Gzip -> RateLimit -> Handler
	finalHandler := httpmw.CORS(
		httpmw.Gzip(
			rateLimiter.Middleware(mux),
		),
	)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      finalHandler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go wsHub.Run(ctx)

	go func() {
		logger.Info("starting HTTP server", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			logger.Error("Redis close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
