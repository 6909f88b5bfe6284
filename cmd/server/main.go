package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "vidstream/metaservice/internal/api/http"
	"vidstream/metaservice/internal/app"
	"vidstream/metaservice/internal/metrics"
	"vidstream/metaservice/internal/mirrors"
	"vidstream/metaservice/internal/providers/invidious"
	"vidstream/metaservice/internal/providers/suggest"
	"vidstream/metaservice/internal/providers/ytdlp"
	"vidstream/metaservice/internal/search"
	"vidstream/metaservice/internal/telemetry"
)

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), "video-meta-search")
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", "video-meta-search"),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.String("ytdlpBinary", cfg.YTDLPBinary),
		slog.Int("ytdlpMaxConcurrent", cfg.YTDLPMaxParallel),
		slog.String("suggestEndpoint", cfg.SuggestEndpoint),
		slog.String("directoryEndpoint", cfg.DirectoryEndpoint),
		slog.Int("staticMirrorOverrides", len(cfg.StaticMirrors)),
		slog.String("trendingRegion", cfg.TrendingRegion),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Duration("mirrorPoolTTL", cfg.MirrorPoolTTL),
	)

	// One client per upstream; the 10s client timeout is the only
	// cancellation mechanism for outbound calls.
	suggestClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	directoryClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	mirrorClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}

	directory := mirrors.NewDirectory(mirrors.Config{
		Endpoint:  cfg.DirectoryEndpoint,
		UserAgent: cfg.UserAgent,
		Client:    directoryClient,
		Static:    cfg.StaticMirrors,
		Redis:     newRedisClient(cfg, logger),
		PoolTTL:   cfg.MirrorPoolTTL,
	})

	searchService := search.NewService(
		ytdlp.NewProvider(ytdlp.Config{
			Binary:        cfg.YTDLPBinary,
			MaxConcurrent: int64(cfg.YTDLPMaxParallel),
		}),
		suggest.NewProvider(suggest.Config{
			Endpoint:  cfg.SuggestEndpoint,
			UserAgent: cfg.UserAgent,
			Client:    suggestClient,
		}),
		directory,
		invidious.NewClient(invidious.Config{
			UserAgent: cfg.UserAgent,
			Client:    mirrorClient,
		}),
		search.WithDefaultRegion(cfg.TrendingRegion),
		search.WithPageSize(ytdlp.PageSize),
	)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Bulk search waits on a subprocess; give writes headroom
		// beyond the outbound timeout instead of a tight cap.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("video metadata search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Duration("timeout", cfg.RequestTimeout),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("video metadata search service stopped")
}

func newRedisClient(cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, mirror pool cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not reachable, mirror pool cache disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("redis connected", slog.String("addr", opts.Addr))
	return client
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
