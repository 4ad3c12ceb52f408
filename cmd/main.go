package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"introvert/backend/internal/api/handler"
	"introvert/backend/internal/auth"
	"introvert/backend/internal/chathub"
	"introvert/backend/internal/config"
	"introvert/backend/internal/observability"
	"introvert/backend/internal/ratelimit"
	"introvert/backend/internal/storage"
)

// setupLimiter uses Redis when REDIS_ADDR is set and reachable, otherwise an
// in-process limiter.
func setupLimiter(ctx context.Context, cfg config.Config, logger *slog.Logger) (ratelimit.Limiter, func()) {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		logger.Warn("redis unavailable, falling back to in-memory rate limiting", "addr", cfg.RedisAddr, "error", err)
		rdb.Close()
		return ratelimit.NewMemoryLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), func() {}
	}

	logger.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisLimiter(rdb, "ratelimit:api", cfg.RateLimitRequests, cfg.RateLimitWindow), func() { rdb.Close() }
}

// setupPublisher connects the analytics publisher when AMQP_URL is set.
func setupPublisher(cfg config.Config, logger *slog.Logger) func() {
	if cfg.AMQPURL == "" {
		return func() {}
	}
	publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		logger.Warn("analytics publisher disabled", "error", err)
		return func() {}
	}
	observability.SetPublisher(publisher)
	logger.Info("analytics events enabled", "exchange", cfg.AMQPExchange)
	return func() {
		observability.SetPublisher(nil)
		publisher.Close()
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	logger.Info("starting introvert backend", "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. State and identity
	store := storage.NewMemoryStorage()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)

	// 2. Realtime core
	registry := chathub.NewRegistry(store, logger)
	router := chathub.NewRouter(registry, store, tokens, logger)
	matcher := chathub.NewMatcherService(store, store, store, router, cfg.DefaultMaxRetries, logger)
	notifier := chathub.NewNotifier(store, store, router, logger)
	social := chathub.NewSocial(store, store, notifier, logger)

	go matcher.Run(ctx)

	// 3. Optional backends
	limiter, closeLimiter := setupLimiter(ctx, cfg, logger)
	defer closeLimiter()
	closePublisher := setupPublisher(cfg, logger)
	defer closePublisher()

	// 4. HTTP
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	h := handler.NewHandler(store, registry, router, matcher, notifier, social, tokens, cfg.SendBufferSize, logger)
	h.RegisterRoutes(r, limiter)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	router.CloseAll()
	logger.Info("stopped")
}
