package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/handlers"
	"json4ai/internal/jobs"
	"json4ai/internal/log"
	"json4ai/internal/middleware"
	"json4ai/internal/queue"
	"json4ai/internal/security"
	"json4ai/internal/server"
	"json4ai/internal/service"
	"json4ai/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	stores, err := storage.Open(ctx, cfg, redisClient, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}

	tokens, err := security.NewTokenService(security.TokenConfig{
		AccessSecret:  cfg.Security.JWTAccessSecret,
		RefreshSecret: cfg.Security.JWTRefreshSecret,
		AccessTTL:     cfg.Security.JWTAccessTTL,
		RefreshTTL:    cfg.Security.JWTRefreshTTL,
		Issuer:        cfg.Security.JWTIssuer,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid token configuration")
	}

	producer := queue.NewProducer(redisClient, cfg.Worker.Stream, cfg.Worker.MaxLen)
	authMetrics := cache.NewAuthMetrics(redisClient, time.Now)
	usage := service.NewUsageService(stores.Usage, cfg.Usage, authMetrics, logger)

	checks := []service.DependencyCheck{
		{Name: "redis", Ping: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }},
	}
	var poolStats func() *service.PoolStats
	if stores.Pool != nil {
		checks = append(checks, service.DependencyCheck{Name: "postgres", Ping: stores.Ping})
		poolStats = func() *service.PoolStats {
			stat := stores.Pool.Stat()
			return &service.PoolStats{
				TotalConns:    stat.TotalConns(),
				IdleConns:     stat.IdleConns(),
				AcquiredConns: stat.AcquiredConns(),
				MaxConns:      stat.MaxConns(),
			}
		}
	}

	svc := handlers.Services{
		Auth:         service.NewAuthService(stores.Users, tokens, cache.NewResetTokenStore(redisClient), producer, authMetrics, cfg, logger),
		Admin:        service.NewAdminSessionService(stores.Users, stores.AdminSessions, authMetrics, cfg.Admin, logger),
		Users:        service.NewUserService(stores.Users, logger),
		Usage:        usage,
		Prompts:      service.NewPromptService(stores.Prompts, usage, logger),
		Entitlements: service.NewEntitlementService(stores.Users, stores.Entitlements, cfg.Payment, logger),
		Dashboard:    service.NewDashboardService(stores.Users, stores.Prompts, stores.AdminSessions, authMetrics, checks, poolStats, cfg, logger),
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		go limiter.Cleanup(ctx, 10*time.Minute, 30*time.Minute)
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, svc, redisClient, limiter)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(producer, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	shutdown(logger, httpServer, scheduler, stores, redisClient)
}

func shutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, stores *storage.Stores, redisClient *redis.Client) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	scheduler.Stop()

	stores.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
