package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"json4ai/internal/cache"
	"json4ai/internal/config"
	"json4ai/internal/log"
	"json4ai/internal/queue"
	"json4ai/internal/storage"
	"json4ai/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Logging.Level, "worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	stores, err := storage.Open(ctx, cfg, client, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer stores.Close()

	processor := tasks.NewProcessor(
		logger,
		tasks.NewLogMailer(logger, cfg.Mail.From),
		stores.AdminSessions,
		stores.Usage,
		tasks.Retention{AdminSessions: cfg.Admin.Retention, Usage: cfg.Usage.Retention},
	)
	consumer := queue.NewConsumer(
		client,
		cfg.Worker.Stream,
		cfg.Worker.Group,
		cfg.Worker.Consumer,
		cfg.Worker.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("worker exited cleanly")
}
