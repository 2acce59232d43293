package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/cache"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/log"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/queue"
)

// The worker drains the mail outbox the API writes when mail.outbox is on.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "worker")

	if !cfg.Redis.Enabled {
		logger.Fatal().Msg("the mail worker needs redis.enabled")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := cache.NewRedisClient(ctx, cfg.Redis, "worker")
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	sender, err := mail.NewProviderSender(cfg.Mail, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mail")
	}

	consumer := queue.NewConsumer(
		client,
		cfg.Mail.Stream,
		cfg.Mail.Group,
		cfg.Mail.Consumer,
		cfg.Mail.ClaimInterval,
		logger,
		mail.NewDeliverer(sender),
	)

	logger.Info().Str("stream", cfg.Mail.Stream).Str("provider", cfg.Mail.Provider).Msg("mail worker starting")
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}
	logger.Info().Msg("mail worker stopped")
}
