package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/cache"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/config"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/database"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/handlers"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/jobs"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/log"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/mail"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/realtime"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository/postgres"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/repository/sqlite"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/security"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/server"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, "api")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open database")
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis, "api")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
	}

	hub := realtime.NewHub(cfg.Realtime, logger.With().Str("component", "realtime").Logger())
	var notifier realtime.Notifier = hub
	if cfg.Realtime.Bridge == "redis" {
		bridge := realtime.NewRedisBridge(hub, redisClient, cfg.Realtime.Channel, logger)
		go func() {
			if err := bridge.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("realtime bridge stopped")
			}
		}()
		notifier = bridge
	}

	var sender mail.Sender
	if cfg.Mail.Outbox {
		sender = mail.NewOutbox(redisClient, cfg.Mail.Stream)
	} else {
		sender, err = mail.NewProviderSender(cfg.Mail, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure mail")
		}
	}
	dispatcher := mail.NewDispatcher(sender, cfg.Mail.Timeout, logger.With().Str("component", "mail").Logger())

	var throttle service.Throttler
	if redisClient != nil {
		throttle = cache.NewThrottle(redisClient, "otp-resend:", cfg.Auth.ResendCooldown)
	}

	authService := service.NewAuthService(
		store,
		security.NewPasswordHasher(security.DefaultParams),
		security.NewTokenIssuer(cfg.Security.JWTSecret, cfg.Security.TokenTTL),
		dispatcher,
		throttle,
		cfg.Auth,
		logger,
	)
	reportService := service.NewReportService(store, notifier, logger)
	itemService := service.NewItemService(store, notifier, logger)

	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, reportService, itemService, hub, store, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(store, cfg.Jobs, logger)
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
	shutdown(logger, httpServer, hub, scheduler, dispatcher, store, redisClient)
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.Store, error) {
	switch cfg.Driver {
	case "postgres":
		pool, err := database.NewPostgresPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return repository.NewStore(postgres.NewDriver(pool), cfg.QueryTimeout), nil
	case "sqlite":
		db, err := database.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := sqlite.Migrate(db); err != nil {
			db.Close()
			return nil, err
		}
		return repository.NewStore(sqlite.NewDriver(db), cfg.QueryTimeout), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func shutdown(
	logger zerolog.Logger,
	srv *server.HTTPServer,
	hub *realtime.Hub,
	scheduler *jobs.Scheduler,
	dispatcher *mail.Dispatcher,
	store repository.Store,
	redisClient *redis.Client,
) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	hub.Close()

	select {
	case <-scheduler.Stop().Done():
	case <-ctx.Done():
		logger.Warn().Msg("maintenance job still running at shutdown")
	}
	dispatcher.Wait(ctx)

	store.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
