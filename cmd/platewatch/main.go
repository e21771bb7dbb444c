package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"platewatch/internal/app"
	"platewatch/internal/config"
	"platewatch/internal/store"
	"platewatch/internal/telegram"
	"platewatch/internal/util"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	redisStore := store.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword)

	appCore, err := app.New(app.Config{
		Gate:     redisStore,
		Records:  redisStore,
		Sessions: redisStore,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	bot, err := telegram.New(telegram.Config{
		Token:       cfg.TelegramToken,
		PollTimeout: cfg.PollTimeoutSeconds,
		Workers:     cfg.Workers,
		App:         appCore,
	})
	if err != nil {
		log.Fatalf("failed to init bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("platewatch polling", "workers", cfg.Workers)
	if err := bot.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", "err", err)
	}
}
