package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SrishantKumar/E-Cell-Trading/internal/config"
	"github.com/SrishantKumar/E-Cell-Trading/internal/db"
	"github.com/SrishantKumar/E-Cell-Trading/internal/feed"
	"github.com/SrishantKumar/E-Cell-Trading/internal/game"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	svc := game.NewService(pool, logger, cfg.Game)
	if err := svc.EnsureMarketState(ctx); err != nil {
		logger.Error("market state init failed", "err", err)
		os.Exit(1)
	}

	publisher := feed.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	tick := func() {
		res, err := svc.Tick(ctx)
		if err != nil {
			logger.Error("market tick failed", "err", err)
			return
		}
		if !res.Ticked {
			return
		}
		publisher.Publish(ctx, feed.EventTick, res)
		logger.Info("market tick complete",
			"price", res.Price,
			"trend", res.Trend,
			"status", res.Status,
			"round", res.CurrentRound)
	}

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("ECELL_WORKER_RUN_ONCE")), "true")
	if runOnce {
		tick()
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.TickEvery)
	defer ticker.Stop()

	logger.Info("worker started", "tick_every", cfg.TickEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			tick()
		}
	}
}
