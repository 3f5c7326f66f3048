package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SrishantKumar/E-Cell-Trading/internal/api"
	"github.com/SrishantKumar/E-Cell-Trading/internal/config"
	"github.com/SrishantKumar/E-Cell-Trading/internal/db"
	"github.com/SrishantKumar/E-Cell-Trading/internal/feed"
	"github.com/SrishantKumar/E-Cell-Trading/internal/game"
	"github.com/SrishantKumar/E-Cell-Trading/internal/identity"
	"github.com/SrishantKumar/E-Cell-Trading/internal/realtime"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
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

	sessions, err := identity.Open(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		logger.Error("redis connect failed", "err", err)
		os.Exit(1)
	}
	defer sessions.Close()

	gameSvc := game.NewService(pool, logger, cfg.Game)
	if err := gameSvc.EnsureMarketState(ctx); err != nil {
		logger.Error("market state init failed", "err", err)
		os.Exit(1)
	}

	publisher := feed.New(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
	defer publisher.Close()

	hub := api.NewHub(logger)
	listener := realtime.NewListener(pool, logger,
		[]string{game.ChanMarket, game.ChanTeams, game.ChanNews},
		func(ev realtime.Event) { pushSnapshot(ctx, logger, gameSvc, hub, ev.Channel) },
		func() {
			for _, ch := range []string{game.ChanMarket, game.ChanTeams, game.ChanNews} {
				pushSnapshot(ctx, logger, gameSvc, hub, ch)
			}
		},
	)
	go func() {
		if err := listener.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("listener stopped", "err", err)
		}
	}()

	server := api.New(cfg, logger, gameSvc, sessions, publisher, hub)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("ecell api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

// pushSnapshot re-fetches the changed table and fans it out to stream
// observers. Notifications carry no row data on purpose.
func pushSnapshot(ctx context.Context, logger *slog.Logger, svc *game.Service, hub *api.Hub, channel string) {
	switch channel {
	case game.ChanMarket:
		market, err := svc.MarketSnapshot(ctx)
		if err != nil {
			logger.Error("market snapshot failed", "err", err)
			return
		}
		hub.Broadcast(api.StreamMessage{Type: "market", Data: market})
		state, err := svc.GameState(ctx)
		if err != nil {
			logger.Error("game state failed", "err", err)
			return
		}
		hub.Broadcast(api.StreamMessage{Type: "state", Data: state})
	case game.ChanTeams:
		players, err := svc.Players(ctx)
		if err != nil {
			logger.Error("players snapshot failed", "err", err)
			return
		}
		hub.Broadcast(api.StreamMessage{Type: "players", Data: players})
	case game.ChanNews:
		item, err := svc.LatestNews(ctx)
		if err != nil {
			logger.Error("latest news failed", "err", err)
			return
		}
		hub.Broadcast(api.StreamMessage{Type: "news", Data: item})
	}
}
