package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"citycoin/internal/api"
	"citycoin/internal/casino"
	"citycoin/internal/config"
	"citycoin/internal/db"
	"citycoin/internal/economy"
	"citycoin/internal/guild"
	"citycoin/internal/rng"
	"citycoin/internal/worldevent"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	apiCfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, apiCfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Error("migrate failed", "err", err)
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.Casino.LossCapEnabled = apiCfg.LossCapEnabled

	store := db.NewStore(pool)
	rand := rng.NewCrypto()

	events := worldevent.New(store, cfg, rand, logger)
	if err := events.Load(ctx); err != nil {
		logger.Error("event state load failed", "err", err)
		os.Exit(1)
	}

	econ := economy.NewService(store, cfg, events, logger)
	cas := casino.NewService(store, cfg, rand, events, logger)
	guilds := guild.NewService(store, cfg.Guild, rand, logger)

	server := api.New(logger, econ, cas, guilds, events, store)
	httpServer := &http.Server{
		Addr:              apiCfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("citycoin api listening", "addr", apiCfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
