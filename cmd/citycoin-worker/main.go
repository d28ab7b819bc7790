package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"citycoin/internal/accrual"
	"citycoin/internal/config"
	"citycoin/internal/db"
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
	store := db.NewStore(pool)

	events := worldevent.New(store, cfg, rng.NewCrypto(), logger)
	if err := events.Load(ctx); err != nil {
		logger.Error("event state load failed", "err", err)
		os.Exit(1)
	}
	settler := accrual.NewEngine(store, cfg, events, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("CITYCOIN_WORKER_RUN_ONCE")), "true")
	if runOnce {
		if err := runTick(ctx, events, settler, logger); err != nil {
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	priceTicker := time.NewTicker(apiCfg.PriceTickEvery)
	defer priceTicker.Stop()
	accrueTicker := time.NewTicker(apiCfg.AccrueEvery)
	defer accrueTicker.Stop()

	logger.Info("worker started",
		"price_tick_every", apiCfg.PriceTickEvery.String(),
		"accrue_every", apiCfg.AccrueEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-priceTicker.C:
			now := time.Now().UTC()
			if _, err := events.Current(ctx, now); err != nil {
				logger.Error("event roll failed", "err", err)
				continue
			}
			price, err := events.TickPrice(ctx, now)
			if err != nil {
				logger.Error("price tick failed", "err", err)
				continue
			}
			logger.Info("price tick complete", "price_cents", price)
		case <-accrueTicker.C:
			if err := settler.SettleAll(ctx, time.Now().UTC()); err != nil {
				logger.Error("settle pass failed", "err", err)
				continue
			}
			logger.Info("settle pass complete")
		}
	}
}

func runTick(ctx context.Context, events *worldevent.Engine, settler *accrual.Engine, logger *slog.Logger) error {
	now := time.Now().UTC()
	if _, err := events.Current(ctx, now); err != nil {
		logger.Error("event roll failed", "err", err)
		return err
	}
	if _, err := events.TickPrice(ctx, now); err != nil {
		logger.Error("price tick failed", "err", err)
		return err
	}
	if err := settler.SettleAll(ctx, now); err != nil {
		logger.Error("settle pass failed", "err", err)
		return err
	}
	return nil
}
