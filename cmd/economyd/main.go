package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/runerogue/economy/economy"
	"github.com/runerogue/economy/economy/database"
	"github.com/runerogue/economy/economy/exchange"
	"github.com/runerogue/economy/economy/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "", "path to config file")
	initSchema := flag.Bool("init-schema", true, "create missing tables and indexes on startup")
	seedItems := flag.String("seed-items", "", "path to an item definitions file to seed (overrides config)")
	sweepInterval := flag.Duration("sweep-interval", 0, "offer expiry sweep interval (overrides config)")
	flag.Parse()

	cfg, err := economy.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	slog.Info("Starting RuneRogue economy daemon",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbStartTime := time.Now()
	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.Any("error", err),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("Database connected",
		slog.String("driver", cfg.DB.Driver),
		slog.Duration("took", time.Since(dbStartTime)))

	if *initSchema {
		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Failed to initialize database schema", slog.Any("error", err))
			os.Exit(1)
		}
	}

	seedPath := cfg.Exchange.SeedItemsPath
	if *seedItems != "" {
		seedPath = *seedItems
	}
	if seedPath != "" {
		n, err := db.SeedItems(ctx, seedPath)
		if err != nil {
			slog.Error("Failed to seed items", slog.String("path", seedPath), slog.Any("error", err))
			os.Exit(1)
		}
		slog.Info("Item seeding finished", slog.Int("inserted", n))
	}

	ex := exchange.New(db.Store(), exchange.WithOfferTTL(cfg.Exchange.OfferTTL.Std()))

	interval := cfg.Exchange.SweepInterval.Std()
	if *sweepInterval > 0 {
		interval = *sweepInterval
	}

	// The engine owns no timers; expiry runs here on a fixed interval until
	// the process is told to stop.
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := ex.ExpireOldOffers(ctx); err != nil {
					slog.Error("Expiry sweep failed", slog.Any("error", err))
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	slog.Info("Expiry sweep running", slog.Duration("interval", interval))
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Sweep loop exited", slog.Any("error", err))
		os.Exit(1)
	}
	slog.Info("Shutting down")
}
