package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/emberly-app/emberly/internal/app"
	"github.com/emberly-app/emberly/internal/cache"
	"github.com/emberly-app/emberly/internal/config"
	"github.com/emberly-app/emberly/internal/db"
	"github.com/emberly-app/emberly/internal/events"
	"github.com/emberly-app/emberly/internal/logger"
	"github.com/emberly-app/emberly/internal/metrics"
	"github.com/emberly-app/emberly/internal/oracle"
	"github.com/emberly-app/emberly/internal/server"
	"github.com/emberly-app/emberly/internal/service/decision"
	"github.com/emberly-app/emberly/internal/service/profile"
	"github.com/emberly-app/emberly/internal/service/ranking"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		logger.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	logger.InitFromConfig(cfg)
	log := logger.L()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to connect to database", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := cache.NewRedisCache(cfg)
	if err := rdb.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		os.Exit(1)
	}

	if len(cfg.Oracle.APIKeys) == 0 {
		log.Warn("no oracle api keys configured; all rankings will use fallback scores")
	}
	oracleClient := oracle.NewClient(oracle.Options{
		URL:     cfg.Oracle.URL,
		APIKeys: cfg.Oracle.APIKeys,
		Timeout: cfg.Oracle.Timeout,
		RPS:     cfg.Oracle.RPS,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New()
	if err := m.Register(registry); err != nil {
		log.Error("failed to register metrics", "err", err)
		os.Exit(1)
	}

	appCtx := app.New(cfg, database, rdb, oracleClient, events.NewBus(), m, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed test data", "err", err)
			os.Exit(1)
		}
		log.Info("development seed data loaded")
	}

	srv := server.New(appCtx, registry,
		ranking.NewRegistrar(ranking.NewService(appCtx)),
		decision.NewRegistrar(decision.NewService(appCtx)),
		profile.NewRegistrar(profile.NewService(appCtx)),
	)

	if err := srv.Start(ctx); err != nil {
		log.Error("server exited with error", "err", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
