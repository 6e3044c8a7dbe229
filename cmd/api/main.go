package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/wager_bank/internal/config"
	"github.com/congo-pay/wager_bank/internal/infra"
	"github.com/congo-pay/wager_bank/internal/logging"
	"github.com/congo-pay/wager_bank/internal/metrics"
	"github.com/congo-pay/wager_bank/internal/notification"
	"github.com/congo-pay/wager_bank/internal/routes"
	"github.com/congo-pay/wager_bank/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.AppName, cfg.LogLevel)

	ctx := context.Background()

	var db *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			logger.Error("connect postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory storage", "env", cfg.Env)
	}

	var cache *redis.Client
	if cfg.RedisURL != "" {
		cache, err = infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("connect redis", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := cache.Close(); err != nil {
				logger.Warn("close redis", "error", err)
			}
		}()
	} else {
		logger.Warn("REDIS_URL not set, bank locks are process local", "env", cfg.Env)
	}

	var events notification.MessageWriter
	if writer := infra.NewKafkaWriter(cfg.KafkaBrokers, cfg.RoundsTopic); writer != nil {
		events = writer
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Warn("close kafka writer", "error", err)
			}
		}()
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	metricsSrv := metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return infra.CheckHealth(ctx, db, cache).Err()
	})

	srv, err := server.New(routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		Events:  events,
		Metrics: m,
		Logger:  logger,
	}, metricsSrv)
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
