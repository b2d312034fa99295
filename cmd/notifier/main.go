// cmd/notifier/main.go is an asynchronous notifier service that pops queued
// notifications from a Redis list and persists them to PostgreSQL in batches. Each
// stored row is published on the realtime bus so connected feeds refresh.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/saberactivo/social/internal/config"
	"github.com/saberactivo/social/internal/database"
	"github.com/saberactivo/social/internal/notify"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("database: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatalf("redis: %v", err)
	}

	var pub realtime.Publisher = realtime.NewRedisBus(rdb, cfg.RedisChannelPrefix, logger)
	if cfg.RealtimeBackend != config.BackendRedis {
		logger.Warn("REALTIME_BACKEND is not redis; stored notifications will not reach connected clients")
		pub = nil
	}
	store := database.NewStore(pool, pub, logger)

	queue := notify.NewRedisQueue(rdb, cfg.NotifyQueueName)
	logger.WithField("queue", cfg.NotifyQueueName).Info("social-notifier started")
	notify.NewDrainer(queue, store, cfg.NotifyBatchSize, cfg.NotifyFlushDelay, logger).Run(ctx)
	logger.Info("social-notifier shut down")
}
