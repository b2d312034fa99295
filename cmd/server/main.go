// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/saberactivo/social/internal/auth"
	"github.com/saberactivo/social/internal/config"
	"github.com/saberactivo/social/internal/database"
	"github.com/saberactivo/social/internal/handlers"
	"github.com/saberactivo/social/internal/memstore"
	"github.com/saberactivo/social/internal/notify"
	"github.com/saberactivo/social/internal/progress"
	"github.com/saberactivo/social/internal/realtime"
	"github.com/saberactivo/social/internal/social"
	"github.com/sirupsen/logrus"
)

// store is everything the server needs from a storage backend.
type store interface {
	handlers.Store
	notify.Writer
	notify.BatchWriter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("invalid configuration: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	keys, err := loadKeys(cfg)
	if err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		logger.WithField("addr", cfg.RedisAddr).Info("connected to redis")
	}

	var bus realtime.Bus
	if cfg.RealtimeBackend == config.BackendRedis {
		bus = realtime.NewRedisBus(rdb, cfg.RedisChannelPrefix, logger)
	} else {
		bus = realtime.NewMemoryBus(logger)
	}
	defer bus.Close()

	var st store
	if cfg.StorageBackend == config.BackendPostgres {
		pool, err := database.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		st = database.NewStore(pool, bus, logger)
	} else {
		logger.Warn("using in-memory storage; data is lost on restart")
		st = memstore.New(bus, logger)
	}
	if err := progress.NewService(st, logger).Seed(ctx, progress.Catalog()); err != nil {
		return err
	}

	var emitter notify.Emitter
	if cfg.NotifyMode == config.NotifyQueue {
		queue := notify.NewRedisQueue(rdb, cfg.NotifyQueueName)
		emitter = notify.NewQueueEmitter(queue, logger)
		if cfg.StorageBackend == config.BackendMemory {
			// no external notifier can reach this process's memory
			drainer := notify.NewDrainer(queue, st, cfg.NotifyBatchSize, cfg.NotifyFlushDelay, logger)
			go drainer.Run(ctx)
		}
	} else {
		emitter = notify.NewStoreEmitter(st, logger)
	}

	svc := social.NewService(st, st, emitter, logger)
	api := handlers.NewAPI(st, svc, bus, keys, logger)
	api.OriginPatterns = originHosts(cfg.CORSOrigins, logger)

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(api.Router()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loadKeys(cfg *config.Config) (*auth.Keys, error) {
	if cfg.PrivateKeyPath != "" && cfg.PublicKeyPath != "" {
		return auth.LoadKeys(cfg.PrivateKeyPath, cfg.PublicKeyPath, cfg.TokenExpiry)
	}
	return auth.NewKeys(cfg.TokenExpiry)
}

// originHosts turns CORS origins into the host patterns the websocket upgrader checks.
func originHosts(origins []string, logger *logrus.Logger) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			hosts = append(hosts, "*")
			continue
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			logger.WithField("origin", o).Warn("ignoring malformed CORS origin")
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
