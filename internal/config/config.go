// internal/config/config.go

// Package config reads the service configuration from the environment. A .env file in
// the working directory is loaded first by the binaries (godotenv/autoload).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendRedis    = "redis"

	NotifyDirect = "direct"
	NotifyQueue  = "queue"
)

type Config struct {
	Port string

	DatabaseURL string

	RedisAddr          string
	RedisDB            int
	RedisChannelPrefix string

	// TokenExpiry of zero means issued tokens never expire.
	TokenExpiry time.Duration
	// Without both key paths the server signs with a key pair generated at startup.
	PrivateKeyPath string
	PublicKeyPath  string

	StorageBackend  string
	RealtimeBackend string

	NotifyMode       string
	NotifyQueueName  string
	NotifyBatchSize  int
	NotifyFlushDelay time.Duration

	CORSOrigins []string

	LogLevel  string
	LogFormat string
}

// Load builds a Config from the environment and validates the enumerated settings.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisChannelPrefix: os.Getenv("REDIS_CHANNEL_PREFIX"),
		PrivateKeyPath:     os.Getenv("JWT_PRIVATE_KEY_PATH"),
		PublicKeyPath:      os.Getenv("JWT_PUBLIC_KEY_PATH"),
		StorageBackend:     strings.ToLower(getEnv("STORAGE_BACKEND", BackendPostgres)),
		RealtimeBackend:    strings.ToLower(getEnv("REALTIME_BACKEND", BackendRedis)),
		NotifyMode:         strings.ToLower(getEnv("NOTIFY_MODE", NotifyDirect)),
		NotifyQueueName:    getEnv("NOTIFY_QUEUE_NAME", "social_notifications"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "text"),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("POSTGRES_USER"),
			os.Getenv("POSTGRES_PASSWORD"),
			getEnv("PG_HOST", "localhost"),
			getEnv("PG_PORT", "5432"),
			os.Getenv("PG_DATABASE"),
		)
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.NotifyBatchSize, err = getEnvInt("NOTIFY_BATCH_SIZE", 20); err != nil {
		return nil, err
	}
	flushMS, err := getEnvInt("NOTIFY_FLUSH_MS", 500)
	if err != nil {
		return nil, err
	}
	cfg.NotifyFlushDelay = time.Duration(flushMS) * time.Millisecond

	if cfg.TokenExpiry, err = parseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME")); err != nil {
		return nil, err
	}

	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}

	switch cfg.StorageBackend {
	case BackendPostgres, BackendMemory:
	default:
		return nil, fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, cfg.StorageBackend)
	}
	switch cfg.RealtimeBackend {
	case BackendRedis, BackendMemory:
	default:
		return nil, fmt.Errorf("REALTIME_BACKEND must be %q or %q, got %q", BackendRedis, BackendMemory, cfg.RealtimeBackend)
	}
	switch cfg.NotifyMode {
	case NotifyDirect, NotifyQueue:
	default:
		return nil, fmt.Errorf("NOTIFY_MODE must be %q or %q, got %q", NotifyDirect, NotifyQueue, cfg.NotifyMode)
	}
	return cfg, nil
}

// NewLogger builds the process logger from LogLevel and LogFormat.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// UsesRedis reports whether any configured component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.RealtimeBackend == BackendRedis || c.NotifyMode == NotifyQueue
}

// parseTokenExpireTime accepts a Go duration; "never", "0" or empty disable expiry.
func parseTokenExpireTime(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse TOKEN_EXPIRE_TIME: %w", err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
