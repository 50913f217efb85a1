// cmd/historian/main.go runs the hand historian: it drains settled hands from Redis into
// PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/cache"
	"github.com/jason-s-yu/holdem/internal/database"
	"github.com/jason-s-yu/holdem/internal/historian"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.ConnectDB(ctx)
	if err != nil {
		logger.WithError(err).Fatal("database connection failed")
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		logger.WithError(err).Fatal("schema setup failed")
	}

	if err := cache.ConnectRedis(); err != nil {
		logger.WithError(err).Fatal("redis connection failed")
	}
	defer cache.Rdb.Close()

	cfg := historian.Config{
		BatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		FlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		Inactivity: time.Duration(getEnvInt("TABLE_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}
	svc := historian.New(
		historian.NewRedisSource(cache.Rdb, cache.QueueName()),
		historian.PostgresStore{Pool: pool},
		cfg,
		logger,
	)
	svc.Run(ctx)
	logger.Info("historian shutdown complete")
}

func getEnv(key, defVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defVal
}

func getEnvInt(key string, defVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defVal
	}
	return i
}
