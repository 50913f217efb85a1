// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/admin"
	"github.com/jason-s-yu/holdem/internal/auth"
	"github.com/jason-s-yu/holdem/internal/cache"
	"github.com/jason-s-yu/holdem/internal/database"
	"github.com/jason-s-yu/holdem/internal/distribution"
	"github.com/jason-s-yu/holdem/internal/handlers"
	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/table"
)

// backend is what the tables and the scheduler need from a ledger implementation.
type backend interface {
	table.Ledger
	table.Accounts
	distribution.Store
}

func main() {
	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(getEnv("LOG_LEVEL", "info")); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := initAuth(); err != nil {
		logger.WithError(err).Fatal("auth setup failed")
	}

	operatorID := uuid.Nil
	if s := os.Getenv("OPERATOR_ACCOUNT_ID"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			logger.WithError(err).Fatal("OPERATOR_ACCOUNT_ID is not a uuid")
		}
		operatorID = id
	}

	welcome := getEnvFloat("WELCOME_BALANCE", ledger.DefaultWelcomeBalance)
	var store backend
	var history handlers.HandHistoryFunc
	switch getEnv("LEDGER_BACKEND", "memory") {
	case "postgres":
		pool, err := database.ConnectDB(ctx)
		if err != nil {
			logger.WithError(err).Fatal("database connection failed")
		}
		defer pool.Close()
		if err := database.EnsureSchema(ctx, pool); err != nil {
			logger.WithError(err).Fatal("schema setup failed")
		}
		l, err := database.NewLedger(pool, welcome, getEnvInt("REFERRAL_CACHE_SIZE", 1024))
		if err != nil {
			logger.WithError(err).Fatal("ledger setup failed")
		}
		if operatorID != uuid.Nil {
			if err := l.EnsureOperator(ctx, operatorID); err != nil {
				logger.WithError(err).Fatal("operator account setup failed")
			}
		}
		store = l
		history = func(ctx context.Context, tableID string, limit int) ([]models.HandRecord, error) {
			return database.RecentHands(ctx, pool, tableID, limit)
		}
	case "memory":
		mem := ledger.NewMemory(welcome)
		if operatorID != uuid.Nil {
			mem.PutUser(models.User{ID: operatorID, Username: "operator"})
		}
		store = mem
		logger.Warn("using the in-memory ledger; balances are lost on restart")
	default:
		logger.Fatalf("unknown LEDGER_BACKEND %q", os.Getenv("LEDGER_BACKEND"))
	}

	var hands table.HistorySink
	var mirror distribution.Mirror
	if os.Getenv("REDIS_ADDR") != "" {
		if err := cache.ConnectRedis(); err != nil {
			logger.WithError(err).Fatal("redis connection failed")
		}
		defer cache.Rdb.Close()
		hands = cache.NewHandQueue(cache.Rdb, cache.QueueName())
		mirror = cache.NewPoolMirror(cache.Rdb)
	}

	scheduler, err := distribution.New(ctx, store, mirror, logger)
	if err != nil {
		logger.WithError(err).Fatal("distribution scheduler setup failed")
	}
	if err := scheduler.Start(); err != nil {
		logger.WithError(err).Fatal("failed to schedule jackpot")
	}
	defer scheduler.Stop()

	delays := table.DefaultDelays()
	if path := os.Getenv("DELAYS_FILE"); path != "" {
		if delays, err = table.ParseDelayConfig(path); err != nil {
			logger.WithError(err).Fatal("failed to read delays file")
		}
	}
	if s := os.Getenv("TABLE_IDLE_TIMEOUT"); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			logger.WithError(err).Fatal("TABLE_IDLE_TIMEOUT is not a duration")
		}
		delays.IdleTimeout = uint32(d.Milliseconds())
	}
	speed := table.NewSpeed(getEnvFloat("GAME_SPEED", 1))

	hub := handlers.NewHub(logger)
	registry := table.NewRegistry(table.Deps{
		Ledger:     store,
		Accounts:   store,
		Rake:       scheduler,
		History:    hands,
		Transport:  hub,
		Logger:     logger,
		Delays:     delays,
		Speed:      speed,
		OperatorID: operatorID,
	})
	go registry.Run(ctx)

	if os.Getenv("DEMO_TABLES") != "" {
		registry.GetOrCreate(table.Config{TableID: "t1", MaxSeats: 6, SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash, Persistent: true})
		registry.GetOrCreate(table.Config{TableID: "table_whale_9", MaxSeats: 9, SmallBlind: 5, BigBlind: 10, Mode: models.ModeCash, Persistent: true})
	}

	exec := &admin.Executor{Registry: registry, Speed: speed, Scheduler: scheduler, Logger: logger}
	if url := os.Getenv("NATS_URL"); url != "" {
		nc, err := nats.Connect(url, nats.Name("holdem-server"))
		if err != nil {
			logger.WithError(err).Fatal("nats connection failed")
		}
		defer nc.Drain()
		if _, err := admin.SubscribeNATS(nc, getEnv("ADMIN_SUBJECT", admin.DefaultSubject), exec, logger); err != nil {
			logger.WithError(err).Fatal("failed to subscribe to admin subject")
		}
	}

	ts := handlers.NewTableServer(registry, hub, logger)
	ts.History = history
	as := &handlers.AdminServer{Exec: exec, PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"), Logger: logger}

	addr := ":" + getEnv("PORT", "8080")
	srv := &http.Server{Addr: addr, Handler: handlers.Routes(ts, as)}
	go func() {
		logger.Infof("Running on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server exited")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	registry.Shutdown(shutdownCtx)
}

func initAuth() error {
	priv, pub := os.Getenv("JWT_PRIVATE_KEY_PATH"), os.Getenv("JWT_PUBLIC_KEY_PATH")
	if priv != "" && pub != "" {
		return auth.InitFromPath(priv, pub)
	}
	return auth.Init()
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return def
	}
	return v
}

func getEnvFloat(key string, def float64) float64 {
	v, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return def
	}
	return v
}
