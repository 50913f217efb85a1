// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jason-s-yu/holdem/internal/models"
)

// Rdb is the global Redis client. Connect it once at application startup.
var Rdb *redis.Client

// DefaultQueueName is the Redis list the historian drains.
var DefaultQueueName = "holdem_hands"

// PoolsKey is the hash holding the mirrored pool balances.
const PoolsKey = "holdem_pools"

// ConnectRedis initializes the global Redis client with environment variables:
//   - REDIS_ADDR (default "localhost:6379")
//   - REDIS_DB (optional, default 0)
func ConnectRedis() error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	Rdb = redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   dbIdx,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := Rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return nil
}

// QueueName is the configured historian queue.
func QueueName() string {
	return getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
}

// HandQueue pushes settled hands onto the historian queue.
type HandQueue struct {
	rdb   *redis.Client
	queue string
}

func NewHandQueue(rdb *redis.Client, queue string) *HandQueue {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &HandQueue{rdb: rdb, queue: queue}
}

// PublishHand serializes the record to JSON and pushes it to the queue.
func (q *HandQueue) PublishHand(ctx context.Context, rec models.HandRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal HandRecord: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.queue, err)
	}
	return nil
}

// PoolMirror keeps a copy of the pool balances in a Redis hash for cheap reads.
type PoolMirror struct {
	rdb *redis.Client
}

func NewPoolMirror(rdb *redis.Client) *PoolMirror {
	return &PoolMirror{rdb: rdb}
}

func (m *PoolMirror) MirrorPools(ctx context.Context, p models.PoolBalances) error {
	err := m.rdb.HSet(ctx, PoolsKey,
		"globalPartnerPool", strconv.FormatFloat(p.GlobalPartnerPool, 'f', 2, 64),
		"monthlyJackpotPool", strconv.FormatFloat(p.MonthlyJackpotPool, 'f', 2, 64),
		"updatedAt", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("failed to mirror pools: %w", err)
	}
	return nil
}

// ReadPools returns the mirrored balances.
func (m *PoolMirror) ReadPools(ctx context.Context) (models.PoolBalances, error) {
	vals, err := m.rdb.HGetAll(ctx, PoolsKey).Result()
	if err != nil {
		return models.PoolBalances{}, fmt.Errorf("failed to read pools: %w", err)
	}
	var p models.PoolBalances
	p.GlobalPartnerPool, _ = strconv.ParseFloat(vals["globalPartnerPool"], 64)
	p.MonthlyJackpotPool, _ = strconv.ParseFloat(vals["monthlyJackpotPool"], 64)
	return p, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
