package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/models"
)

// testRedis connects to a local Redis, skipping when none is running.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: getEnv("REDIS_ADDR", "localhost:6379"), DB: 15})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		t.Skipf("redis not available: %v", err)
	}
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestHandQueueRoundTrip(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	queue := "holdem_hands_test_" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), queue) })

	rec := models.HandRecord{
		HandID:         uuid.New(),
		TableID:        "t1",
		HandNumber:     7,
		Mode:           models.ModeCash,
		CommunityCards: models.MustParseCards("As Kd 7c 7h 2s"),
		Rake:           0.5,
		Timestamp:      time.Now().UnixMilli(),
	}
	require.NoError(t, NewHandQueue(rdb, queue).PublishHand(ctx, rec))

	raw, err := rdb.LPop(ctx, queue).Result()
	require.NoError(t, err)
	var got models.HandRecord
	require.NoError(t, json.Unmarshal([]byte(raw), &got))
	assert.Equal(t, rec.HandID, got.HandID)
	assert.Equal(t, 7, got.HandNumber)
	assert.Len(t, got.CommunityCards, 5)
}

func TestPoolMirror(t *testing.T) {
	rdb := testRedis(t)
	ctx := context.Background()
	t.Cleanup(func() { rdb.Del(context.Background(), PoolsKey) })

	m := NewPoolMirror(rdb)
	require.NoError(t, m.MirrorPools(ctx, models.PoolBalances{GlobalPartnerPool: 42.5, MonthlyJackpotPool: 310.25}))
	p, err := m.ReadPools(ctx)
	require.NoError(t, err)
	assert.Equal(t, 42.5, p.GlobalPartnerPool)
	assert.Equal(t, 310.25, p.MonthlyJackpotPool)
}

func TestQueueNameFromEnv(t *testing.T) {
	t.Setenv("HISTORIAN_QUEUE_NAME", "")
	assert.Equal(t, DefaultQueueName, QueueName())
	t.Setenv("HISTORIAN_QUEUE_NAME", "custom")
	assert.Equal(t, "custom", QueueName())
	t.Setenv("REDIS_DB", "nope")
	assert.Equal(t, 3, getEnvInt("REDIS_DB", 3))
}
