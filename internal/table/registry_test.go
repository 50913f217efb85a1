package table

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

func newTestRegistry(t *testing.T) (*Registry, *ledger.Memory) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	mem := ledger.NewMemory(ledger.DefaultWelcomeBalance)
	r := NewRegistry(Deps{
		Ledger:    mem,
		Accounts:  mem,
		Transport: newRecordingTransport(),
		Logger:    logger,
		Delays:    Delays{AutoStart: 3_600_000, NextHand: 3_600_000, BotThinkMin: 1, BotThinkMax: 1, IdleTimeout: 60_000},
	})
	t.Cleanup(func() { r.Shutdown(context.Background()) })
	return r, mem
}

func TestRegistryCreateAndList(t *testing.T) {
	r, _ := newTestRegistry(t)

	_, err := r.Create(Config{TableID: "b", SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash})
	require.NoError(t, err)
	_, err = r.Create(Config{TableID: "a", MaxSeats: 9, SmallBlind: 5, BigBlind: 10, Mode: models.ModePractice})
	require.NoError(t, err)
	_, err = r.Create(Config{TableID: "a"})
	assert.ErrorIs(t, err, ErrTableExists)

	same := r.GetOrCreate(Config{TableID: "a"})
	h, ok := r.Get("a")
	require.True(t, ok)
	assert.Same(t, h, same)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 9, list[0].MaxSeats)
	assert.Equal(t, models.ModePractice, list[0].Mode)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, 6, list[1].MaxSeats)
}

func TestRegistryReapsIdleTables(t *testing.T) {
	r, mem := newTestRegistry(t)
	ctx := context.Background()

	empty, err := r.Create(Config{TableID: "empty", SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash})
	require.NoError(t, err)
	_, err = r.Create(Config{TableID: "lobby", SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash, Persistent: true})
	require.NoError(t, err)
	busy, err := r.Create(Config{TableID: "busy", SmallBlind: 1, BigBlind: 2, Mode: models.ModeCash})
	require.NoError(t, err)
	bots, err := r.Create(Config{TableID: "bots", SmallBlind: 1, BigBlind: 2, Mode: models.ModePractice})
	require.NoError(t, err)
	require.NoError(t, bots.AddBots(ctx, 1))

	sess, user := uuid.New(), uuid.New()
	_, err = busy.Join(ctx, sess, user, "alice")
	require.NoError(t, err)
	require.NoError(t, busy.Sit(ctx, sess, poker.AnySeat, 100))

	assert.Empty(t, r.ReapIdle(ctx, time.Now()))

	reaped := r.ReapIdle(ctx, time.Now().Add(time.Hour))
	assert.Equal(t, []string{"bots", "empty"}, reaped)
	<-empty.Done()
	<-bots.Done()

	_, ok := r.Get("empty")
	assert.False(t, ok)
	_, ok = r.Get("lobby")
	assert.True(t, ok)
	_, ok = r.Get("busy")
	assert.True(t, ok)

	r.Shutdown(ctx)
	<-busy.Done()
	bal, err := mem.GetBalance(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultWelcomeBalance, bal)
	assert.Empty(t, r.List())
}

func TestCloseTableUnknown(t *testing.T) {
	r, _ := newTestRegistry(t)
	assert.ErrorIs(t, r.CloseTable(context.Background(), "missing"), ErrTableClosed)
}

func TestParseDelayConfigKeepsDefaults(t *testing.T) {
	path := t.TempDir() + "/delays.yaml"
	require.NoError(t, writeFile(path, "nextHand: 1500\nbotThinkMin: 300\nbotThinkMax: 100\n"))

	d, err := ParseDelayConfig(path)
	require.NoError(t, err)
	assert.Equal(t, uint32(1500), d.NextHand)
	assert.Equal(t, DefaultDelays().AutoStart, d.AutoStart)
	assert.Equal(t, uint32(300), d.BotThinkMax)

	_, err = ParseDelayConfig(path + ".missing")
	assert.Error(t, err)
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o600)
}
