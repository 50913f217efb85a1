package admin

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jason-s-yu/holdem/internal/distribution"
	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/table"
)

type nopTransport struct{}

func (nopTransport) Broadcast(string, table.Event) {}
func (nopTransport) SendTo(uuid.UUID, table.Event) {}

type nopMirror struct{}

func (nopMirror) MirrorPools(context.Context, models.PoolBalances) error { return nil }

func newExecutor(t *testing.T) (*Executor, *ledger.Memory) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	mem := ledger.NewMemory(ledger.DefaultWelcomeBalance)
	speed := table.NewSpeed(1)
	reg := table.NewRegistry(table.Deps{
		Ledger:    mem,
		Accounts:  mem,
		Transport: nopTransport{},
		Logger:    logger,
		Speed:     speed,
		Delays:    table.Delays{AutoStart: 3_600_000, NextHand: 3_600_000, BotThinkMin: 1, BotThinkMax: 1, IdleTimeout: 60_000},
	})
	t.Cleanup(func() { reg.Shutdown(context.Background()) })
	sched, err := distribution.New(context.Background(), mem, nopMirror{}, logger)
	require.NoError(t, err)
	return &Executor{Registry: reg, Speed: speed, Scheduler: sched, Logger: logger}, mem
}

func TestExecutorTableLifecycle(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()

	res, err := e.Execute(ctx, Command{Op: OpCreateTable, TableID: "t9", MaxSeats: 9, SmallBlind: 5, BigBlind: 10, Mode: models.ModePractice})
	require.NoError(t, err)
	assert.True(t, res.OK)
	info := res.Data.(table.TableInfo)
	assert.Equal(t, 9, info.MaxSeats)

	res, err = e.Execute(ctx, Command{Op: OpAddBots, TableID: "t9", Count: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Data.(table.TableInfo).Occupied)

	_, err = e.Execute(ctx, Command{Op: OpRemoveBot, TableID: "t9"})
	require.NoError(t, err)
	h, ok := e.Registry.Get("t9")
	require.True(t, ok)
	assert.Equal(t, 2, h.Info().Occupied)

	res, err = e.Execute(ctx, Command{Op: OpTables})
	require.NoError(t, err)
	assert.Len(t, res.Data.([]table.TableInfo), 1)

	_, err = e.Execute(ctx, Command{Op: OpCloseTable, TableID: "t9"})
	require.NoError(t, err)
	<-h.Done()

	res, err = e.Execute(ctx, Command{Op: OpCloseTable, TableID: "t9"})
	assert.ErrorIs(t, err, ErrUnknownTable)
	assert.False(t, res.OK)
	assert.NotEmpty(t, res.Error)
}

func TestExecutorUnknownTableAndOp(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, Command{Op: OpAddBots, TableID: "nope"})
	assert.ErrorIs(t, err, ErrUnknownTable)
	_, err = e.Execute(ctx, Command{Op: "reboot"})
	assert.ErrorIs(t, err, ErrUnknownOp)
}

func TestExecutorSpeed(t *testing.T) {
	e, _ := newExecutor(t)
	ctx := context.Background()

	_, err := e.Execute(ctx, Command{Op: OpSetSpeed, Speed: 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, e.Speed.Get())

	_, err = e.Execute(ctx, Command{Op: OpSetSpeed, Speed: 50})
	assert.Error(t, err)
	assert.Equal(t, 2.0, e.Speed.Get())
}

func TestExecutorDistribute(t *testing.T) {
	e, mem := newExecutor(t)
	ctx := context.Background()
	p := uuid.New()
	mem.PutUser(models.User{ID: p, ReferralRank: models.RankPartner})
	require.NoError(t, e.Scheduler.AddRake(ctx, 0, 20))

	res, err := e.Execute(ctx, Command{Op: OpPools})
	require.NoError(t, err)
	assert.Equal(t, 20.0, res.Data.(models.PoolBalances).GlobalPartnerPool)

	res, err = e.Execute(ctx, Command{Op: OpDistribute, Pool: PoolGlobal})
	require.NoError(t, err)
	rep := res.Data.(distribution.Report)
	assert.Equal(t, 20.0, rep.Distributed)
	bal, err := mem.GetBalance(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, 20.0, bal)

	_, err = e.Execute(ctx, Command{Op: OpDistribute, Pool: "weekly"})
	assert.ErrorIs(t, err, ErrUnknownPool)
}

func TestHandleMessage(t *testing.T) {
	e, _ := newExecutor(t)

	var got Result
	HandleMessage(e, []byte(`{"op":"set_speed","speed":0.5}`), func(b []byte) {
		require.NoError(t, json.Unmarshal(b, &got))
	})
	assert.True(t, got.OK)
	assert.Equal(t, 0.5, e.Speed.Get())

	HandleMessage(e, []byte(`{not json`), func(b []byte) {
		require.NoError(t, json.Unmarshal(b, &got))
	})
	assert.False(t, got.OK)
	assert.Contains(t, got.Error, "invalid admin command")
}
