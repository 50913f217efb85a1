// Package admin executes operator commands against the live tables and the rake pools. The same
// executor serves the HTTP admin endpoints and the NATS admin subject.
package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/holdem/internal/distribution"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/table"
)

// Op names an admin command.
type Op string

const (
	OpAddBots     Op = "add_bots"
	OpRemoveBot   Op = "remove_bot"
	OpSetSpeed    Op = "set_speed"
	OpCloseTable  Op = "close_table"
	OpCreateTable Op = "create_table"
	OpDistribute  Op = "distribute"
	OpPools       Op = "pools"
	OpTables      Op = "tables"
)

const (
	PoolJackpot = "jackpot"
	PoolGlobal  = "global"
)

var (
	ErrUnknownOp    = errors.New("unknown admin command")
	ErrUnknownTable = errors.New("table not found")
	ErrUnknownPool  = errors.New("pool must be \"jackpot\" or \"global\"")
	ErrNoScheduler  = errors.New("distribution scheduler not configured")
)

// Command is the wire form of an admin request.
type Command struct {
	Op      Op      `json:"op"`
	TableID string  `json:"tableId,omitempty"`
	Count   int     `json:"count,omitempty"`
	Speed   float64 `json:"speed,omitempty"`
	Pool    string  `json:"pool,omitempty"`

	// create_table only
	MaxSeats   int             `json:"maxSeats,omitempty"`
	SmallBlind float64         `json:"smallBlind,omitempty"`
	BigBlind   float64         `json:"bigBlind,omitempty"`
	Mode       models.GameMode `json:"mode,omitempty"`
	Persistent bool            `json:"persistent,omitempty"`
}

// Result is returned for every command. Data depends on the op.
type Result struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// Executor runs admin commands. Scheduler may be nil when pools are disabled.
type Executor struct {
	Registry  *table.Registry
	Speed     *table.Speed
	Scheduler *distribution.Scheduler
	Logger    *logrus.Logger
}

// Execute runs one command. The returned error is also folded into the Result.
func (e *Executor) Execute(ctx context.Context, cmd Command) (Result, error) {
	data, err := e.execute(ctx, cmd)
	entry := e.log().WithFields(logrus.Fields{"op": cmd.Op, "table": cmd.TableID})
	if err != nil {
		entry.WithError(err).Warn("admin command failed")
		return Result{Error: err.Error()}, err
	}
	entry.Info("admin command executed")
	return Result{OK: true, Data: data}, nil
}

func (e *Executor) execute(ctx context.Context, cmd Command) (any, error) {
	switch cmd.Op {
	case OpAddBots:
		h, err := e.table(cmd.TableID)
		if err != nil {
			return nil, err
		}
		n := cmd.Count
		if n <= 0 {
			n = 1
		}
		if err := h.AddBots(ctx, n); err != nil {
			return nil, err
		}
		return h.Info(), nil

	case OpRemoveBot:
		h, err := e.table(cmd.TableID)
		if err != nil {
			return nil, err
		}
		if err := h.RemoveBot(ctx); err != nil {
			return nil, err
		}
		return h.Info(), nil

	case OpSetSpeed:
		if err := e.Speed.Set(cmd.Speed); err != nil {
			return nil, err
		}
		return map[string]float64{"speed": e.Speed.Get()}, nil

	case OpCloseTable:
		if err := e.Registry.CloseTable(ctx, cmd.TableID); err != nil {
			if errors.Is(err, table.ErrTableClosed) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownTable, cmd.TableID)
			}
			return nil, err
		}
		return nil, nil

	case OpCreateTable:
		h, err := e.Registry.Create(table.Config{
			TableID:    cmd.TableID,
			MaxSeats:   cmd.MaxSeats,
			SmallBlind: cmd.SmallBlind,
			BigBlind:   cmd.BigBlind,
			Mode:       cmd.Mode,
			Persistent: cmd.Persistent,
		})
		if err != nil {
			return nil, err
		}
		return h.Info(), nil

	case OpDistribute:
		if e.Scheduler == nil {
			return nil, ErrNoScheduler
		}
		switch cmd.Pool {
		case PoolJackpot:
			return e.Scheduler.DistributeJackpot(ctx)
		case PoolGlobal:
			return e.Scheduler.DistributeGlobalPool(ctx)
		default:
			return nil, ErrUnknownPool
		}

	case OpPools:
		if e.Scheduler == nil {
			return nil, ErrNoScheduler
		}
		return e.Scheduler.Balances(), nil

	case OpTables:
		return e.Registry.List(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownOp, cmd.Op)
}

func (e *Executor) table(id string) (*table.Host, error) {
	h, ok := e.Registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, id)
	}
	return h, nil
}

func (e *Executor) log() *logrus.Logger {
	if e.Logger == nil {
		return logrus.StandardLogger()
	}
	return e.Logger
}
