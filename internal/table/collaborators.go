package table

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
)

var (
	ErrInsufficientFunds = ledger.ErrInsufficientFunds
	ErrLedgerFailure     = errors.New("ledger failure")
	ErrTableClosed       = errors.New("table closed")
	ErrNotSeated         = errors.New("player not seated")
	ErrNotJoined         = errors.New("session has not joined this table")
	ErrTableExists       = errors.New("table already exists")
	ErrNoBots            = errors.New("no bots at this table")
)

// Ledger is the wallet store. AdjustBalance must be atomic and must refuse to overdraw.
type Ledger interface {
	GetBalance(ctx context.Context, userID uuid.UUID) (float64, error)
	AdjustBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error)
	AppendTransaction(ctx context.Context, tx models.Transaction) error
}

// Accounts holds user profiles, lifetime stats and the referral graph.
type Accounts interface {
	EnsureUser(ctx context.Context, userID uuid.UUID, username string) (models.User, bool, error)
	RecordHand(ctx context.Context, userID uuid.UUID, net float64) error
	ReferralChain(ctx context.Context, userID uuid.UUID) ([]models.Referrer, error)
	AddReferralEarnings(ctx context.Context, userID uuid.UUID, amount float64) error
}

// RakeSink receives the pool shares of each raked hand.
type RakeSink interface {
	AddRake(ctx context.Context, jackpot, globalPool float64) error
}

// HistorySink receives one record per settled hand.
type HistorySink interface {
	PublishHand(ctx context.Context, rec models.HandRecord) error
}

// Transport delivers events to connected sessions.
type Transport interface {
	Broadcast(tableID string, ev Event)
	SendTo(sessionID uuid.UUID, ev Event)
}

// ledgerErr keeps insufficient-funds errors recognizable and folds everything else into ErrLedgerFailure.
func ledgerErr(err error) error {
	if errors.Is(err, ledger.ErrInsufficientFunds) {
		return err
	}
	Metrics.LedgerFailure()
	return errors.Join(ErrLedgerFailure, err)
}
