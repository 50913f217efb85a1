// internal/database/ledger.go
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

// DefaultReferralCacheSize bounds the number of cached referral chains.
const DefaultReferralCacheSize = 4096

// Ledger is the Postgres wallet and account store. Balance updates are single conditional
// statements, so concurrent tables never overdraw an account.
type Ledger struct {
	pool      *pgxpool.Pool
	welcome   float64
	referrals *lru.Cache
}

func NewLedger(pool *pgxpool.Pool, welcome float64, cacheSize int) (*Ledger, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultReferralCacheSize
	}
	c, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize referral cache: %w", err)
	}
	return &Ledger{pool: pool, welcome: welcome, referrals: c}, nil
}

func (l *Ledger) GetBalance(ctx context.Context, userID uuid.UUID) (float64, error) {
	var bal float64
	err := l.pool.QueryRow(ctx, `SELECT balance FROM users WHERE id = $1`, userID).Scan(&bal)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ledger.ErrUserNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return bal, nil
}

// AdjustBalance applies delta atomically and returns the new balance. A debit larger than the
// balance changes nothing and returns ledger.ErrInsufficientFunds.
func (l *Ledger) AdjustBalance(ctx context.Context, userID uuid.UUID, delta float64) (float64, error) {
	delta = poker.Money(delta)
	q := `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2 AND balance + $1 >= 0
		RETURNING balance
	`
	var bal float64
	err := l.pool.QueryRow(ctx, q, delta, userID).Scan(&bal)
	if err == nil {
		return bal, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("failed to adjust balance: %w", err)
	}
	cur, getErr := l.GetBalance(ctx, userID)
	if getErr != nil {
		return 0, getErr
	}
	return cur, ledger.ErrInsufficientFunds
}

func (l *Ledger) AppendTransaction(ctx context.Context, tx models.Transaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	var handID *uuid.UUID
	if tx.HandID != uuid.Nil {
		handID = &tx.HandID
	}
	q := `
		INSERT INTO transactions (id, user_id, type, amount, hand_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := l.pool.Exec(ctx, q, tx.ID, tx.UserID, string(tx.Type), poker.Money(tx.Amount), handID, tx.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// Transactions lists the newest transactions of one user.
func (l *Ledger) Transactions(ctx context.Context, userID uuid.UUID, limit int) ([]models.Transaction, error) {
	q := `
		SELECT id, user_id, type, amount, COALESCE(hand_id, '00000000-0000-0000-0000-000000000000'::uuid), created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := l.pool.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var tx models.Transaction
		var kind string
		if err := rows.Scan(&tx.ID, &tx.UserID, &kind, &tx.Amount, &tx.HandID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.Type = models.TransactionType(kind)
		out = append(out, tx)
	}
	return out, rows.Err()
}
