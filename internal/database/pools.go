package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/holdem/internal/models"
)

const poolRowID = "global"

func (l *Ledger) LoadPools(ctx context.Context) (models.PoolBalances, error) {
	var p models.PoolBalances
	q := `SELECT global_partner_pool, monthly_jackpot_pool FROM pool_balances WHERE id = $1`
	err := l.pool.QueryRow(ctx, q, poolRowID).Scan(&p.GlobalPartnerPool, &p.MonthlyJackpotPool)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.PoolBalances{}, nil
	}
	if err != nil {
		return p, fmt.Errorf("failed to load pools: %w", err)
	}
	return p, nil
}

func (l *Ledger) SavePools(ctx context.Context, p models.PoolBalances) error {
	q := `
		INSERT INTO pool_balances (id, global_partner_pool, monthly_jackpot_pool, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id)
		DO UPDATE SET global_partner_pool = $2, monthly_jackpot_pool = $3, updated_at = NOW()
	`
	if _, err := l.pool.Exec(ctx, q, poolRowID, p.GlobalPartnerPool, p.MonthlyJackpotPool); err != nil {
		return fmt.Errorf("failed to save pools: %w", err)
	}
	return nil
}
