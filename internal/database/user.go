package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jason-s-yu/holdem/internal/ledger"
	"github.com/jason-s-yu/holdem/internal/models"
	"github.com/jason-s-yu/holdem/internal/poker"
)

const userColumns = `
	id, username, balance, is_ephemeral, is_admin,
	total_hands, total_winnings,
	referral_rank, COALESCE(referred_by, '00000000-0000-0000-0000-000000000000'::uuid), referral_earnings
`

func scanUser(row pgx.Row) (models.User, error) {
	var u models.User
	var rank string
	err := row.Scan(
		&u.ID, &u.Username, &u.Balance, &u.IsEphemeral, &u.IsAdmin,
		&u.TotalHands, &u.TotalWinnings,
		&rank, &u.ReferredBy, &u.ReferralEarnings,
	)
	u.ReferralRank = models.ReferralRank(rank)
	return u, err
}

// GetUser loads one account.
func (l *Ledger) GetUser(ctx context.Context, userID uuid.UUID) (models.User, error) {
	u, err := scanUser(l.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.User{}, ledger.ErrUserNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("failed to load user: %w", err)
	}
	return u, nil
}

// EnsureUser returns the account, creating it with the welcome balance on first sight. The
// insert and the welcome transaction commit together.
func (l *Ledger) EnsureUser(ctx context.Context, userID uuid.UUID, username string) (models.User, bool, error) {
	created := false
	err := pgx.BeginTxFunc(ctx, l.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO users (id, username, balance)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO NOTHING
			RETURNING id
		`
		var id uuid.UUID
		err := tx.QueryRow(ctx, q, userID, username, poker.Money(l.welcome)).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		created = true
		if l.welcome <= 0 {
			return nil
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO transactions (id, user_id, type, amount) VALUES ($1, $2, $3, $4)`,
			uuid.New(), userID, string(models.TxWelcomeBonus), poker.Money(l.welcome),
		)
		return err
	})
	if err != nil {
		return models.User{}, false, fmt.Errorf("failed to ensure user: %w", err)
	}
	u, err := l.GetUser(ctx, userID)
	return u, created, err
}

// EnsureOperator creates the admin account that collects the operator rake share.
func (l *Ledger) EnsureOperator(ctx context.Context, id uuid.UUID) error {
	q := `
		INSERT INTO users (id, username, is_ephemeral, is_admin)
		VALUES ($1, 'operator', FALSE, TRUE)
		ON CONFLICT (id) DO UPDATE SET is_admin = TRUE
	`
	if _, err := l.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("failed to ensure operator account: %w", err)
	}
	return nil
}

// RecordHand bumps the hand count and adds the net result of one hand.
func (l *Ledger) RecordHand(ctx context.Context, userID uuid.UUID, net float64) error {
	q := `
		UPDATE users
		SET total_hands = total_hands + 1, total_winnings = total_winnings + $1
		WHERE id = $2
	`
	tag, err := l.pool.Exec(ctx, q, poker.Money(net), userID)
	if err != nil {
		return fmt.Errorf("failed to record hand: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUserNotFound
	}
	return nil
}

// SetReferrer links a user to the account that referred them. Links that would close a cycle
// are refused.
func (l *Ledger) SetReferrer(ctx context.Context, userID, referrerID uuid.UUID) error {
	if userID == referrerID {
		return fmt.Errorf("user cannot refer themselves")
	}
	chain, err := l.loadChain(ctx, referrerID)
	if err != nil {
		return err
	}
	for _, r := range chain {
		if r.UserID == userID {
			return fmt.Errorf("referral link would create a cycle")
		}
	}
	tag, err := l.pool.Exec(ctx, `UPDATE users SET referred_by = $1 WHERE id = $2 AND referred_by IS NULL`, referrerID, userID)
	if err != nil {
		return fmt.Errorf("failed to set referrer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s not found or already referred", userID)
	}
	l.referrals.Purge()
	return nil
}

// SetReferralRank changes a user's referral rank.
func (l *Ledger) SetReferralRank(ctx context.Context, userID uuid.UUID, rank models.ReferralRank) error {
	tag, err := l.pool.Exec(ctx, `UPDATE users SET referral_rank = $1 WHERE id = $2`, string(rank), userID)
	if err != nil {
		return fmt.Errorf("failed to set referral rank: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrUserNotFound
	}
	l.referrals.Purge()
	return nil
}

// ReferralChain returns the referrers above userID, nearest first. Chains are cached until a
// referral link or rank changes.
func (l *Ledger) ReferralChain(ctx context.Context, userID uuid.UUID) ([]models.Referrer, error) {
	if v, ok := l.referrals.Get(userID); ok {
		return v.([]models.Referrer), nil
	}
	chain, err := l.loadChain(ctx, userID)
	if err != nil {
		return nil, err
	}
	l.referrals.Add(userID, chain)
	return chain, nil
}

func (l *Ledger) loadChain(ctx context.Context, userID uuid.UUID) ([]models.Referrer, error) {
	q := `
		WITH RECURSIVE chain (id, rank, depth, path) AS (
			SELECT r.id, r.referral_rank, 1, ARRAY[u.id, r.id]
			FROM users u
			JOIN users r ON r.id = u.referred_by
			WHERE u.id = $1
			UNION ALL
			SELECT r.id, r.referral_rank, c.depth + 1, c.path || r.id
			FROM chain c
			JOIN users cu ON cu.id = c.id
			JOIN users r ON r.id = cu.referred_by
			WHERE c.depth < $2 AND NOT r.id = ANY(c.path)
		)
		SELECT id, rank FROM chain ORDER BY depth
	`
	rows, err := l.pool.Query(ctx, q, userID, ledger.MaxReferralDepth)
	if err != nil {
		return nil, fmt.Errorf("failed to load referral chain: %w", err)
	}
	defer rows.Close()

	var chain []models.Referrer
	for rows.Next() {
		var r models.Referrer
		var rank string
		if err := rows.Scan(&r.UserID, &rank); err != nil {
			return nil, err
		}
		r.Rank = models.ReferralRank(rank)
		chain = append(chain, r)
	}
	return chain, rows.Err()
}

func (l *Ledger) AddReferralEarnings(ctx context.Context, userID uuid.UUID, amount float64) error {
	_, err := l.pool.Exec(ctx,
		`UPDATE users SET referral_earnings = referral_earnings + $1 WHERE id = $2`,
		poker.Money(amount), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add referral earnings: %w", err)
	}
	return nil
}

// Partners lists partner and master rank users with their lifetime override earnings.
func (l *Ledger) Partners(ctx context.Context) ([]models.PartnerActivity, error) {
	q := `
		SELECT id, referral_earnings
		FROM users
		WHERE referral_rank IN ('PARTNER', 'MASTER')
		ORDER BY id
	`
	rows, err := l.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query partners: %w", err)
	}
	defer rows.Close()

	var out []models.PartnerActivity
	for rows.Next() {
		var p models.PartnerActivity
		if err := rows.Scan(&p.UserID, &p.Activity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (l *Ledger) TopPlayersByHands(ctx context.Context, n int) ([]uuid.UUID, error) {
	return l.ids(ctx, `
		SELECT id FROM users
		WHERE NOT is_admin AND total_hands > 0
		ORDER BY total_hands DESC, id
		LIMIT $1
	`, n)
}

func (l *Ledger) TopPlayersByWinnings(ctx context.Context, n int) ([]uuid.UUID, error) {
	return l.ids(ctx, `
		SELECT id FROM users
		WHERE NOT is_admin AND total_winnings > 0
		ORDER BY total_winnings DESC, id
		LIMIT $1
	`, n)
}

// LuckyDrawCandidates lists players with at least minHands hands.
func (l *Ledger) LuckyDrawCandidates(ctx context.Context, minHands int) ([]uuid.UUID, error) {
	return l.ids(ctx, `
		SELECT id FROM users
		WHERE NOT is_admin AND total_hands >= $1
		ORDER BY id
	`, minHands)
}

func (l *Ledger) ids(ctx context.Context, q string, arg int) ([]uuid.UUID, error) {
	rows, err := l.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
