// internal/database/hands.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jason-s-yu/holdem/internal/models"
)

// InsertHandRecords stores a batch of settled hands in one transaction and marks their tables
// active. Records already stored are skipped.
func InsertHandRecords(ctx context.Context, pool *pgxpool.Pool, recs []models.HandRecord) error {
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for _, rec := range recs {
			if err := insertHandTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insertHandTx: %w", err)
			}
		}
		return nil
	})
}

func insertHandTx(ctx context.Context, tx pgx.Tx, rec models.HandRecord) error {
	board, err := json.Marshal(rec.CommunityCards)
	if err != nil {
		return err
	}
	winners, err := json.Marshal(rec.Winners)
	if err != nil {
		return err
	}
	pots, err := json.Marshal(rec.SidePots)
	if err != nil {
		return err
	}
	var fairness []byte
	if rec.Fairness != nil {
		if fairness, err = json.Marshal(rec.Fairness); err != nil {
			return err
		}
	}
	playedAt := time.UnixMilli(rec.Timestamp).UTC()

	q := `
		INSERT INTO hand_history (
			hand_id, table_id, hand_number, mode, community_cards, winners, side_pots, rake, fairness, played_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (hand_id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, q,
		rec.HandID, rec.TableID, rec.HandNumber, string(rec.Mode), board, winners, pots, rec.Rake, fairness, playedAt,
	); err != nil {
		return err
	}

	upsert := `
		INSERT INTO table_activity (table_id, status, last_hand_at)
		VALUES ($1, 'active', $2)
		ON CONFLICT (table_id)
		DO UPDATE SET status = 'active', last_hand_at = GREATEST(table_activity.last_hand_at, $2)
	`
	_, err = tx.Exec(ctx, upsert, rec.TableID, playedAt)
	return err
}

// MarkTableIdle flags a table whose hand stream has gone quiet.
func MarkTableIdle(ctx context.Context, pool *pgxpool.Pool, tableID string) error {
	q := `UPDATE table_activity SET status = 'idle' WHERE table_id = $1 AND status = 'active'`
	return pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, tableID)
		return err
	})
}

// RecentHands returns the newest stored hands of a table.
func RecentHands(ctx context.Context, pool *pgxpool.Pool, tableID string, limit int) ([]models.HandRecord, error) {
	q := `
		SELECT hand_id, table_id, hand_number, mode, community_cards, winners, side_pots, rake, fairness, played_at
		FROM hand_history
		WHERE table_id = $1
		ORDER BY hand_number DESC
		LIMIT $2
	`
	rows, err := pool.Query(ctx, q, tableID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query hand history: %w", err)
	}
	defer rows.Close()

	var out []models.HandRecord
	for rows.Next() {
		var rec models.HandRecord
		var mode string
		var board, winners, pots, fairness []byte
		var playedAt time.Time
		if err := rows.Scan(&rec.HandID, &rec.TableID, &rec.HandNumber, &mode, &board, &winners, &pots, &rec.Rake, &fairness, &playedAt); err != nil {
			return nil, err
		}
		rec.Mode = models.GameMode(mode)
		rec.Timestamp = playedAt.UnixMilli()
		if err := json.Unmarshal(board, &rec.CommunityCards); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(winners, &rec.Winners); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(pots, &rec.SidePots); err != nil {
			return nil, err
		}
		if len(fairness) > 0 {
			rec.Fairness = &models.FairnessReveal{}
			if err := json.Unmarshal(fairness, rec.Fairness); err != nil {
				return nil, err
			}
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
