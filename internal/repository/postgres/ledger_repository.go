package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"loyalty-points-backend/internal/domain/ledger"
)

const (
	pqForeignKeyViolation = "23503"
	pqUniqueViolation     = "23505"
)

// LedgerRepository is the Postgres implementation of ledger.Store.
type LedgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) *LedgerRepository { return &LedgerRepository{db: db} }

// ApplyAward writes the transaction row, the profile total and both period
// buckets in one database transaction.
func (r *LedgerRepository) ApplyAward(ctx context.Context, e ledger.Entry) (ledger.AwardResult, error) {
	meta, err := ledger.EncodeMetadata(e.Metadata)
	if err != nil {
		return ledger.AwardResult{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.AwardResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const insertTx = `
INSERT INTO transactions (id, user_id, amount, reason, metadata, idempotency_key, created_at)
VALUES ($1, $2, $3, $4, $5::jsonb, $6, $7)
ON CONFLICT (idempotency_key) DO NOTHING`
	res, err := tx.ExecContext(ctx, insertTx,
		e.ID, e.UserID, e.Amount, string(e.Reason), string(meta), nullString(e.IdempotencyKey), e.CreatedAt)
	if err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return ledger.AwardResult{}, ledger.ErrUnknownUser
		}
		return ledger.AwardResult{}, fmt.Errorf("failed to insert transaction: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return ledger.AwardResult{}, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if inserted == 0 {
		var total int64
		if err := tx.QueryRowContext(ctx, `SELECT total_points FROM profiles WHERE user_id=$1`, e.UserID).Scan(&total); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ledger.AwardResult{}, ledger.ErrUnknownUser
			}
			return ledger.AwardResult{}, fmt.Errorf("failed to read total: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return ledger.AwardResult{}, fmt.Errorf("failed to commit: %w", err)
		}
		return ledger.AwardResult{Total: total}, nil
	}

	const updateTotal = `
UPDATE profiles
SET total_points = total_points + $2, points_updated_at = $3
WHERE user_id = $1
RETURNING total_points`
	var total int64
	if err := tx.QueryRowContext(ctx, updateTotal, e.UserID, e.Amount, e.CreatedAt).Scan(&total); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ledger.AwardResult{}, ledger.ErrUnknownUser
		}
		return ledger.AwardResult{}, fmt.Errorf("failed to update total: %w", err)
	}

	const upsertBuckets = `
INSERT INTO leaderboard_buckets (user_id, period_type, period_key, points, updated_at)
VALUES ($1, 'daily', $2, $4, $5), ($1, 'weekly', $3, $4, $5)
ON CONFLICT (user_id, period_type, period_key) DO UPDATE SET
	points = leaderboard_buckets.points + EXCLUDED.points,
	updated_at = EXCLUDED.updated_at`
	if _, err := tx.ExecContext(ctx, upsertBuckets, e.UserID, e.DailyKey, e.WeeklyKey, e.Amount, e.CreatedAt); err != nil {
		return ledger.AwardResult{}, fmt.Errorf("failed to upsert buckets: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ledger.AwardResult{}, fmt.Errorf("failed to commit: %w", err)
	}
	return ledger.AwardResult{Total: total, Applied: true}, nil
}

// ListTransactions returns the newest transactions of a user first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID int64, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	const q = `
SELECT id, user_id, amount, reason, metadata, COALESCE(idempotency_key, ''), created_at
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2`
	rows, err := r.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		var (
			t      ledger.Transaction
			reason string
			raw    []byte
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &reason, &raw, &t.IdempotencyKey, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Reason = ledger.Reason(reason)
		if t.Metadata, err = ledger.DecodeMetadata(t.Reason, raw); err != nil {
			return nil, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isPQCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}
