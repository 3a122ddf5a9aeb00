package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	domain "loyalty-points-backend/internal/domain/user"
)

const profileColumns = `user_id, COALESCE(username, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	total_points, points_updated_at, is_wallet_connected, COALESCE(wallet_address, ''), has_joined_channel,
	is_push_enabled, last_active_at, last_spin_at, last_notified_at, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// UserRepository persists profiles in Postgres.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository { return &UserRepository{db: db} }

// Sync upserts the Telegram identity and marks the user active. Points and
// flags are never touched here.
func (r *UserRepository) Sync(ctx context.Context, id domain.Identity, at time.Time) (*domain.Profile, error) {
	q := `
INSERT INTO profiles (user_id, username, first_name, last_name, last_active_at, created_at)
VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $5)
ON CONFLICT (user_id) DO UPDATE SET
	username = EXCLUDED.username,
	first_name = EXCLUDED.first_name,
	last_name = EXCLUDED.last_name,
	last_active_at = EXCLUDED.last_active_at
RETURNING ` + profileColumns

	p, err := scanProfile(r.db.QueryRowContext(ctx, q, id.ID, id.Username, id.FirstName, id.LastName, at))
	if err != nil {
		return nil, fmt.Errorf("failed to sync profile: %w", err)
	}
	return p, nil
}

// GetByID returns domain.ErrNotFound when the profile does not exist.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.Profile, error) {
	q := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id=$1`
	p, err := scanProfile(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

func (r *UserRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE profiles SET last_active_at=$2 WHERE user_id=$1`
	return r.execOne(ctx, q, id, at)
}

func (r *UserRepository) SetWalletConnected(ctx context.Context, id int64, address string) error {
	const q = `UPDATE profiles SET is_wallet_connected=TRUE, wallet_address=$2 WHERE user_id=$1`
	return r.execOne(ctx, q, id, address)
}

func (r *UserRepository) SetChannelJoined(ctx context.Context, id int64) error {
	const q = `UPDATE profiles SET has_joined_channel=TRUE WHERE user_id=$1`
	return r.execOne(ctx, q, id)
}

func (r *UserRepository) MarkSpun(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE profiles SET last_spin_at=$2 WHERE user_id=$1`
	return r.execOne(ctx, q, id, at)
}

// NudgeCandidates selects push-enabled users idle since inactiveBefore who
// were not notified after notifiedBefore, stalest first.
func (r *UserRepository) NudgeCandidates(ctx context.Context, inactiveBefore, notifiedBefore time.Time, limit int) ([]domain.NudgeCandidate, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT user_id, COALESCE(first_name, ''), last_active_at
FROM profiles
WHERE is_push_enabled = TRUE
  AND last_active_at < $1
  AND (last_notified_at IS NULL OR last_notified_at < $2)
ORDER BY last_active_at ASC
LIMIT $3`
	rows, err := r.db.QueryContext(ctx, q, inactiveBefore, notifiedBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query nudge candidates: %w", err)
	}
	defer rows.Close()

	var out []domain.NudgeCandidate
	for rows.Next() {
		var c domain.NudgeCandidate
		if err := rows.Scan(&c.ID, &c.FirstName, &c.LastActiveAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *UserRepository) MarkNotified(ctx context.Context, id int64, at time.Time) error {
	const q = `UPDATE profiles SET last_notified_at=$2 WHERE user_id=$1`
	return r.execOne(ctx, q, id, at)
}

func (r *UserRepository) DisablePush(ctx context.Context, id int64) error {
	const q = `UPDATE profiles SET is_push_enabled=FALSE WHERE user_id=$1`
	return r.execOne(ctx, q, id)
}

func (r *UserRepository) execOne(ctx context.Context, q string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	if err := row.Scan(&p.ID, &p.Username, &p.FirstName, &p.LastName,
		&p.TotalPoints, &p.PointsUpdatedAt, &p.IsWalletConnected, &p.WalletAddress, &p.HasJoinedChannel,
		&p.IsPushEnabled, &p.LastActiveAt, &p.LastSpinAt, &p.LastNotifiedAt, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
