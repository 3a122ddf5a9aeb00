package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loyalty-points-backend/internal/domain/checkin"
	"loyalty-points-backend/internal/domain/user"
)

type CheckinRepository struct {
	db *sql.DB
}

func NewCheckinRepository(db *sql.DB) *CheckinRepository { return &CheckinRepository{db: db} }

// Insert anchors the check-in for date. The streak is computed in the same
// statement from the record of previousDate.
func (r *CheckinRepository) Insert(ctx context.Context, userID int64, date, previousDate string, at time.Time) (*checkin.Record, bool, error) {
	const q = `
INSERT INTO daily_logins (user_id, login_date, streak_count, created_at)
VALUES ($1, $2::date,
	COALESCE((SELECT streak_count FROM daily_logins WHERE user_id = $1 AND login_date = $3::date), 0) + 1,
	$4)
ON CONFLICT (user_id, login_date) DO NOTHING
RETURNING user_id, to_char(login_date, 'YYYY-MM-DD'), streak_count, created_at`

	var rec checkin.Record
	err := r.db.QueryRowContext(ctx, q, userID, date, previousDate, at).
		Scan(&rec.UserID, &rec.LoginDate, &rec.Streak, &rec.CreatedAt)
	if err == nil {
		return &rec, true, nil
	}
	if isPQCode(err, pqForeignKeyViolation) {
		return nil, false, user.ErrNotFound
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to insert daily login: %w", err)
	}

	existing, err := r.Get(ctx, userID, date)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get returns nil when there is no record for date.
func (r *CheckinRepository) Get(ctx context.Context, userID int64, date string) (*checkin.Record, error) {
	const q = `
SELECT user_id, to_char(login_date, 'YYYY-MM-DD'), streak_count, created_at
FROM daily_logins
WHERE user_id = $1 AND login_date = $2::date`
	var rec checkin.Record
	if err := r.db.QueryRowContext(ctx, q, userID, date).Scan(&rec.UserID, &rec.LoginDate, &rec.Streak, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get daily login: %w", err)
	}
	return &rec, nil
}
