package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"loyalty-points-backend/internal/domain/ledger"
)

// StandingsRepository reads ordered leaderboard sources.
type StandingsRepository struct {
	db *sqlx.DB
}

func NewStandingsRepository(db *sqlx.DB) *StandingsRepository { return &StandingsRepository{db: db} }

func (r *StandingsRepository) AllTimeStandings(ctx context.Context) ([]ledger.Standing, error) {
	const q = `
SELECT user_id,
	COALESCE(username, '') AS username,
	COALESCE(first_name, '') AS first_name,
	COALESCE(wallet_address, '') AS wallet_address,
	total_points AS points,
	COALESCE(points_updated_at, created_at) AS reached_at
FROM profiles
WHERE total_points > 0
ORDER BY total_points DESC, reached_at ASC, user_id ASC`
	var out []ledger.Standing
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("failed to select all-time standings: %w", err)
	}
	return out, nil
}

func (r *StandingsRepository) BucketStandings(ctx context.Context, period ledger.PeriodType, key string) ([]ledger.Standing, error) {
	const q = `
SELECT b.user_id,
	COALESCE(p.username, '') AS username,
	COALESCE(p.first_name, '') AS first_name,
	COALESCE(p.wallet_address, '') AS wallet_address,
	b.points,
	b.updated_at AS reached_at
FROM leaderboard_buckets b
JOIN profiles p ON p.user_id = b.user_id
WHERE b.period_type = $1 AND b.period_key = $2 AND b.points > 0
ORDER BY b.points DESC, b.updated_at ASC, b.user_id ASC`
	var out []ledger.Standing
	if err := r.db.SelectContext(ctx, &out, q, string(period), key); err != nil {
		return nil, fmt.Errorf("failed to select %s standings: %w", period, err)
	}
	return out, nil
}
