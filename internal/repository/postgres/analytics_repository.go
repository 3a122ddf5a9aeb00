package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"loyalty-points-backend/internal/domain/analytics"
	"loyalty-points-backend/internal/domain/attribution"
	"loyalty-points-backend/internal/domain/user"
)

// AnalyticsRepository serves the reporting reads: dashboard aggregates,
// attribution folds and signup lifecycles.
type AnalyticsRepository struct {
	db *sqlx.DB
}

func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository { return &AnalyticsRepository{db: db} }

func (r *AnalyticsRepository) ProfileCounts(ctx context.Context) (analytics.ProfileCounts, error) {
	const q = `
SELECT COUNT(*) AS total,
	COUNT(*) FILTER (WHERE is_wallet_connected) AS wallet_connected,
	COUNT(*) FILTER (WHERE has_joined_channel) AS channel_joined
FROM profiles`
	var c analytics.ProfileCounts
	if err := r.db.GetContext(ctx, &c, q); err != nil {
		return c, fmt.Errorf("failed to count profiles: %w", err)
	}
	return c, nil
}

func (r *AnalyticsRepository) PointsDistributed(ctx context.Context) (int64, error) {
	var sum int64
	if err := r.db.GetContext(ctx, &sum, `SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE amount > 0`); err != nil {
		return 0, fmt.Errorf("failed to sum points: %w", err)
	}
	return sum, nil
}

func (r *AnalyticsRepository) ReferralCount(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM referrals`); err != nil {
		return 0, fmt.Errorf("failed to count referrals: %w", err)
	}
	return n, nil
}

func (r *AnalyticsRepository) PointsByReason(ctx context.Context, from, to *time.Time) ([]analytics.ReasonTotal, error) {
	q := `
SELECT reason, SUM(amount) AS distributed, COUNT(*) AS transactions
FROM transactions
WHERE amount > 0`
	var args []interface{}
	if from != nil && to != nil {
		q += ` AND created_at >= $1 AND created_at <= $2`
		args = append(args, *from, *to)
	}
	q += ` GROUP BY reason ORDER BY distributed DESC, reason ASC`

	var out []analytics.ReasonTotal
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("failed to group points by reason: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) ReasonUsage(ctx context.Context) ([]analytics.ReasonUsage, error) {
	const q = `
SELECT reason, COUNT(DISTINCT user_id) AS users, COUNT(*) AS transactions
FROM transactions
GROUP BY reason
ORDER BY users DESC, reason ASC`
	var out []analytics.ReasonUsage
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("failed to group reason usage: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) TransactionsPerDay(ctx context.Context, from, to time.Time, tz string) ([]analytics.DayCount, error) {
	const q = `
SELECT to_char(created_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*) AS count
FROM transactions
WHERE created_at >= $1 AND created_at < $2
GROUP BY day
ORDER BY day`
	var out []analytics.DayCount
	if err := r.db.SelectContext(ctx, &out, q, from, to, tz); err != nil {
		return nil, fmt.Errorf("failed to count transactions per day: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) SignupsPerDay(ctx context.Context, from, to time.Time, tz string) ([]analytics.DayCount, error) {
	const q = `
SELECT to_char(created_at AT TIME ZONE $3, 'YYYY-MM-DD') AS day, COUNT(*) AS count
FROM profiles
WHERE created_at >= $1 AND created_at < $2
GROUP BY day
ORDER BY day`
	var out []analytics.DayCount
	if err := r.db.SelectContext(ctx, &out, q, from, to, tz); err != nil {
		return nil, fmt.Errorf("failed to count signups per day: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) SignupsBefore(ctx context.Context, t time.Time) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM profiles WHERE created_at < $1`, t); err != nil {
		return 0, fmt.Errorf("failed to count signups: %w", err)
	}
	return n, nil
}

// Lifecycles returns signup and last activity for every profile.
func (r *AnalyticsRepository) Lifecycles(ctx context.Context) ([]user.Lifecycle, error) {
	var out []user.Lifecycle
	if err := r.db.SelectContext(ctx, &out, `SELECT created_at, last_active_at FROM profiles ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("failed to select lifecycles: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) ReferrerCounts(ctx context.Context) ([]attribution.ReferrerCount, error) {
	const q = `
SELECT r.referrer_id,
	COALESCE(NULLIF(p.first_name, ''), NULLIF(p.username, ''), 'Unknown') AS referrer_name,
	COUNT(*) AS referrals
FROM referrals r
LEFT JOIN profiles p ON p.user_id = r.referrer_id
GROUP BY r.referrer_id, p.first_name, p.username
ORDER BY referrals DESC, r.referrer_id ASC`
	var out []attribution.ReferrerCount
	if err := r.db.SelectContext(ctx, &out, q); err != nil {
		return nil, fmt.Errorf("failed to count referrers: %w", err)
	}
	return out, nil
}

func (r *AnalyticsRepository) CampaignCounts(ctx context.Context, from, to *time.Time) ([]attribution.CampaignCount, error) {
	q := `
SELECT campaign_id,
	COUNT(*) AS users,
	MIN(created_at) AS first_attribution,
	MAX(created_at) AS last_attribution
FROM campaign_attributions`
	var args []interface{}
	if from != nil && to != nil {
		q += ` WHERE created_at >= $1 AND created_at <= $2`
		args = append(args, *from, *to)
	}
	q += ` GROUP BY campaign_id ORDER BY users DESC, campaign_id ASC`

	var out []attribution.CampaignCount
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}
	return out, nil
}
