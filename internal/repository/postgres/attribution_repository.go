package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"loyalty-points-backend/internal/domain/user"
)

// AttributionRepository stores referral and campaign anchors.
type AttributionRepository struct {
	db *sql.DB
}

func NewAttributionRepository(db *sql.DB) *AttributionRepository {
	return &AttributionRepository{db: db}
}

// InsertReferral returns false when the referee already has a referrer.
func (r *AttributionRepository) InsertReferral(ctx context.Context, referrerID, refereeID int64, at time.Time) (bool, error) {
	const q = `
INSERT INTO referrals (referrer_id, referee_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (referee_id) DO NOTHING`
	return r.insert(ctx, "referral", q, referrerID, refereeID, at)
}

// InsertCampaignAttribution returns false when the user is already attributed.
func (r *AttributionRepository) InsertCampaignAttribution(ctx context.Context, userID int64, campaignID string, at time.Time) (bool, error) {
	const q = `
INSERT INTO campaign_attributions (user_id, campaign_id, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO NOTHING`
	return r.insert(ctx, "campaign attribution", q, userID, campaignID, at)
}

func (r *AttributionRepository) insert(ctx context.Context, what, q string, args ...interface{}) (bool, error) {
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		// A concurrent insert that lost the race on the unique index.
		if isPQCode(err, pqUniqueViolation) {
			return false, nil
		}
		if isPQCode(err, pqForeignKeyViolation) {
			return false, user.ErrNotFound
		}
		return false, fmt.Errorf("failed to insert %s: %w", what, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n == 1, nil
}
