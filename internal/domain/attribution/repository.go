package attribution

import (
	"context"
	"time"
)

// Repository stores attribution anchors. Insert methods return false when
// the uniqueness constraint already holds a row for the attributed user.
type Repository interface {
	InsertReferral(ctx context.Context, referrerID, refereeID int64, at time.Time) (bool, error)
	InsertCampaignAttribution(ctx context.Context, userID int64, campaignID string, at time.Time) (bool, error)
}

// StatsReader folds attribution tables for reporting.
type StatsReader interface {
	ReferrerCounts(ctx context.Context) ([]ReferrerCount, error)
	CampaignCounts(ctx context.Context, from, to *time.Time) ([]CampaignCount, error)
}
