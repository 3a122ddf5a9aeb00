package analytics

import (
	"context"
	"time"
)

// Reader aggregates the ledger and profiles for the admin dashboard. Day
// grouping happens in the named IANA zone.
type Reader interface {
	ProfileCounts(ctx context.Context) (ProfileCounts, error)
	PointsDistributed(ctx context.Context) (int64, error)
	ReferralCount(ctx context.Context) (int64, error)
	PointsByReason(ctx context.Context, from, to *time.Time) ([]ReasonTotal, error)
	ReasonUsage(ctx context.Context) ([]ReasonUsage, error)
	TransactionsPerDay(ctx context.Context, from, to time.Time, tz string) ([]DayCount, error)
	SignupsPerDay(ctx context.Context, from, to time.Time, tz string) ([]DayCount, error)
	SignupsBefore(ctx context.Context, t time.Time) (int64, error)
}
