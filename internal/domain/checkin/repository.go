package checkin

import (
	"context"
	"time"
)

// Repository stores daily check-ins keyed by (user, date).
type Repository interface {
	// Insert creates the record for date, deriving the streak from
	// previousDate inside the same statement. It returns false when a record
	// for date already exists.
	Insert(ctx context.Context, userID int64, date, previousDate string, at time.Time) (*Record, bool, error)
	Get(ctx context.Context, userID int64, date string) (*Record, error)
}
