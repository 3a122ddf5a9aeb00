package ledger

import (
	"context"
	"errors"
)

var (
	ErrUnknownUser     = errors.New("unknown user")
	ErrUnknownReason   = errors.New("unknown reason")
	ErrInvalidMetadata = errors.New("invalid metadata")
)

// Store is the transactional boundary of the ledger.
type Store interface {
	// ApplyAward inserts the transaction, increments the profile total and
	// upserts the daily and weekly buckets atomically. When the entry carries
	// an idempotency key that already exists nothing is written and Applied
	// is false. Unknown users yield ErrUnknownUser.
	ApplyAward(ctx context.Context, e Entry) (AwardResult, error)
}

// StandingsReader returns ordered leaderboard sources.
//
// Ordering is points descending, then the time the current score was reached
// ascending, then user id ascending.
type StandingsReader interface {
	AllTimeStandings(ctx context.Context) ([]Standing, error)
	BucketStandings(ctx context.Context, period PeriodType, key string) ([]Standing, error)
}

// TransactionReader exposes the immutable log.
type TransactionReader interface {
	ListTransactions(ctx context.Context, userID int64, limit int) ([]Transaction, error)
}
