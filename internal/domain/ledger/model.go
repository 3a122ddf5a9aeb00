package ledger

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is an immutable ledger event.
type Transaction struct {
	ID             uuid.UUID `json:"id"`
	UserID         int64     `json:"user_id"`
	Amount         int64     `json:"amount"`
	Reason         Reason    `json:"reason"`
	Metadata       Metadata  `json:"metadata"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Bucket is a per-user running total for one daily or weekly period.
type Bucket struct {
	UserID     int64      `json:"user_id"`
	PeriodType PeriodType `json:"period_type"`
	PeriodKey  string     `json:"period_key"`
	Points     int64      `json:"points"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Entry is a fully resolved award handed to the store. The store applies
// the transaction insert, the total increment and both bucket increments as
// one unit.
type Entry struct {
	Transaction
	DailyKey  string
	WeeklyKey string
}

// AwardResult is the outcome of applying an Entry.
type AwardResult struct {
	Total   int64
	Applied bool
}

// AwardEvent is published after an award commits.
type AwardEvent struct {
	ID        uuid.UUID `json:"id"`
	UserID    int64     `json:"user_id"`
	Amount    int64     `json:"amount"`
	Reason    Reason    `json:"reason"`
	Metadata  Metadata  `json:"metadata,omitempty"`
	Total     int64     `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

// Standing is one ranked row of a leaderboard source, already ordered.
type Standing struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Username  string    `json:"username,omitempty" db:"username"`
	FirstName string    `json:"first_name,omitempty" db:"first_name"`
	Wallet    string    `json:"wallet_address,omitempty" db:"wallet_address"`
	Points    int64     `json:"points" db:"points"`
	ReachedAt time.Time `json:"reached_at" db:"reached_at"`
}
