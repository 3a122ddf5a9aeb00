package user

import "time"

// Profile is the per-user aggregate mirrored from the Telegram identity.
// ID is the Telegram user ID. TotalPoints is owned by the ledger; the flags
// are owned by the feature flows.
type Profile struct {
	ID                int64      `json:"id"`
	Username          string     `json:"username,omitempty"`
	FirstName         string     `json:"first_name,omitempty"`
	LastName          string     `json:"last_name,omitempty"`
	TotalPoints       int64      `json:"total_points"`
	PointsUpdatedAt   *time.Time `json:"points_updated_at,omitempty"`
	IsWalletConnected bool       `json:"is_wallet_connected"`
	WalletAddress     string     `json:"wallet_address,omitempty"`
	HasJoinedChannel  bool       `json:"has_joined_channel"`
	IsPushEnabled     bool       `json:"is_push_enabled"`
	LastActiveAt      *time.Time `json:"last_active_at,omitempty"`
	LastSpinAt        *time.Time `json:"last_spin_at,omitempty"`
	LastNotifiedAt    *time.Time `json:"last_notified_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}

// Identity is the subset of Telegram user fields synced into a Profile.
type Identity struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

// Lifecycle carries the timestamps used by retention analysis.
type Lifecycle struct {
	CreatedAt    time.Time  `db:"created_at"`
	LastActiveAt *time.Time `db:"last_active_at"`
}

// NudgeCandidate is a stale user eligible for a re-engagement message.
type NudgeCandidate struct {
	ID           int64      `json:"telegram_id" db:"user_id"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastActiveAt *time.Time `json:"last_active_at,omitempty" db:"last_active_at"`
}
