package ledger

import (
	"fmt"

	domain "loyalty-points-backend/internal/domain/ledger"
)

// Idempotency keys. Each one-time or once-per-period reward has exactly one
// key shape, and the unique index on transactions.idempotency_key enforces it.

// OneTimeKey is the key of a reward a user can receive once ever.
func OneTimeKey(reason domain.Reason, userID int64) string {
	return fmt.Sprintf("%s:%d", reason, userID)
}

func WelcomeKey(userID int64) string { return OneTimeKey(domain.ReasonWelcomeBonus, userID) }

func WalletKey(userID int64) string { return OneTimeKey(domain.ReasonWalletConnect, userID) }

func ChannelKey(userID int64) string { return OneTimeKey(domain.ReasonChannelJoin, userID) }

// ReferralKey is keyed by the referee, who can be referred once.
func ReferralKey(refereeID int64) string {
	return fmt.Sprintf("%s:%d", domain.ReasonReferral, refereeID)
}

func EducationKey(userID int64, moduleID string) string {
	return fmt.Sprintf("%s:%d:%s", domain.ReasonEducationComplete, userID, moduleID)
}

func DailyLoginKey(userID int64, date string) string {
	return fmt.Sprintf("%s:%d:%s", domain.ReasonDailyLogin, userID, date)
}

func DailySpinKey(userID int64, date string) string {
	return fmt.Sprintf("%s:%d:%s", domain.ReasonDailySpin, userID, date)
}
