package checkin

import "time"

// Record is one daily check-in. Streak is the previous day's streak plus one,
// or 1 when the previous day has no record.
type Record struct {
	UserID    int64     `json:"user_id"`
	LoginDate string    `json:"login_date"`
	Streak    int       `json:"streak_count"`
	CreatedAt time.Time `json:"created_at"`
}
