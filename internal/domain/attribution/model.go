package attribution

import "time"

// Referral records a successful recruitment. A referee can be referred once.
type Referral struct {
	ID         int64     `json:"id" db:"id"`
	ReferrerID int64     `json:"referrer_id" db:"referrer_id"`
	RefereeID  int64     `json:"referee_id" db:"referee_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// CampaignAttribution records the campaign that first brought a user in.
type CampaignAttribution struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"user_id" db:"user_id"`
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ReferrerCount is one row of the referrer fold.
type ReferrerCount struct {
	ReferrerID int64  `json:"referrer_id" db:"referrer_id"`
	Name       string `json:"referrer_name" db:"referrer_name"`
	Count      int    `json:"count" db:"referrals"`
}

// CampaignCount is one row of the campaign fold.
type CampaignCount struct {
	CampaignID string    `json:"campaign_id" db:"campaign_id"`
	Users      int       `json:"users" db:"users"`
	First      time.Time `json:"first_attribution" db:"first_attribution"`
	Last       time.Time `json:"last_attribution" db:"last_attribution"`
}
