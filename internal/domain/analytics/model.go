package analytics

// ProfileCounts are the profile totals behind the overview and funnel.
type ProfileCounts struct {
	Total           int64 `db:"total"`
	WalletConnected int64 `db:"wallet_connected"`
	ChannelJoined   int64 `db:"channel_joined"`
}

// ReasonTotal sums positive amounts for one reason.
type ReasonTotal struct {
	Reason       string `db:"reason"`
	Distributed  int64  `db:"distributed"`
	Transactions int64  `db:"transactions"`
}

// ReasonUsage counts distinct users and transactions for one reason.
type ReasonUsage struct {
	Reason       string `db:"reason"`
	Users        int64  `db:"users"`
	Transactions int64  `db:"transactions"`
}

// DayCount is a per-day count keyed by YYYY-MM-DD in the reference zone.
type DayCount struct {
	Day   string `db:"day"`
	Count int64  `db:"count"`
}
