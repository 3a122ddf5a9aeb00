package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	domain "loyalty-points-backend/internal/domain/analytics"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
)

const (
	engagementDays     = 90
	defaultGrowthDays  = 30
	maxGrowthDays      = 366
	leaderboardTop     = 10
	defaultNudgeLimit  = 20
	maxNudgeLimit      = 200
	nudgeInactiveAfter = 24 * time.Hour
	nudgeCooldown      = 48 * time.Hour
	unknownName        = "Unknown"
	cachePrefix        = "analytics:"
)

// Cache is the JSON response cache. A disabled backend always misses.
type Cache interface {
	GetOrSet(ctx context.Context, key string, dest interface{}, ttl time.Duration, setter func() (interface{}, error)) error
}

// Leaderboards returns the top n standings of a period.
type Leaderboards interface {
	Top(ctx context.Context, period ledger.PeriodType, n int) ([]ledger.Standing, error)
}

type Service struct {
	reader domain.Reader
	boards Leaderboards
	nudges user.NudgeRepository
	cache  Cache
	ttl    time.Duration
	cal    *ledger.Calendar
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(reader domain.Reader, boards Leaderboards, nudges user.NudgeRepository, cache Cache, ttl time.Duration, cal *ledger.Calendar) *Service {
	return &Service{
		reader: reader,
		boards: boards,
		nudges: nudges,
		cache:  cache,
		ttl:    ttl,
		cal:    cal,
		now:    time.Now,
		log:    logger.With("analytics"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) cached(ctx context.Context, key string, dest interface{}, compute func() (interface{}, error)) error {
	if s.cache == nil {
		v, err := compute()
		if err != nil {
			return err
		}
		return assign(dest, v)
	}
	return s.cache.GetOrSet(ctx, cachePrefix+key, dest, s.ttl, compute)
}

type Overview struct {
	TotalUsers             int64  `json:"totalUsers"`
	WalletsConnected       int64  `json:"walletsConnected"`
	WalletConversionRate   string `json:"walletConversionRate"`
	TotalPointsDistributed int64  `json:"totalPointsDistributed"`
	TotalReferrals         int64  `json:"totalReferrals"`
}

func (s *Service) Overview(ctx context.Context) (*Overview, error) {
	var out Overview
	err := s.cached(ctx, "overview", &out, func() (interface{}, error) {
		counts, err := s.reader.ProfileCounts(ctx)
		if err != nil {
			return nil, apperrors.NewDatabaseError("profile counts", err)
		}
		points, err := s.reader.PointsDistributed(ctx)
		if err != nil {
			return nil, apperrors.NewDatabaseError("points distributed", err)
		}
		referrals, err := s.reader.ReferralCount(ctx)
		if err != nil {
			return nil, apperrors.NewDatabaseError("referral count", err)
		}
		return &Overview{
			TotalUsers:             counts.Total,
			WalletsConnected:       counts.WalletConnected,
			WalletConversionRate:   domain.Percent(counts.WalletConnected, counts.Total),
			TotalPointsDistributed: points,
			TotalReferrals:         referrals,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type PointsBreakdown struct {
	Reason       string `json:"reason"`
	Distributed  int64  `json:"distributed"`
	Transactions int64  `json:"transactions"`
}

type PointsTotals struct {
	Distributed  int64 `json:"distributed"`
	Transactions int64 `json:"transactions"`
}

type PointsEconomy struct {
	Breakdown []PointsBreakdown `json:"breakdown"`
	Totals    PointsTotals      `json:"totals"`
}

// Points breaks down positive awards by reason, optionally within [from, to].
func (s *Service) Points(ctx context.Context, from, to *time.Time) (*PointsEconomy, error) {
	key := "points:all"
	if from != nil && to != nil {
		key = fmt.Sprintf("points:%d:%d", from.Unix(), to.Unix())
	}

	var out PointsEconomy
	err := s.cached(ctx, key, &out, func() (interface{}, error) {
		rows, err := s.reader.PointsByReason(ctx, from, to)
		if err != nil {
			return nil, apperrors.NewDatabaseError("points by reason", err)
		}
		economy := &PointsEconomy{Breakdown: make([]PointsBreakdown, 0, len(rows))}
		for _, r := range rows {
			economy.Breakdown = append(economy.Breakdown, PointsBreakdown(r))
			economy.Totals.Distributed += r.Distributed
			economy.Totals.Transactions += r.Transactions
		}
		sort.SliceStable(economy.Breakdown, func(i, j int) bool {
			return economy.Breakdown[i].Distributed > economy.Breakdown[j].Distributed
		})
		return economy, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type FunnelStage struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

type ConversionRates struct {
	ToChannel string `json:"toChannel"`
	ToWallet  string `json:"toWallet"`
}

type Funnel struct {
	Stages          []FunnelStage   `json:"stages"`
	ConversionRates ConversionRates `json:"conversionRates"`
}

// Funnel reports total users, then channel members, then connected wallets.
func (s *Service) Funnel(ctx context.Context) (*Funnel, error) {
	var out Funnel
	err := s.cached(ctx, "funnel", &out, func() (interface{}, error) {
		c, err := s.reader.ProfileCounts(ctx)
		if err != nil {
			return nil, apperrors.NewDatabaseError("profile counts", err)
		}
		return &Funnel{
			Stages: []FunnelStage{
				{Name: "Total Users", Value: c.Total},
				{Name: "Channel Joined", Value: c.ChannelJoined},
				{Name: "Wallet Connected", Value: c.WalletConnected},
			},
			ConversionRates: ConversionRates{
				ToChannel: domain.Percent(c.ChannelJoined, c.Total),
				ToWallet:  domain.Percent(c.WalletConnected, c.ChannelJoined),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type FeatureUsage struct {
	Feature      string `json:"feature"`
	Users        int64  `json:"users"`
	Transactions int64  `json:"transactions"`
}

// Features counts distinct users and transactions per reason label.
func (s *Service) Features(ctx context.Context) ([]FeatureUsage, error) {
	var out []FeatureUsage
	err := s.cached(ctx, "features", &out, func() (interface{}, error) {
		rows, err := s.reader.ReasonUsage(ctx)
		if err != nil {
			return nil, apperrors.NewDatabaseError("reason usage", err)
		}
		usage := make([]FeatureUsage, 0, len(rows))
		for _, r := range rows {
			usage = append(usage, FeatureUsage{Feature: ledger.LabelFor(r.Reason), Users: r.Users, Transactions: r.Transactions})
		}
		sort.SliceStable(usage, func(i, j int) bool { return usage[i].Users > usage[j].Users })
		return usage, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type DailyActivity struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// Engagement returns transaction counts for the last 90 reference days,
// today included, with empty days filled in.
func (s *Service) Engagement(ctx context.Context) ([]DailyActivity, error) {
	now := s.now()
	first, err := s.cal.ParseDay(s.cal.DaysAgo(now, engagementDays-1))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to compute range")
	}
	end := s.cal.StartOfDay(now).AddDate(0, 0, 1)

	var out []DailyActivity
	err = s.cached(ctx, "engagement:"+s.cal.DayKey(now), &out, func() (interface{}, error) {
		rows, err := s.reader.TransactionsPerDay(ctx, first, end, s.cal.Location().String())
		if err != nil {
			return nil, apperrors.NewDatabaseError("transactions per day", err)
		}
		counts := byDay(rows)
		days := make([]DailyActivity, 0, engagementDays)
		for _, day := range s.days(first, end) {
			days = append(days, DailyActivity{Date: day, Count: counts[day]})
		}
		return days, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type DailyUsers struct {
	Date       string `json:"date"`
	Total      int64  `json:"total"`
	Cumulative int64  `json:"cumulative"`
}

// UserGrowth returns daily signups and the running total of users. The range
// is [from, to] when both are given, otherwise the last days reference days.
func (s *Service) UserGrowth(ctx context.Context, days int, from, to string) ([]DailyUsers, error) {
	start, end, err := s.growthRange(days, from, to)
	if err != nil {
		return nil, err
	}

	var out []DailyUsers
	key := fmt.Sprintf("users:%s:%s", s.cal.DayKey(start), s.cal.DayKey(end.Add(-time.Nanosecond)))
	err = s.cached(ctx, key, &out, func() (interface{}, error) {
		before, err := s.reader.SignupsBefore(ctx, start)
		if err != nil {
			return nil, apperrors.NewDatabaseError("signups before", err)
		}
		rows, err := s.reader.SignupsPerDay(ctx, start, end, s.cal.Location().String())
		if err != nil {
			return nil, apperrors.NewDatabaseError("signups per day", err)
		}
		counts := byDay(rows)
		cumulative := before
		growth := []DailyUsers{}
		for _, day := range s.days(start, end) {
			cumulative += counts[day]
			growth = append(growth, DailyUsers{Date: day, Total: counts[day], Cumulative: cumulative})
		}
		return growth, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) growthRange(days int, from, to string) (time.Time, time.Time, error) {
	if from != "" && to != "" {
		start, err := s.cal.ParseDay(from)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("from", "must be YYYY-MM-DD")
		}
		last, err := s.cal.ParseDay(to)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("to", "must be YYYY-MM-DD")
		}
		if last.Before(start) {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("to", "must not be before from")
		}
		if last.Sub(start) > maxGrowthDays*24*time.Hour {
			return time.Time{}, time.Time{}, apperrors.NewValidationError("from", "range is too long")
		}
		return start, last.AddDate(0, 0, 1), nil
	}

	if days <= 0 {
		days = defaultGrowthDays
	}
	if days > maxGrowthDays {
		return time.Time{}, time.Time{}, apperrors.NewValidationError("days", fmt.Sprintf("cannot exceed %d", maxGrowthDays))
	}
	now := s.now()
	start, err := s.cal.ParseDay(s.cal.DaysAgo(now, days-1))
	if err != nil {
		return time.Time{}, time.Time{}, apperrors.Wrap(err, apperrors.ErrCodeInternal, "Failed to compute range")
	}
	return start, s.cal.StartOfDay(now).AddDate(0, 0, 1), nil
}

// days lists the reference day keys in [start, end).
func (s *Service) days(start, end time.Time) []string {
	var out []string
	for d := start; d.Before(end); d = d.AddDate(0, 0, 1) {
		out = append(out, s.cal.DayKey(d))
	}
	return out
}

func byDay(rows []domain.DayCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.Day] += r.Count
	}
	return m
}

type LeaderboardRow struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"telegram_id"`
	FirstName     string `json:"first_name"`
	Username      string `json:"username,omitempty"`
	WalletAddress string `json:"wallet_address,omitempty"`
	Points        int64  `json:"points"`
}

type AdminLeaderboards struct {
	Overall     []LeaderboardRow `json:"overall"`
	Weekly      []LeaderboardRow `json:"weekly"`
	Daily       []LeaderboardRow `json:"daily"`
	GeneratedAt time.Time        `json:"generated_at"`
}

// Leaderboards returns the top ten of every period with wallet addresses.
func (s *Service) Leaderboards(ctx context.Context) (*AdminLeaderboards, error) {
	out := &AdminLeaderboards{GeneratedAt: s.now()}
	for _, target := range []struct {
		period ledger.PeriodType
		rows   *[]LeaderboardRow
	}{
		{ledger.PeriodAllTime, &out.Overall},
		{ledger.PeriodWeekly, &out.Weekly},
		{ledger.PeriodDaily, &out.Daily},
	} {
		top, err := s.boards.Top(ctx, target.period, leaderboardTop)
		if err != nil {
			return nil, err
		}
		rows := make([]LeaderboardRow, 0, len(top))
		for i, st := range top {
			name := st.FirstName
			if name == "" {
				name = unknownName
			}
			rows = append(rows, LeaderboardRow{
				Rank:          i + 1,
				UserID:        st.UserID,
				FirstName:     name,
				Username:      st.Username,
				WalletAddress: st.Wallet,
				Points:        st.Points,
			})
		}
		*target.rows = rows
	}
	return out, nil
}

// NudgeCandidates lists push-enabled users inactive for a day who have not
// been nudged in the last two days.
func (s *Service) NudgeCandidates(ctx context.Context, limit int) ([]user.NudgeCandidate, error) {
	if limit <= 0 {
		limit = defaultNudgeLimit
	}
	if limit > maxNudgeLimit {
		limit = maxNudgeLimit
	}
	now := s.now()
	list, err := s.nudges.NudgeCandidates(ctx, now.Add(-nudgeInactiveAfter), now.Add(-nudgeCooldown), limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("nudge candidates", err)
	}
	if list == nil {
		list = []user.NudgeCandidate{}
	}
	return list, nil
}

func (s *Service) MarkNotified(ctx context.Context, userID int64) error {
	return s.nudgeUpdate(userID, "mark notified", s.nudges.MarkNotified(ctx, userID, s.now()))
}

// OptOut disables pushes for a user who blocked the bot.
func (s *Service) OptOut(ctx context.Context, userID int64) error {
	return s.nudgeUpdate(userID, "disable push", s.nudges.DisablePush(ctx, userID))
}

func (s *Service) nudgeUpdate(userID int64, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, user.ErrNotFound) {
		return apperrors.NewNotFoundError("profile", userID)
	}
	return apperrors.NewDatabaseError(op, err)
}
