package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/common/cache"
	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
	rplatform "loyalty-points-backend/internal/platform/redis"
	"loyalty-points-backend/internal/repository/memory"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/service/leaderboard"
)

// 2025-03-10 06:00 UTC is 11:30 on 2025-03-10 in Asia/Kolkata.
var fixedNow = time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	writer *ledgersvc.Writer
	svc    *Service
	now    time.Time
}

func newFixture(t *testing.T, c Cache) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), now: fixedNow}
	cal := ledger.MustCalendar("Asia/Kolkata")
	clock := func() time.Time { return f.now }
	f.writer = ledgersvc.NewWriter(f.store, cal, nil).WithClock(clock)
	boards := leaderboard.NewService(f.store, nil, cal).WithClock(clock)
	f.svc = NewService(f.store, boards, f.store, c, time.Minute, cal).WithClock(clock)
	return f
}

func (f *fixture) sync(t *testing.T, id int64, name string, at time.Time) {
	t.Helper()
	_, err := f.store.Sync(context.Background(), user.Identity{ID: id, FirstName: name}, at)
	require.NoError(t, err)
}

func (f *fixture) award(t *testing.T, id, amount int64, reason ledger.Reason, meta ledger.Metadata) {
	t.Helper()
	_, err := f.writer.AwardPoints(context.Background(), id, amount, reason, meta)
	require.NoError(t, err)
}

func TestOverviewAndFunnel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	funnel, err := f.svc.Funnel(ctx)
	require.NoError(t, err)
	assert.Equal(t, ConversionRates{ToChannel: "0.0", ToWallet: "0.0"}, funnel.ConversionRates)

	for id := int64(1); id <= 4; id++ {
		f.sync(t, id, "u", fixedNow)
	}
	require.NoError(t, f.store.SetChannelJoined(ctx, 1))
	require.NoError(t, f.store.SetChannelJoined(ctx, 2))
	require.NoError(t, f.store.SetChannelJoined(ctx, 3))
	require.NoError(t, f.store.SetWalletConnected(ctx, 1, "EQ-wallet"))
	_, err = f.store.InsertReferral(ctx, 1, 2, fixedNow)
	require.NoError(t, err)

	f.award(t, 1, 1000, ledger.ReasonWelcomeBonus, nil)
	f.award(t, 2, 500, ledger.ReasonReferral, ledger.ReferralMeta{RefereeID: 3})
	f.award(t, 1, -200, ledger.ReasonAdminAdjustment, nil)

	overview, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, Overview{
		TotalUsers:             4,
		WalletsConnected:       1,
		WalletConversionRate:   "25.0",
		TotalPointsDistributed: 1500,
		TotalReferrals:         1,
	}, *overview)

	funnel, err = f.svc.Funnel(ctx)
	require.NoError(t, err)
	assert.Equal(t, []FunnelStage{
		{Name: "Total Users", Value: 4},
		{Name: "Channel Joined", Value: 3},
		{Name: "Wallet Connected", Value: 1},
	}, funnel.Stages)
	assert.Equal(t, ConversionRates{ToChannel: "75.0", ToWallet: "33.3"}, funnel.ConversionRates)
}

func TestPointsAndFeatures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sync(t, 1, "a", fixedNow)
	f.sync(t, 2, "b", fixedNow)

	f.award(t, 1, 1000, ledger.ReasonWelcomeBonus, nil)
	f.award(t, 2, 1000, ledger.ReasonWelcomeBonus, nil)
	f.award(t, 1, 50, ledger.ReasonDailySpin, ledger.DailySpinMeta{PrizeLabel: "50"})
	f.award(t, 1, 5, ledger.ReasonDailySpin, ledger.DailySpinMeta{PrizeLabel: "5"})
	f.award(t, 1, 3000, ledger.ReasonAdminAdjustment, nil)

	economy, err := f.svc.Points(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, economy.Breakdown, 3)
	assert.Equal(t, PointsBreakdown{Reason: "admin_adjustment", Distributed: 3000, Transactions: 1}, economy.Breakdown[0])
	assert.Equal(t, PointsBreakdown{Reason: "welcome_bonus", Distributed: 2000, Transactions: 2}, economy.Breakdown[1])
	assert.Equal(t, PointsTotals{Distributed: 5055, Transactions: 5}, economy.Totals)

	from, to := fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour)
	economy, err = f.svc.Points(ctx, &from, &to)
	require.NoError(t, err)
	assert.Empty(t, economy.Breakdown)

	features, err := f.svc.Features(ctx)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, FeatureUsage{Feature: "Welcome Bonus", Users: 2, Transactions: 2}, features[0])
}

func TestEngagementZeroFilled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sync(t, 1, "a", fixedNow.Add(-48*time.Hour))

	f.now = fixedNow.Add(-48 * time.Hour)
	f.award(t, 1, 10, ledger.ReasonAdminAdjustment, nil)
	f.now = fixedNow
	f.award(t, 1, 10, ledger.ReasonAdminAdjustment, nil)
	f.award(t, 1, 10, ledger.ReasonAdminAdjustment, nil)

	days, err := f.svc.Engagement(ctx)
	require.NoError(t, err)
	require.Len(t, days, 90)
	assert.Equal(t, DailyActivity{Date: "2025-03-10", Count: 2}, days[89])
	assert.Equal(t, DailyActivity{Date: "2025-03-09", Count: 0}, days[88])
	assert.Equal(t, DailyActivity{Date: "2025-03-08", Count: 1}, days[87])
	assert.Equal(t, "2024-12-11", days[0].Date)
}

func TestUserGrowth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sync(t, 1, "a", fixedNow.AddDate(0, 0, -10))
	f.sync(t, 2, "b", fixedNow.AddDate(0, 0, -2))
	f.sync(t, 3, "c", fixedNow.AddDate(0, 0, -2))
	f.sync(t, 4, "d", fixedNow)

	growth, err := f.svc.UserGrowth(ctx, 3, "", "")
	require.NoError(t, err)
	assert.Equal(t, []DailyUsers{
		{Date: "2025-03-08", Total: 2, Cumulative: 3},
		{Date: "2025-03-09", Total: 0, Cumulative: 3},
		{Date: "2025-03-10", Total: 1, Cumulative: 4},
	}, growth)

	growth, err = f.svc.UserGrowth(ctx, 0, "2025-02-28", "2025-03-01")
	require.NoError(t, err)
	require.Len(t, growth, 2)
	assert.Equal(t, int64(1), growth[1].Cumulative)

	defaulted, err := f.svc.UserGrowth(ctx, 0, "", "")
	require.NoError(t, err)
	assert.Len(t, defaulted, 30)

	_, err = f.svc.UserGrowth(ctx, 0, "2025-03-05", "2025-03-01")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestAdminLeaderboards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sync(t, 1, "", fixedNow)
	f.sync(t, 2, "bob", fixedNow)
	require.NoError(t, f.store.SetWalletConnected(ctx, 2, "EQ-bob"))

	f.award(t, 1, 100, ledger.ReasonAdminAdjustment, nil)
	f.award(t, 2, 300, ledger.ReasonAdminAdjustment, nil)

	boards, err := f.svc.Leaderboards(ctx)
	require.NoError(t, err)
	require.Len(t, boards.Overall, 2)
	assert.Equal(t, LeaderboardRow{Rank: 1, UserID: 2, FirstName: "bob", WalletAddress: "EQ-bob", Points: 300}, boards.Overall[0])
	assert.Equal(t, "Unknown", boards.Overall[1].FirstName)
	assert.Len(t, boards.Weekly, 2)
	assert.Len(t, boards.Daily, 2)
	assert.True(t, boards.GeneratedAt.Equal(fixedNow))
}

func TestNudges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sync(t, 1, "stale", fixedNow.Add(-72*time.Hour))
	f.sync(t, 2, "fresh", fixedNow.Add(-time.Hour))

	list, err := f.svc.NudgeCandidates(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ID)

	require.NoError(t, f.svc.MarkNotified(ctx, 1))
	list, err = f.svc.NudgeCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	f.now = fixedNow.Add(49 * time.Hour)
	list, err = f.svc.NudgeCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, f.svc.OptOut(ctx, 2))
	list, err = f.svc.NudgeCandidates(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	err = f.svc.OptOut(ctx, 404)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestOverviewIsCached(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := &rplatform.Client{Client: goredis.NewClient(&goredis.Options{Addr: mr.Addr()})}
	f := newFixture(t, cache.NewCacheService(client, time.Minute))

	f.sync(t, 1, "a", fixedNow)
	first, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalUsers)
	assert.True(t, mr.Exists("analytics:overview"))

	f.sync(t, 2, "b", fixedNow)
	cached, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cached.TotalUsers)

	mr.FastForward(2 * time.Minute)
	fresh, err := f.svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fresh.TotalUsers)
}
