package rewards

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
	"loyalty-points-backend/internal/platform/telegram"
	"loyalty-points-backend/internal/repository/memory"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
)

// 2025-01-06 20:00 UTC is 2025-01-07 in Asia/Kolkata.
var fixedNow = time.Date(2025, 1, 6, 20, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memory.Store
	writer *ledgersvc.Writer
	queue  *fakeQueue
	svc    *Service
	now    time.Time
}

func newFixture(t *testing.T, users ...int64) *fixture {
	t.Helper()
	f := &fixture{store: memory.NewStore(), queue: &fakeQueue{}, now: fixedNow}
	f.writer = ledgersvc.NewWriter(f.store, ledger.MustCalendar("Asia/Kolkata"), nil).
		WithClock(func() time.Time { return f.now })
	f.svc = NewService(f.writer, f.store, f.store.Checkins(), NewReconciler(f.writer, f.queue), Config{
		Welcome:   1000,
		Wallet:    1000,
		Channel:   500,
		ChannelID: "@loyalty",
	})
	for _, id := range users {
		_, err := f.store.Sync(context.Background(), user.Identity{ID: id, FirstName: "u"}, fixedNow.Add(-time.Hour))
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) total(t *testing.T, id int64) int64 {
	t.Helper()
	p, err := f.store.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.TotalPoints
}

type fakeQueue struct {
	items []ledger.PendingReward
	err   error
}

func (q *fakeQueue) Enqueue(_ context.Context, p ledger.PendingReward) error {
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, p)
	return nil
}

type failingAwarder struct{ err error }

func (a failingAwarder) AwardOnce(context.Context, string, int64, int64, ledger.Reason, ledger.Metadata) (ledgersvc.Result, error) {
	return ledgersvc.Result{}, a.err
}

type fixedRand int

func (r fixedRand) Intn(int) int { return int(r) }

func TestWelcomeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	first, err := f.svc.Welcome(ctx, 1)
	require.NoError(t, err)
	assert.True(t, first.Awarded)
	assert.False(t, first.AlreadyCompleted)
	assert.Equal(t, int64(1000), first.Total)

	second, err := f.svc.Welcome(ctx, 1)
	require.NoError(t, err)
	assert.True(t, second.AlreadyCompleted)
	assert.Equal(t, int64(1000), second.Total)
	assert.Equal(t, int64(1000), f.total(t, 1))
}

func TestWelcomeUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Welcome(context.Background(), 42)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownUser))
}

func TestDailyLoginStreak(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	status, err := f.svc.DailyLoginStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DailyLoginStatus{}, status)

	day1, err := f.svc.DailyLogin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, day1.Streak)
	assert.Equal(t, int64(110), day1.PointsEarned)
	assert.Equal(t, int64(110), day1.TotalPoints)

	again, err := f.svc.DailyLogin(ctx, 1)
	require.NoError(t, err)
	assert.True(t, again.AlreadyClaimed)
	assert.Equal(t, 1, again.Streak)
	assert.Equal(t, int64(110), f.total(t, 1))

	status, err = f.svc.DailyLoginStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DailyLoginStatus{ClaimedToday: true, Streak: 1}, status)

	f.now = f.now.Add(24 * time.Hour)
	status, err = f.svc.DailyLoginStatus(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, DailyLoginStatus{ClaimedToday: false, Streak: 1}, status)

	day2, err := f.svc.DailyLogin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, day2.Streak)
	assert.Equal(t, int64(120), day2.PointsEarned)
	assert.Equal(t, int64(230), f.total(t, 1))

	f.now = f.now.Add(72 * time.Hour)
	reset, err := f.svc.DailyLogin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, reset.Streak)
}

func TestDailyLoginRewardFailureIsDeferred(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.svc.reconciler = NewReconciler(failingAwarder{err: apperrors.NewTransactionError("apply award", errors.New("db down"))}, f.queue)

	res, err := f.svc.DailyLogin(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Deferred)
	assert.Equal(t, 1, res.Streak)
	assert.Zero(t, res.PointsEarned)

	require.Len(t, f.queue.items, 1)
	p := f.queue.items[0]
	assert.Equal(t, ledgersvc.DailyLoginKey(1, "2025-01-07"), p.Key)
	assert.Equal(t, int64(110), p.Amount)
	assert.Equal(t, ledger.ReasonDailyLogin, p.Reason)
	assert.Contains(t, p.LastError, "db down")

	// The check-in stays recorded.
	rec, err := f.store.GetCheckin(ctx, 1, "2025-01-07")
	require.NoError(t, err)
	require.NotNil(t, rec)
}

func TestDailyLoginUnknownUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.DailyLogin(context.Background(), 9)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnknownUser))
}

func TestSpinOncePerDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.svc.WithRandom(fixedRand(99))

	res, err := f.svc.Spin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "1K", res.Prize.Label)
	assert.Equal(t, int64(1000), res.TotalPoints)

	p, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, p.LastSpinAt)
	assert.True(t, p.LastSpinAt.Equal(fixedNow))

	_, err = f.svc.Spin(ctx, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeAlreadyClaimed))
	assert.Equal(t, int64(1000), f.total(t, 1))

	f.now = f.now.Add(24 * time.Hour)
	f.svc.WithRandom(fixedRand(0))
	res, err = f.svc.Spin(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "5", res.Prize.Label)
	assert.Equal(t, int64(1005), res.TotalPoints)
}

func TestPick(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "5"},
		{29, "5"},
		{30, "50"},
		{54, "50"},
		{55, "100"},
		{75, "200"},
		{85, "500"},
		{90, "1K"},
		{99, "1K"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Pick(Wheel, fixedRand(tt.n)).Label, "n=%d", tt.n)
	}
}

type fakeChat struct {
	status string
	err    error
	calls  int
}

func (c *fakeChat) GetChatMember(_ context.Context, _ string, userID int64) (*telegram.ChatMember, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	m := &telegram.ChatMember{Status: c.status}
	m.User.ID = userID
	return m, nil
}

func TestVerifyChannel(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	chat := &fakeChat{status: "left"}
	f.svc.WithChatMembers(chat)

	res, err := f.svc.VerifyChannel(ctx, 1)
	require.NoError(t, err)
	assert.False(t, res.Joined)
	assert.Nil(t, res.ClaimResult)
	assert.Zero(t, f.total(t, 1))

	chat.status = "member"
	res, err = f.svc.VerifyChannel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.Joined)
	require.NotNil(t, res.ClaimResult)
	assert.True(t, res.Awarded)
	assert.Equal(t, int64(500), res.Total)

	res, err = f.svc.VerifyChannel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Equal(t, int64(500), f.total(t, 1))

	p, err := f.store.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.True(t, p.HasJoinedChannel)
}

func TestVerifyChannelTelegramErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)

	f.svc.WithChatMembers(&fakeChat{err: &telegram.RPSError{Msg: "too many requests", RetryAfter: 3 * time.Second}})
	_, err := f.svc.VerifyChannel(ctx, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeRateLimit))

	f.svc.WithChatMembers(&fakeChat{err: &telegram.APIError{Code: 400, Description: "chat not found"}})
	_, err = f.svc.VerifyChannel(ctx, 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeTelegramAPI))
}

func TestVerifyChannelNotConfigured(t *testing.T) {
	f := newFixture(t, 1)
	_, err := f.svc.VerifyChannel(context.Background(), 1)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeBadRequest))
}
