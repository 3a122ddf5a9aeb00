package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
)

func entry(userID, amount int64, key string, at time.Time) ledger.Entry {
	return ledger.Entry{
		Transaction: ledger.Transaction{
			ID: uuid.New(), UserID: userID, Amount: amount,
			Reason: ledger.ReasonAdminAdjustment, Metadata: ledger.AdminAdjustmentMeta{},
			IdempotencyKey: key, CreatedAt: at,
		},
		DailyKey:  "2025-01-06",
		WeeklyKey: "2025-W02",
	}
}

func TestApplyAwardUnknownUser(t *testing.T) {
	s := NewStore()
	_, err := s.ApplyAward(context.Background(), entry(1, 10, "", time.Now()))
	assert.ErrorIs(t, err, ledger.ErrUnknownUser)
}

func TestApplyAwardIdempotencyKey(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Now()
	_, err := s.Sync(ctx, user.Identity{ID: 1}, now)
	require.NoError(t, err)

	res, err := s.ApplyAward(ctx, entry(1, 10, "k", now))
	require.NoError(t, err)
	assert.True(t, res.Applied)

	res, err = s.ApplyAward(ctx, entry(1, 10, "k", now))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, int64(10), res.Total)

	b, ok := s.Bucket(1, ledger.PeriodDaily, "2025-01-06")
	require.True(t, ok)
	assert.Equal(t, int64(10), b.Points)

	txs, err := s.ListTransactions(ctx, 1, 0)
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestStandingsTieBreak(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	for _, id := range []int64{3, 2, 1} {
		_, err := s.Sync(ctx, user.Identity{ID: id}, base)
		require.NoError(t, err)
	}
	_, _ = s.ApplyAward(ctx, entry(3, 100, "", base.Add(time.Minute)))
	_, _ = s.ApplyAward(ctx, entry(2, 100, "", base.Add(2*time.Minute)))
	_, _ = s.ApplyAward(ctx, entry(1, 100, "", base.Add(2*time.Minute)))

	got, err := s.AllTimeStandings(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 1, 2}, []int64{got[0].UserID, got[1].UserID, got[2].UserID})

	weekly, err := s.BucketStandings(ctx, ledger.PeriodWeekly, "2025-W02")
	require.NoError(t, err)
	assert.Len(t, weekly, 3)
}

func TestCheckinStreak(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_, _ = s.Sync(ctx, user.Identity{ID: 5}, time.Now())
	repo := s.Checkins()

	rec, created, err := repo.Insert(ctx, 5, "2025-01-06", "2025-01-05", time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 1, rec.Streak)

	rec, created, err = repo.Insert(ctx, 5, "2025-01-07", "2025-01-06", time.Now())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 2, rec.Streak)

	_, created, err = repo.Insert(ctx, 5, "2025-01-07", "2025-01-06", time.Now())
	require.NoError(t, err)
	assert.False(t, created)

	missing, err := repo.Get(ctx, 5, "2025-01-01")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
