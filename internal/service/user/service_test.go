package user

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/domain/ledger"
	domain "loyalty-points-backend/internal/domain/user"
	"loyalty-points-backend/internal/repository/memory"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
)

func newService() *Service {
	store := memory.NewStore()
	return NewService(store, store)
}

func TestSyncCreatesThenRefreshes(t *testing.T) {
	ctx := context.Background()
	signup := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	now := signup
	svc := newService().WithClock(func() time.Time { return now })

	p, err := svc.Sync(ctx, domain.Identity{ID: 42, Username: "alice", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, signup, p.CreatedAt)

	now = signup.Add(3 * time.Hour)
	p, err = svc.Sync(ctx, domain.Identity{ID: 42, Username: "alice2", FirstName: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, signup, p.CreatedAt, "signup must not move")
	assert.Equal(t, "alice2", p.Username)
	require.NotNil(t, p.LastActiveAt)
	assert.Equal(t, now, *p.LastActiveAt)
}

func TestSyncRejectsInvalidID(t *testing.T) {
	svc := newService()
	_, err := svc.Sync(context.Background(), domain.Identity{ID: 0})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeValidation))
}

func TestMeNotFound(t *testing.T) {
	svc := newService()
	_, err := svc.Me(context.Background(), 7)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeNotFound))
}

func TestHistoryNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewService(store, store)
	_, err := svc.Sync(ctx, domain.Identity{ID: 3})
	require.NoError(t, err)

	writer := ledgersvc.NewWriter(store, ledger.MustCalendar("UTC"), nil)
	_, err = writer.AwardPoints(ctx, 3, 1000, ledger.ReasonWelcomeBonus, nil)
	require.NoError(t, err)
	_, err = writer.AwardPoints(ctx, 3, 50, ledger.ReasonDailySpin, ledger.DailySpinMeta{PrizeLabel: "50"})
	require.NoError(t, err)

	txs, err := svc.History(ctx, 3, 0)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, ledger.ReasonDailySpin, txs[0].Reason)
	assert.Equal(t, ledger.ReasonWelcomeBonus, txs[1].Reason)

	empty, err := svc.History(ctx, 99, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
