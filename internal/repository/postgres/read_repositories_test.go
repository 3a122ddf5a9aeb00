package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
)

func newSqlxMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "postgres"), mock
}

func TestBucketStandings(t *testing.T) {
	db, mock := newSqlxMock(t)
	now := time.Now()

	mock.ExpectQuery("FROM leaderboard_buckets b").
		WithArgs("weekly", "2025-W02").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "username", "first_name", "wallet_address", "points", "reached_at"}).
			AddRow(1, "a", "A", "", 300, now).
			AddRow(2, "b", "B", "EQx", 200, now))

	got, err := NewStandingsRepository(db).BucketStandings(context.Background(), ledger.PeriodWeekly, "2025-W02")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(300), got[0].Points)
	assert.Equal(t, "EQx", got[1].Wallet)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPointsByReasonWithRange(t *testing.T) {
	db, mock := newSqlxMock(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(48 * time.Hour)

	mock.ExpectQuery("created_at >= \\$1 AND created_at <= \\$2 GROUP BY reason").
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"reason", "distributed", "transactions"}).
			AddRow("referral", 1500, 3))

	got, err := NewAnalyticsRepository(db).PointsByReason(context.Background(), &from, &to)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1500), got[0].Distributed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProfileCounts(t *testing.T) {
	db, mock := newSqlxMock(t)
	mock.ExpectQuery("SELECT COUNT\\(\\*\\) AS total").
		WillReturnRows(sqlmock.NewRows([]string{"total", "wallet_connected", "channel_joined"}).AddRow(10, 3, 6))

	got, err := NewAnalyticsRepository(db).ProfileCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.Total)
	assert.Equal(t, int64(3), got.WalletConnected)
	assert.Equal(t, int64(6), got.ChannelJoined)
}

func TestReferrerCounts(t *testing.T) {
	db, mock := newSqlxMock(t)
	mock.ExpectQuery("FROM referrals r").
		WillReturnRows(sqlmock.NewRows([]string{"referrer_id", "referrer_name", "referrals"}).
			AddRow(1, "Alice", 4).AddRow(2, "Unknown", 1))

	got, err := NewAnalyticsRepository(db).ReferrerCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 4, got[0].Count)
	assert.Equal(t, "Alice", got[0].Name)
}
