package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
)

func testEntry(key string) ledger.Entry {
	return ledger.Entry{
		Transaction: ledger.Transaction{
			ID:             uuid.New(),
			UserID:         10,
			Amount:         500,
			Reason:         ledger.ReasonReferral,
			Metadata:       ledger.ReferralMeta{RefereeID: 11},
			IdempotencyKey: key,
			CreatedAt:      time.Date(2025, 1, 6, 12, 0, 0, 0, time.UTC),
		},
		DailyKey:  "2025-01-06",
		WeeklyKey: "2025-W02",
	}
}

func TestApplyAwardCommitsAllMutations(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := testEntry("referral:11")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").
		WithArgs(sqlmock.AnyArg(), e.UserID, e.Amount, "referral", `{"referee_id":11}`, sqlmock.AnyArg(), e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE profiles").
		WithArgs(e.UserID, e.Amount, e.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(1500))
	mock.ExpectExec("INSERT INTO leaderboard_buckets").
		WithArgs(e.UserID, "2025-01-06", "2025-W02", e.Amount, e.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	res, err := NewLedgerRepository(db).ApplyAward(context.Background(), e)
	require.NoError(t, err)
	assert.Equal(t, ledger.AwardResult{Total: 1500, Applied: true}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAwardDuplicateKeyReturnsCurrentTotal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT total_points FROM profiles").
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(1500))
	mock.ExpectCommit()

	res, err := NewLedgerRepository(db).ApplyAward(context.Background(), testEntry("referral:11"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, int64(1500), res.Total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAwardUnknownUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnError(&pq.Error{Code: pqForeignKeyViolation})
	mock.ExpectRollback()

	_, err = NewLedgerRepository(db).ApplyAward(context.Background(), testEntry(""))
	assert.ErrorIs(t, err, ledger.ErrUnknownUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAwardRollsBackOnBucketFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO transactions").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE profiles").WillReturnRows(sqlmock.NewRows([]string{"total_points"}).AddRow(500))
	mock.ExpectExec("INSERT INTO leaderboard_buckets").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err = NewLedgerRepository(db).ApplyAward(context.Background(), testEntry(""))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ledger.ErrUnknownUser)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTransactionsDecodesMetadata(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.New()
	now := time.Now()
	mock.ExpectQuery("SELECT id, user_id, amount, reason, metadata").
		WithArgs(int64(10), 50).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "reason", "metadata", "idempotency_key", "created_at"}).
			AddRow(id.String(), 10, 120, "daily_login", []byte(`{"streak":2,"date":"2025-01-06"}`), "daily_login:10:2025-01-06", now))

	txs, err := NewLedgerRepository(db).ListTransactions(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, id, txs[0].ID)
	assert.Equal(t, ledger.DailyLoginMeta{Streak: 2, Date: "2025-01-06"}, txs[0].Metadata)
	assert.NoError(t, mock.ExpectationsWereMet())
}
