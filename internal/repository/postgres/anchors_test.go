package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertReferralConflictIsNotAnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("INSERT INTO referrals").WithArgs(int64(1), int64(2), now).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO referrals").WithArgs(int64(3), int64(2), now).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO referrals").WithArgs(int64(4), int64(2), now).WillReturnError(&pq.Error{Code: pqUniqueViolation})

	repo := NewAttributionRepository(db)
	ok, err := repo.InsertReferral(context.Background(), 1, 2, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.InsertReferral(context.Background(), 3, 2, now)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.InsertReferral(context.Background(), 4, 2, now)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCampaignAttribution(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("INSERT INTO campaign_attributions").WithArgs(int64(5), "spring", now).WillReturnResult(sqlmock.NewResult(1, 1))

	ok, err := NewAttributionRepository(db).InsertCampaignAttribution(context.Background(), 5, "spring", now)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckinInsertComputesStreakInStatement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO daily_logins").
		WithArgs(int64(9), "2025-01-07", "2025-01-06", now).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "login_date", "streak_count", "created_at"}).
			AddRow(9, "2025-01-07", 3, now))

	rec, created, err := NewCheckinRepository(db).Insert(context.Background(), 9, "2025-01-07", "2025-01-06", now)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 3, rec.Streak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckinInsertRepeatReturnsExisting(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO daily_logins").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT user_id, to_char").
		WithArgs(int64(9), "2025-01-07").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "login_date", "streak_count", "created_at"}).
			AddRow(9, "2025-01-07", 3, now))

	rec, created, err := NewCheckinRepository(db).Insert(context.Background(), 9, "2025-01-07", "2025-01-06", now)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 3, rec.Streak)
}

func TestCompleteModuleOnlyOnce(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	cols := []string{"user_id", "module_id", "slide_index", "completed_at", "badge_earned", "badge_id", "created_at", "updated_at"}

	mock.ExpectQuery("INSERT INTO education_progress").
		WithArgs(int64(3), "ton-basics", now, "ton-badge").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ton-basics", 4, now, true, "ton-badge", now, now))
	mock.ExpectQuery("INSERT INTO education_progress").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT (.+) FROM education_progress").
		WithArgs(int64(3), "ton-basics").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(3, "ton-basics", 4, now, true, "ton-badge", now, now))

	repo := NewEducationRepository(db)
	p, first, err := repo.Complete(context.Background(), 3, "ton-basics", "ton-badge", now)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, p.Completed())

	_, again, err := repo.Complete(context.Background(), 3, "ton-basics", "ton-badge", now.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, again)
	assert.NoError(t, mock.ExpectationsWereMet())
}
