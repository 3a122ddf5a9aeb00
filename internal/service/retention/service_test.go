package retention

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
)

func at(t time.Time) *time.Time { return &t }

func TestComputeCohortsExample(t *testing.T) {
	cal := ledger.MustCalendar("UTC")
	signup := time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC) // Monday, 2025-W10
	now := signup.Add(10 * 24 * time.Hour)

	var lifecycles []user.Lifecycle
	for i := 0; i < 10; i++ {
		l := user.Lifecycle{CreatedAt: signup.Add(time.Duration(i) * time.Minute)}
		switch {
		case i < 4:
			l.LastActiveAt = at(l.CreatedAt.Add(8 * 24 * time.Hour))
		case i < 6:
			l.LastActiveAt = at(l.CreatedAt.Add(2 * 24 * time.Hour))
		case i < 8:
			l.LastActiveAt = at(l.CreatedAt.Add(23 * time.Hour))
		}
		lifecycles = append(lifecycles, l)
	}

	got := ComputeCohorts(lifecycles, cal, now)
	require.Len(t, got, 1)
	c := got[0]
	assert.Equal(t, "2025-W10", c.CohortKey)
	assert.Equal(t, int64(10), c.Signups)
	assert.Equal(t, int64(6), c.D1)
	assert.Equal(t, int64(4), c.D7)
	assert.Equal(t, int64(0), c.D30)
	assert.Equal(t, "60.0", c.D1Pct)
	assert.Equal(t, "40.0", c.D7Pct)
	assert.Equal(t, "N/A", c.D30Pct)
}

func TestComputeCohortsYoungCohortAndOrdering(t *testing.T) {
	cal := ledger.MustCalendar("UTC")
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)

	lifecycles := []user.Lifecycle{
		{CreatedAt: time.Date(2025, 3, 18, 0, 0, 0, 0, time.UTC), LastActiveAt: at(time.Date(2025, 3, 19, 1, 0, 0, 0, time.UTC))},
		{CreatedAt: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC), LastActiveAt: at(time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC))},
		{CreatedAt: time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)},
	}

	got := ComputeCohorts(lifecycles, cal, now)
	require.Len(t, got, 2)

	assert.Equal(t, "2025-W02", got[0].CohortKey)
	assert.Equal(t, int64(2), got[0].Signups)
	assert.Equal(t, int64(1), got[0].D30)
	assert.Equal(t, "50.0", got[0].D30Pct)

	assert.Equal(t, "2025-W12", got[1].CohortKey)
	assert.Equal(t, "100.0", got[1].D1Pct)
	assert.Equal(t, "N/A", got[1].D7Pct)
	assert.Equal(t, "N/A", got[1].D30Pct)
}

type fixedLifecycles []user.Lifecycle

func (f fixedLifecycles) Lifecycles(context.Context) ([]user.Lifecycle, error) { return f, nil }

func TestServiceCohorts(t *testing.T) {
	now := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	svc := NewService(fixedLifecycles{{CreatedAt: now.Add(-time.Hour)}}, ledger.MustCalendar("UTC")).
		WithClock(func() time.Time { return now })

	got, err := svc.Cohorts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "0.0", got[0].D1Pct)
}
