package workers

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingWarmer struct{ calls atomic.Int32 }

func (w *countingWarmer) Warm(context.Context) error {
	w.calls.Add(1)
	return nil
}

type countingReclaimer struct{ calls atomic.Int32 }

func (r *countingReclaimer) Reclaim(context.Context) (int, error) {
	r.calls.Add(1)
	return 0, nil
}

func TestSchedulerRunsJobs(t *testing.T) {
	warmer := &countingWarmer{}
	reclaimer := &countingReclaimer{}

	s, err := NewScheduler(context.Background(), reclaimer, warmer, ScheduleConfig{
		ReclaimEvery: 20 * time.Millisecond,
		WarmEvery:    20 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"reclaim-pending-rewards", "warm-leaderboards"}, s.JobNames())

	s.Start()
	assert.Eventually(t, func() bool {
		return warmer.calls.Load() > 0 && reclaimer.calls.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Shutdown())
}

func TestSchedulerSkipsDisabledJobs(t *testing.T) {
	s, err := NewScheduler(context.Background(), nil, &countingWarmer{}, ScheduleConfig{WarmEvery: 0})
	require.NoError(t, err)
	assert.Empty(t, s.JobNames())
	require.NoError(t, s.Shutdown())
}
