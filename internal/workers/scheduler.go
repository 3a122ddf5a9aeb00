package workers

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"loyalty-points-backend/internal/common/logger"
)

const jobTimeout = 30 * time.Second

// Reclaimer takes over stale pending messages.
type Reclaimer interface {
	Reclaim(ctx context.Context) (int, error)
}

// Warmer refreshes cached leaderboards.
type Warmer interface {
	Warm(ctx context.Context) error
}

type ScheduleConfig struct {
	ReclaimEvery time.Duration
	WarmEvery    time.Duration
}

// Scheduler runs the periodic maintenance jobs.
type Scheduler struct {
	sched gocron.Scheduler
	log   zerolog.Logger
}

// NewScheduler registers the reclaim and warm jobs. A nil reclaimer or
// warmer, or a non-positive interval, skips that job.
func NewScheduler(ctx context.Context, reclaimer Reclaimer, warmer Warmer, cfg ScheduleConfig) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s := &Scheduler{sched: sched, log: logger.With("scheduler")}

	if reclaimer != nil && cfg.ReclaimEvery > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.ReclaimEvery),
			gocron.NewTask(func() {
				jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
				defer cancel()
				if _, err := reclaimer.Reclaim(jobCtx); err != nil {
					s.log.Error().Err(err).Msg("Reclaim job failed")
				}
			}),
			gocron.WithName("reclaim-pending-rewards"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	if warmer != nil && cfg.WarmEvery > 0 {
		if _, err := sched.NewJob(
			gocron.DurationJob(cfg.WarmEvery),
			gocron.NewTask(func() {
				jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
				defer cancel()
				if err := warmer.Warm(jobCtx); err != nil {
					s.log.Warn().Err(err).Msg("Leaderboard warm job failed")
				}
			}),
			gocron.WithName("warm-leaderboards"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info().Int("jobs", len(s.sched.Jobs())).Msg("Scheduler started")
}

// Shutdown waits for running jobs to finish.
func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	jobs := s.sched.Jobs()
	names := make([]string, 0, len(jobs))
	for _, j := range jobs {
		names = append(names, j.Name())
	}
	return names
}
