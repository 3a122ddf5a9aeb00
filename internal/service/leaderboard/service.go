package leaderboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/domain/ledger"
)

// StandingsCache is the short-lived standings cache. Implementations treat
// a disabled backend as a miss.
type StandingsCache interface {
	Get(ctx context.Context, period ledger.PeriodType, key string) ([]ledger.Standing, bool, error)
	Set(ctx context.Context, period ledger.PeriodType, key string, standings []ledger.Standing) error
}

// MyRank is the requester's position on the current weekly board.
type MyRank struct {
	WeeklyRank   *int   `json:"weekly_rank"`
	WeeklyPoints int64  `json:"weekly_points"`
	IsInTop10    bool   `json:"is_in_top_10"`
	WeekKey      string `json:"week_key"`
}

type Service struct {
	reader ledger.StandingsReader
	cache  StandingsCache
	cal    *ledger.Calendar
	now    func() time.Time
	log    zerolog.Logger
}

func NewService(reader ledger.StandingsReader, cache StandingsCache, cal *ledger.Calendar) *Service {
	return &Service{
		reader: reader,
		cache:  cache,
		cal:    cal,
		now:    time.Now,
		log:    logger.With("leaderboard"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CurrentKey is the bucket key of period at the service clock.
func (s *Service) CurrentKey(period ledger.PeriodType) string {
	return s.cal.Key(period, s.now())
}

// Standings returns the ordered source for period and key, from cache
// when fresh.
func (s *Service) Standings(ctx context.Context, period ledger.PeriodType, key string) ([]ledger.Standing, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, period, key)
		if err != nil {
			s.log.Warn().Err(err).Str("period", string(period)).Msg("Leaderboard cache read failed")
		} else if ok {
			return cached, nil
		}
	}

	standings, err := s.load(ctx, period, key)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, period, key, standings); err != nil {
			s.log.Warn().Err(err).Str("period", string(period)).Msg("Leaderboard cache write failed")
		}
	}
	return standings, nil
}

func (s *Service) load(ctx context.Context, period ledger.PeriodType, key string) ([]ledger.Standing, error) {
	var (
		standings []ledger.Standing
		err       error
	)
	if period.Bucketed() {
		standings, err = s.reader.BucketStandings(ctx, period, key)
	} else {
		standings, err = s.reader.AllTimeStandings(ctx)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("load standings", err)
	}
	return standings, nil
}

// BuildView ranks the current period and windows it for requester.
func (s *Service) BuildView(ctx context.Context, period ledger.PeriodType, requester *int64) (*View, error) {
	key := s.CurrentKey(period)
	standings, err := s.Standings(ctx, period, key)
	if err != nil {
		return nil, err
	}

	entries, rank, gap := Window(standings, requester)
	return &View{
		Period:            period,
		PeriodKey:         key,
		Entries:           entries,
		UserRank:          rank,
		TotalParticipants: len(standings),
		HasGap:            gap,
	}, nil
}

// MyRank reports the user's weekly position.
func (s *Service) MyRank(ctx context.Context, userID int64) (*MyRank, error) {
	key := s.CurrentKey(ledger.PeriodWeekly)
	standings, err := s.Standings(ctx, ledger.PeriodWeekly, key)
	if err != nil {
		return nil, err
	}

	out := &MyRank{WeekKey: key}
	for i, st := range standings {
		if st.UserID == userID {
			rank := i + 1
			out.WeeklyRank = &rank
			out.WeeklyPoints = st.Points
			out.IsInTop10 = rank <= 10
			break
		}
	}
	return out, nil
}

// Top returns the first n standings of the current period.
func (s *Service) Top(ctx context.Context, period ledger.PeriodType, n int) ([]ledger.Standing, error) {
	standings, err := s.Standings(ctx, period, s.CurrentKey(period))
	if err != nil {
		return nil, err
	}
	return standings[:min(n, len(standings))], nil
}

// Warm reloads every current period into the cache.
func (s *Service) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	for _, period := range []ledger.PeriodType{ledger.PeriodDaily, ledger.PeriodWeekly, ledger.PeriodAllTime} {
		key := s.CurrentKey(period)
		standings, err := s.load(ctx, period, key)
		if err != nil {
			return err
		}
		if err := s.cache.Set(ctx, period, key, standings); err != nil {
			return apperrors.NewCacheError("warm leaderboard", err)
		}
	}
	return nil
}
