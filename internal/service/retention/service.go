package retention

import (
	"context"
	"sort"
	"time"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/domain/analytics"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
)

const day = 24 * time.Hour

// CohortStat is day-N retention for users who signed up in one ISO week.
type CohortStat struct {
	CohortKey string `json:"cohort"`
	Signups   int64  `json:"signups"`
	D1        int64  `json:"d1"`
	D7        int64  `json:"d7"`
	D30       int64  `json:"d30"`
	D1Pct     string `json:"d1_pct"`
	D7Pct     string `json:"d7_pct"`
	D30Pct    string `json:"d30_pct"`
}

type Service struct {
	reader user.LifecycleReader
	cal    *ledger.Calendar
	now    func() time.Time
}

func NewService(reader user.LifecycleReader, cal *ledger.Calendar) *Service {
	return &Service{reader: reader, cal: cal, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Cohorts loads every lifecycle and computes retention as of now.
func (s *Service) Cohorts(ctx context.Context) ([]CohortStat, error) {
	lifecycles, err := s.reader.Lifecycles(ctx)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load lifecycles", err)
	}
	return ComputeCohorts(lifecycles, s.cal, s.now()), nil
}

type cohort struct {
	start               time.Time
	signups, d1, d7, d30 int64
}

// ComputeCohorts groups lifecycles by the ISO week of signup. Day counts are
// whole days between signup and last activity and are cumulative. D7 and
// D30 percentages are reported only once the cohort's earliest signup is at
// least 7 or 30 days old.
func ComputeCohorts(lifecycles []user.Lifecycle, cal *ledger.Calendar, now time.Time) []CohortStat {
	cohorts := make(map[string]*cohort)
	for _, l := range lifecycles {
		key := cal.WeekKey(l.CreatedAt)
		c, ok := cohorts[key]
		if !ok {
			c = &cohort{start: l.CreatedAt}
			cohorts[key] = c
		}
		if l.CreatedAt.Before(c.start) {
			c.start = l.CreatedAt
		}
		c.signups++

		if l.LastActiveAt == nil {
			continue
		}
		days := int(l.LastActiveAt.Sub(l.CreatedAt) / day)
		if days >= 1 {
			c.d1++
		}
		if days >= 7 {
			c.d7++
		}
		if days >= 30 {
			c.d30++
		}
	}

	out := make([]CohortStat, 0, len(cohorts))
	for key, c := range cohorts {
		age := now.Sub(c.start)
		stat := CohortStat{
			CohortKey: key,
			Signups:   c.signups,
			D1:        c.d1,
			D7:        c.d7,
			D30:       c.d30,
			D1Pct:     analytics.Percent(c.d1, c.signups),
			D7Pct:     analytics.NotApplicable,
			D30Pct:    analytics.NotApplicable,
		}
		if age >= 7*day {
			stat.D7Pct = analytics.Percent(c.d7, c.signups)
		}
		if age >= 30*day {
			stat.D30Pct = analytics.Percent(c.d30, c.signups)
		}
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CohortKey < out[j].CohortKey })
	return out
}
