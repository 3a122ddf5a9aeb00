package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"loyalty-points-backend/internal/domain/analytics"
)

func (s *Store) ProfileCounts(_ context.Context) (analytics.ProfileCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var c analytics.ProfileCounts
	for _, p := range s.profiles {
		c.Total++
		if p.IsWalletConnected {
			c.WalletConnected++
		}
		if p.HasJoinedChannel {
			c.ChannelJoined++
		}
	}
	return c, nil
}

func (s *Store) PointsDistributed(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, t := range s.transactions {
		if t.Amount > 0 {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (s *Store) ReferralCount(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.referrals)), nil
}

func (s *Store) PointsByReason(_ context.Context, from, to *time.Time) ([]analytics.ReasonTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byReason := make(map[string]*analytics.ReasonTotal)
	for _, t := range s.transactions {
		if t.Amount <= 0 {
			continue
		}
		if from != nil && to != nil && (t.CreatedAt.Before(*from) || t.CreatedAt.After(*to)) {
			continue
		}
		r, ok := byReason[string(t.Reason)]
		if !ok {
			r = &analytics.ReasonTotal{Reason: string(t.Reason)}
			byReason[string(t.Reason)] = r
		}
		r.Distributed += t.Amount
		r.Transactions++
	}
	out := make([]analytics.ReasonTotal, 0, len(byReason))
	for _, r := range byReason {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distributed != out[j].Distributed {
			return out[i].Distributed > out[j].Distributed
		}
		return out[i].Reason < out[j].Reason
	})
	return out, nil
}

func (s *Store) ReasonUsage(_ context.Context) ([]analytics.ReasonUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make(map[string]map[int64]struct{})
	counts := make(map[string]int64)
	for _, t := range s.transactions {
		r := string(t.Reason)
		if users[r] == nil {
			users[r] = make(map[int64]struct{})
		}
		users[r][t.UserID] = struct{}{}
		counts[r]++
	}
	out := make([]analytics.ReasonUsage, 0, len(counts))
	for r, n := range counts {
		out = append(out, analytics.ReasonUsage{Reason: r, Users: int64(len(users[r])), Transactions: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].Reason < out[j].Reason
	})
	return out, nil
}

func (s *Store) TransactionsPerDay(_ context.Context, from, to time.Time, tz string) ([]analytics.DayCount, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	s.mu.Lock()
	times := make([]time.Time, 0, len(s.transactions))
	for _, t := range s.transactions {
		times = append(times, t.CreatedAt)
	}
	s.mu.Unlock()
	return countPerDay(times, from, to, loc), nil
}

func (s *Store) SignupsPerDay(_ context.Context, from, to time.Time, tz string) ([]analytics.DayCount, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}
	s.mu.Lock()
	times := make([]time.Time, 0, len(s.profiles))
	for _, p := range s.profiles {
		times = append(times, p.CreatedAt)
	}
	s.mu.Unlock()
	return countPerDay(times, from, to, loc), nil
}

func (s *Store) SignupsBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, p := range s.profiles {
		if p.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func countPerDay(times []time.Time, from, to time.Time, loc *time.Location) []analytics.DayCount {
	counts := make(map[string]int64)
	for _, t := range times {
		if t.Before(from) || !t.Before(to) {
			continue
		}
		counts[t.In(loc).Format("2006-01-02")]++
	}
	out := make([]analytics.DayCount, 0, len(counts))
	for day, n := range counts {
		out = append(out, analytics.DayCount{Day: day, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out
}
