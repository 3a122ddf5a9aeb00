package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"loyalty-points-backend/internal/domain/analytics"
	"loyalty-points-backend/internal/domain/attribution"
	"loyalty-points-backend/internal/domain/checkin"
	"loyalty-points-backend/internal/domain/education"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
)

type bucketKey struct {
	userID int64
	period ledger.PeriodType
	key    string
}

type progressKey struct {
	userID   int64
	moduleID string
}

type checkinKey struct {
	userID int64
	date   string
}

// Store keeps every aggregate in process memory behind one mutex. It backs
// the service tests and the no-database development mode, and gives the
// same atomicity as the Postgres repositories.
type Store struct {
	mu sync.Mutex

	profiles     map[int64]*user.Profile
	transactions []ledger.Transaction
	keys         map[string]struct{}
	buckets      map[bucketKey]*ledger.Bucket
	referrals    map[int64]attribution.Referral
	campaigns    map[int64]attribution.CampaignAttribution
	progress     map[progressKey]*education.Progress
	checkins     map[checkinKey]checkin.Record
	nextID       int64
}

func NewStore() *Store {
	return &Store{
		profiles:  make(map[int64]*user.Profile),
		keys:      make(map[string]struct{}),
		buckets:   make(map[bucketKey]*ledger.Bucket),
		referrals: make(map[int64]attribution.Referral),
		campaigns: make(map[int64]attribution.CampaignAttribution),
		progress:  make(map[progressKey]*education.Progress),
		checkins:  make(map[checkinKey]checkin.Record),
	}
}

// ApplyAward implements ledger.Store.
func (s *Store) ApplyAward(_ context.Context, e ledger.Entry) (ledger.AwardResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[e.UserID]
	if !ok {
		return ledger.AwardResult{}, ledger.ErrUnknownUser
	}
	if e.IdempotencyKey != "" {
		if _, dup := s.keys[e.IdempotencyKey]; dup {
			return ledger.AwardResult{Total: p.TotalPoints}, nil
		}
		s.keys[e.IdempotencyKey] = struct{}{}
	}

	s.transactions = append(s.transactions, e.Transaction)
	p.TotalPoints += e.Amount
	at := e.CreatedAt
	p.PointsUpdatedAt = &at

	for period, key := range map[ledger.PeriodType]string{ledger.PeriodDaily: e.DailyKey, ledger.PeriodWeekly: e.WeeklyKey} {
		bk := bucketKey{userID: e.UserID, period: period, key: key}
		b, ok := s.buckets[bk]
		if !ok {
			b = &ledger.Bucket{UserID: e.UserID, PeriodType: period, PeriodKey: key}
			s.buckets[bk] = b
		}
		b.Points += e.Amount
		b.UpdatedAt = e.CreatedAt
	}

	return ledger.AwardResult{Total: p.TotalPoints, Applied: true}, nil
}

func (s *Store) ListTransactions(_ context.Context, userID int64, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Transaction
	for i := len(s.transactions) - 1; i >= 0 && len(out) < limit; i-- {
		if s.transactions[i].UserID == userID {
			out = append(out, s.transactions[i])
		}
	}
	return out, nil
}

// Bucket returns a copy of one bucket, mainly for assertions.
func (s *Store) Bucket(userID int64, period ledger.PeriodType, key string) (ledger.Bucket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[bucketKey{userID: userID, period: period, key: key}]
	if !ok {
		return ledger.Bucket{}, false
	}
	return *b, true
}

func (s *Store) AllTimeStandings(_ context.Context) ([]ledger.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Standing
	for _, p := range s.profiles {
		if p.TotalPoints <= 0 {
			continue
		}
		reached := p.CreatedAt
		if p.PointsUpdatedAt != nil {
			reached = *p.PointsUpdatedAt
		}
		out = append(out, s.standing(p.ID, p.TotalPoints, reached))
	}
	sortStandings(out)
	return out, nil
}

func (s *Store) BucketStandings(_ context.Context, period ledger.PeriodType, key string) ([]ledger.Standing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []ledger.Standing
	for bk, b := range s.buckets {
		if bk.period != period || bk.key != key || b.Points <= 0 {
			continue
		}
		out = append(out, s.standing(b.UserID, b.Points, b.UpdatedAt))
	}
	sortStandings(out)
	return out, nil
}

func (s *Store) standing(userID, points int64, reached time.Time) ledger.Standing {
	st := ledger.Standing{UserID: userID, Points: points, ReachedAt: reached}
	if p, ok := s.profiles[userID]; ok {
		st.Username = p.Username
		st.FirstName = p.FirstName
		st.Wallet = p.WalletAddress
	}
	return st
}

func sortStandings(s []ledger.Standing) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Points != s[j].Points {
			return s[i].Points > s[j].Points
		}
		if !s[i].ReachedAt.Equal(s[j].ReachedAt) {
			return s[i].ReachedAt.Before(s[j].ReachedAt)
		}
		return s[i].UserID < s[j].UserID
	})
}

// Sync implements user.Repository.
func (s *Store) Sync(_ context.Context, id user.Identity, at time.Time) (*user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[id.ID]
	if !ok {
		p = &user.Profile{ID: id.ID, IsPushEnabled: true, CreatedAt: at}
		s.profiles[id.ID] = p
	}
	p.Username = id.Username
	p.FirstName = id.FirstName
	p.LastName = id.LastName
	active := at
	p.LastActiveAt = &active

	cp := *p
	return &cp, nil
}

func (s *Store) GetByID(_ context.Context, id int64) (*user.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) Touch(_ context.Context, id int64, at time.Time) error {
	return s.updateProfile(id, func(p *user.Profile) { p.LastActiveAt = &at })
}

func (s *Store) SetWalletConnected(_ context.Context, id int64, address string) error {
	return s.updateProfile(id, func(p *user.Profile) {
		p.IsWalletConnected = true
		p.WalletAddress = address
	})
}

func (s *Store) SetChannelJoined(_ context.Context, id int64) error {
	return s.updateProfile(id, func(p *user.Profile) { p.HasJoinedChannel = true })
}

func (s *Store) MarkSpun(_ context.Context, id int64, at time.Time) error {
	return s.updateProfile(id, func(p *user.Profile) { p.LastSpinAt = &at })
}

func (s *Store) MarkNotified(_ context.Context, id int64, at time.Time) error {
	return s.updateProfile(id, func(p *user.Profile) { p.LastNotifiedAt = &at })
}

func (s *Store) DisablePush(_ context.Context, id int64) error {
	return s.updateProfile(id, func(p *user.Profile) { p.IsPushEnabled = false })
}

func (s *Store) NudgeCandidates(_ context.Context, inactiveBefore, notifiedBefore time.Time, limit int) ([]user.NudgeCandidate, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []user.NudgeCandidate
	for _, p := range s.profiles {
		if !p.IsPushEnabled || p.LastActiveAt == nil || !p.LastActiveAt.Before(inactiveBefore) {
			continue
		}
		if p.LastNotifiedAt != nil && !p.LastNotifiedAt.Before(notifiedBefore) {
			continue
		}
		out = append(out, user.NudgeCandidate{ID: p.ID, FirstName: p.FirstName, LastActiveAt: p.LastActiveAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActiveAt.Before(*out[j].LastActiveAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Lifecycles implements user.LifecycleReader.
func (s *Store) Lifecycles(_ context.Context) ([]user.Lifecycle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]user.Lifecycle, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, user.Lifecycle{CreatedAt: p.CreatedAt, LastActiveAt: p.LastActiveAt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) updateProfile(id int64, fn func(*user.Profile)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return user.ErrNotFound
	}
	fn(p)
	return nil
}

// InsertReferral implements attribution.Repository.
func (s *Store) InsertReferral(_ context.Context, referrerID, refereeID int64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.referrals[refereeID]; ok {
		return false, nil
	}
	s.nextID++
	s.referrals[refereeID] = attribution.Referral{ID: s.nextID, ReferrerID: referrerID, RefereeID: refereeID, CreatedAt: at}
	return true, nil
}

func (s *Store) InsertCampaignAttribution(_ context.Context, userID int64, campaignID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.campaigns[userID]; ok {
		return false, nil
	}
	s.nextID++
	s.campaigns[userID] = attribution.CampaignAttribution{ID: s.nextID, UserID: userID, CampaignID: campaignID, CreatedAt: at}
	return true, nil
}

// ReferrerCounts implements attribution.StatsReader.
func (s *Store) ReferrerCounts(_ context.Context) ([]attribution.ReferrerCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[int64]int)
	for _, r := range s.referrals {
		counts[r.ReferrerID]++
	}
	out := make([]attribution.ReferrerCount, 0, len(counts))
	for id, n := range counts {
		name := "Unknown"
		if p, ok := s.profiles[id]; ok {
			if p.FirstName != "" {
				name = p.FirstName
			} else if p.Username != "" {
				name = p.Username
			}
		}
		out = append(out, attribution.ReferrerCount{ReferrerID: id, Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ReferrerID < out[j].ReferrerID
	})
	return out, nil
}

func (s *Store) CampaignCounts(_ context.Context, from, to *time.Time) ([]attribution.CampaignCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	byID := make(map[string]*attribution.CampaignCount)
	for _, a := range s.campaigns {
		if from != nil && to != nil && (a.CreatedAt.Before(*from) || a.CreatedAt.After(*to)) {
			continue
		}
		c, ok := byID[a.CampaignID]
		if !ok {
			c = &attribution.CampaignCount{CampaignID: a.CampaignID, First: a.CreatedAt, Last: a.CreatedAt}
			byID[a.CampaignID] = c
		}
		c.Users++
		if a.CreatedAt.Before(c.First) {
			c.First = a.CreatedAt
		}
		if a.CreatedAt.After(c.Last) {
			c.Last = a.CreatedAt
		}
	}
	out := make([]attribution.CampaignCount, 0, len(byID))
	for _, c := range byID {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Users != out[j].Users {
			return out[i].Users > out[j].Users
		}
		return out[i].CampaignID < out[j].CampaignID
	})
	return out, nil
}

// SaveSlide implements education.Repository.
func (s *Store) SaveSlide(_ context.Context, userID int64, moduleID string, slide int, at time.Time) (*education.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return nil, user.ErrNotFound
	}
	p := s.progressFor(userID, moduleID, at)
	p.SlideIndex = slide
	p.UpdatedAt = at
	cp := *p
	return &cp, nil
}

func (s *Store) Complete(_ context.Context, userID int64, moduleID, badgeID string, at time.Time) (*education.Progress, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[userID]; !ok {
		return nil, false, user.ErrNotFound
	}
	p := s.progressFor(userID, moduleID, at)
	if p.Completed() {
		cp := *p
		return &cp, false, nil
	}
	p.CompletedAt = &at
	p.BadgeID = badgeID
	p.BadgeEarned = badgeID != ""
	p.UpdatedAt = at
	cp := *p
	return &cp, true, nil
}

func (s *Store) Get(_ context.Context, userID int64, moduleID string) (*education.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.progress[progressKey{userID: userID, moduleID: moduleID}]
	if !ok {
		return nil, education.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) List(_ context.Context, userID int64) ([]education.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []education.Progress
	for k, p := range s.progress {
		if k.userID == userID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ModuleID < out[j].ModuleID })
	return out, nil
}

func (s *Store) progressFor(userID int64, moduleID string, at time.Time) *education.Progress {
	k := progressKey{userID: userID, moduleID: moduleID}
	p, ok := s.progress[k]
	if !ok {
		p = &education.Progress{UserID: userID, ModuleID: moduleID, CreatedAt: at, UpdatedAt: at}
		s.progress[k] = p
	}
	return p
}

// Insert implements checkin.Repository.
func (s *Store) Insert(_ context.Context, userID int64, date, previousDate string, at time.Time) (*checkin.Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.checkins[checkinKey{userID: userID, date: date}]; ok {
		return &rec, false, nil
	}
	if _, ok := s.profiles[userID]; !ok {
		return nil, false, user.ErrNotFound
	}
	streak := 1
	if prev, ok := s.checkins[checkinKey{userID: userID, date: previousDate}]; ok {
		streak = prev.Streak + 1
	}
	rec := checkin.Record{UserID: userID, LoginDate: date, Streak: streak, CreatedAt: at}
	s.checkins[checkinKey{userID: userID, date: date}] = rec
	return &rec, true, nil
}

// GetCheckin implements checkin.Repository's Get. The name differs because
// education.Repository already claims Get on this type.
func (s *Store) GetCheckin(_ context.Context, userID int64, date string) (*checkin.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.checkins[checkinKey{userID: userID, date: date}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// Checkins adapts the store to checkin.Repository.
func (s *Store) Checkins() checkin.Repository { return checkinAdapter{s} }

type checkinAdapter struct{ s *Store }

func (a checkinAdapter) Insert(ctx context.Context, userID int64, date, previousDate string, at time.Time) (*checkin.Record, bool, error) {
	return a.s.Insert(ctx, userID, date, previousDate, at)
}

func (a checkinAdapter) Get(ctx context.Context, userID int64, date string) (*checkin.Record, error) {
	return a.s.GetCheckin(ctx, userID, date)
}

var (
	_ ledger.Store              = (*Store)(nil)
	_ ledger.StandingsReader    = (*Store)(nil)
	_ ledger.TransactionReader  = (*Store)(nil)
	_ user.Repository           = (*Store)(nil)
	_ user.LifecycleReader      = (*Store)(nil)
	_ user.NudgeRepository      = (*Store)(nil)
	_ attribution.Repository    = (*Store)(nil)
	_ attribution.StatsReader   = (*Store)(nil)
	_ education.Repository      = (*Store)(nil)
	_ analytics.Reader          = (*Store)(nil)
	_ checkin.Repository        = checkinAdapter{}
)
