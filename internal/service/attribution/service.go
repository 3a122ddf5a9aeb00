package attribution

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/common/validation"
	"loyalty-points-backend/internal/domain/analytics"
	domain "loyalty-points-backend/internal/domain/attribution"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/service/rewards"
)

const (
	topReferrers = 10
	topMovers    = 5
	trendDays    = 7
	unknownName  = "Unknown"
)

// DeferredAwarder applies a reward that must not undo its anchor.
type DeferredAwarder interface {
	AwardOnce(ctx context.Context, key string, userID, amount int64, reason ledger.Reason, meta ledger.Metadata) rewards.Outcome
}

type Service struct {
	users          user.Repository
	repo           domain.Repository
	stats          domain.StatsReader
	standings      ledger.StandingsReader
	awarder        DeferredAwarder
	cal            *ledger.Calendar
	referralReward int64
	now            func() time.Time
	log            zerolog.Logger
}

func NewService(
	users user.Repository,
	repo domain.Repository,
	stats domain.StatsReader,
	standings ledger.StandingsReader,
	awarder DeferredAwarder,
	cal *ledger.Calendar,
	referralReward int64,
) *Service {
	return &Service{
		users:          users,
		repo:           repo,
		stats:          stats,
		standings:      standings,
		awarder:        awarder,
		cal:            cal,
		referralReward: referralReward,
		now:            time.Now,
		log:            logger.With("attribution"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ReferralOutcome reports what RecordReferral did. AlreadyReferred is not an
// error: the referee had a referrer before this call.
type ReferralOutcome struct {
	Recorded        bool  `json:"recorded"`
	AlreadyReferred bool  `json:"already_referred"`
	PointsAwarded   int64 `json:"points_awarded"`
	Deferred        bool  `json:"reward_deferred,omitempty"`
}

// RecordReferral anchors the referral on the referee and then rewards the
// referrer. The referral row survives a failed reward.
func (s *Service) RecordReferral(ctx context.Context, referrerID, refereeID int64) (ReferralOutcome, error) {
	if err := validation.ValidateUserID(referrerID); err != nil {
		return ReferralOutcome{}, apperrors.NewValidationError("referrer_id", err.Error())
	}
	if err := validation.ValidateUserID(refereeID); err != nil {
		return ReferralOutcome{}, apperrors.NewValidationError("referee_id", err.Error())
	}
	if referrerID == refereeID {
		return ReferralOutcome{}, apperrors.NewValidationError("referrer_id", "users cannot refer themselves")
	}
	if err := s.requireUser(ctx, referrerID); err != nil {
		return ReferralOutcome{}, err
	}

	recorded, err := s.repo.InsertReferral(ctx, referrerID, refereeID, s.now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ReferralOutcome{}, apperrors.NewUnknownUserError(refereeID)
		}
		return ReferralOutcome{}, apperrors.NewDatabaseError("insert referral", err)
	}
	if !recorded {
		return ReferralOutcome{AlreadyReferred: true}, nil
	}

	s.log.Info().Int64("referrer_id", referrerID).Int64("referee_id", refereeID).Msg("Referral recorded")

	out := s.awarder.AwardOnce(ctx, ledgersvc.ReferralKey(refereeID), referrerID, s.referralReward, ledger.ReasonReferral,
		ledger.ReferralMeta{RefereeID: refereeID})
	result := ReferralOutcome{Recorded: true, Deferred: out.Deferred}
	if out.Awarded {
		result.PointsAwarded = s.referralReward
	}
	return result, nil
}

// AttributeCampaign records the first campaign that brought userID in.
func (s *Service) AttributeCampaign(ctx context.Context, userID int64, campaignID string) (bool, error) {
	id, err := validation.NormalizeCampaignID(campaignID)
	if err != nil {
		return false, apperrors.NewValidationError("campaign_id", err.Error())
	}
	recorded, err := s.repo.InsertCampaignAttribution(ctx, userID, id, s.now())
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return false, apperrors.NewUnknownUserError(userID)
		}
		return false, apperrors.NewDatabaseError("insert campaign attribution", err)
	}
	if recorded {
		s.log.Info().Int64("user_id", userID).Str("campaign_id", id).Msg("Campaign attributed")
	}
	return recorded, nil
}

func (s *Service) requireUser(ctx context.Context, id int64) error {
	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return apperrors.NewUnknownUserError(id)
		}
		return apperrors.NewDatabaseError("get profile", err)
	}
	return nil
}

type CampaignSummary struct {
	TotalCampaigns       int `json:"total_campaigns"`
	TotalAttributedUsers int `json:"total_attributed_users"`
}

type CampaignReport struct {
	Campaigns []domain.CampaignCount `json:"campaigns"`
	Summary   CampaignSummary        `json:"summary"`
}

// CampaignStats folds attributions per campaign, optionally within [from, to].
func (s *Service) CampaignStats(ctx context.Context, from, to *time.Time) (CampaignReport, error) {
	counts, err := s.stats.CampaignCounts(ctx, from, to)
	if err != nil {
		return CampaignReport{}, apperrors.NewDatabaseError("campaign counts", err)
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Users > counts[j].Users })

	report := CampaignReport{Campaigns: counts}
	if report.Campaigns == nil {
		report.Campaigns = []domain.CampaignCount{}
	}
	report.Summary.TotalCampaigns = len(counts)
	for _, c := range counts {
		report.Summary.TotalAttributedUsers += c.Users
	}
	return report, nil
}

type ReferralSummary struct {
	TotalReferrals  int     `json:"total_referrals"`
	UniqueReferrers int     `json:"unique_referrers"`
	AvgPerReferrer  float64 `json:"avg_per_referrer"`
}

type NetworkDepth struct {
	Tier1 int `json:"tier1"`
}

// Mover is a user whose daily rank changed over the trend window. A positive
// change means the user moved up.
type Mover struct {
	UserID       int64  `json:"telegram_id"`
	Name         string `json:"name"`
	CurrentRank  int    `json:"current_rank"`
	PreviousRank int    `json:"previous_rank"`
	Change       int    `json:"change"`
}

type ReferralReport struct {
	Summary           ReferralSummary        `json:"summary"`
	TopReferrers      []domain.ReferrerCount `json:"top_referrers"`
	NetworkDepth      NetworkDepth           `json:"network_depth"`
	LeaderboardTrends []Mover                `json:"leaderboard_trends"`
}

func (s *Service) ReferralStats(ctx context.Context) (ReferralReport, error) {
	counts, err := s.stats.ReferrerCounts(ctx)
	if err != nil {
		return ReferralReport{}, apperrors.NewDatabaseError("referrer counts", err)
	}
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].ReferrerID < counts[j].ReferrerID
	})

	total := 0
	for i := range counts {
		total += counts[i].Count
		if counts[i].Name == "" {
			counts[i].Name = unknownName
		}
	}

	report := ReferralReport{
		Summary: ReferralSummary{
			TotalReferrals:  total,
			UniqueReferrers: len(counts),
		},
		NetworkDepth: NetworkDepth{Tier1: total},
	}
	if len(counts) > 0 {
		report.Summary.AvgPerReferrer = analytics.Round1(
			decimal.NewFromInt(int64(total)).Div(decimal.NewFromInt(int64(len(counts)))))
	}
	if len(counts) > topReferrers {
		counts = counts[:topReferrers]
	}
	report.TopReferrers = counts
	if report.TopReferrers == nil {
		report.TopReferrers = []domain.ReferrerCount{}
	}

	movers, err := s.trends(ctx)
	if err != nil {
		return ReferralReport{}, err
	}
	report.LeaderboardTrends = movers
	return report, nil
}

// trends compares today's daily ranking with the one seven days earlier.
func (s *Service) trends(ctx context.Context) ([]Mover, error) {
	now := s.now()
	current, err := s.standings.BucketStandings(ctx, ledger.PeriodDaily, s.cal.DayKey(now))
	if err != nil {
		return nil, apperrors.NewDatabaseError("current daily standings", err)
	}
	previous, err := s.standings.BucketStandings(ctx, ledger.PeriodDaily, s.cal.DaysAgo(now, trendDays))
	if err != nil {
		return nil, apperrors.NewDatabaseError("previous daily standings", err)
	}

	prevRank := make(map[int64]int, len(previous))
	for i, st := range previous {
		prevRank[st.UserID] = i + 1
	}

	movers := []Mover{}
	for i, st := range current {
		prev, ok := prevRank[st.UserID]
		if !ok {
			continue
		}
		change := prev - (i + 1)
		if change == 0 {
			continue
		}
		name := st.FirstName
		if name == "" {
			name = unknownName
		}
		movers = append(movers, Mover{
			UserID:       st.UserID,
			Name:         name,
			CurrentRank:  i + 1,
			PreviousRank: prev,
			Change:       change,
		})
	}
	sort.SliceStable(movers, func(i, j int) bool { return movers[i].Change > movers[j].Change })
	if len(movers) > topMovers {
		movers = movers[:topMovers]
	}
	return movers, nil
}
