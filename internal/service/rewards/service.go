package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/domain/checkin"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
	"loyalty-points-backend/internal/platform/telegram"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/utils/random"
)

const (
	dailyLoginBase      = 100
	dailyLoginPerStreak = 10
)

// Ledger is the subset of the ledger writer used by reward flows.
type Ledger interface {
	Awarder
	Now() time.Time
	Calendar() *ledger.Calendar
}

// ChatMembers resolves channel membership.
type ChatMembers interface {
	GetChatMember(ctx context.Context, chatID string, userID int64) (*telegram.ChatMember, error)
}

// Config holds reward amounts and the channel to verify.
type Config struct {
	Welcome   int64
	Wallet    int64
	Channel   int64
	ChannelID string
}

type Service struct {
	ledger     Ledger
	users      user.Repository
	checkins   checkin.Repository
	reconciler *Reconciler
	proofs     *ProofVerifier
	chat       ChatMembers
	rng        RandomSource
	cfg        Config
	log        zerolog.Logger
}

func NewService(l Ledger, users user.Repository, checkins checkin.Repository, reconciler *Reconciler, cfg Config) *Service {
	return &Service{
		ledger:     l,
		users:      users,
		checkins:   checkins,
		reconciler: reconciler,
		rng:        random.Secure{},
		cfg:        cfg,
		log:        logger.With("rewards"),
	}
}

func (s *Service) WithProofVerifier(v *ProofVerifier) *Service {
	s.proofs = v
	return s
}

func (s *Service) WithChatMembers(c ChatMembers) *Service {
	s.chat = c
	return s
}

func (s *Service) WithRandom(rng RandomSource) *Service {
	s.rng = rng
	return s
}

// ClaimResult is returned by the guarded one-time flows.
type ClaimResult struct {
	ledgersvc.Result
	AlreadyCompleted bool `json:"already_completed"`
}

func claim(res ledgersvc.Result) ClaimResult {
	return ClaimResult{Result: res, AlreadyCompleted: !res.Awarded}
}

// Welcome grants the one-time welcome bonus.
func (s *Service) Welcome(ctx context.Context, userID int64) (ClaimResult, error) {
	res, err := s.ledger.AwardOnce(ctx, ledgersvc.WelcomeKey(userID), userID, s.cfg.Welcome, ledger.ReasonWelcomeBonus, ledger.WelcomeBonusMeta{})
	if err != nil {
		return ClaimResult{}, err
	}
	return claim(res), nil
}

// DailyLoginResult is the outcome of a check-in.
type DailyLoginResult struct {
	Streak         int   `json:"streak"`
	PointsEarned   int64 `json:"points_earned"`
	TotalPoints    int64 `json:"total_points"`
	AlreadyClaimed bool  `json:"already_claimed"`
	Deferred       bool  `json:"deferred,omitempty"`
}

// DailyLogin records today's check-in and rewards 100 + streak*10. The
// check-in row is primary; a failed reward is reconciled later.
func (s *Service) DailyLogin(ctx context.Context, userID int64) (DailyLoginResult, error) {
	now := s.ledger.Now()
	cal := s.ledger.Calendar()
	today := cal.DayKey(now)

	rec, created, err := s.checkins.Insert(ctx, userID, today, cal.DaysAgo(now, 1), now)
	if err != nil {
		return DailyLoginResult{}, s.userError(userID, "insert daily login", err)
	}
	if !created {
		return DailyLoginResult{Streak: rec.Streak, AlreadyClaimed: true}, nil
	}

	reward := int64(dailyLoginBase + rec.Streak*dailyLoginPerStreak)
	out := s.reconciler.AwardOnce(ctx, ledgersvc.DailyLoginKey(userID, today), userID, reward, ledger.ReasonDailyLogin,
		ledger.DailyLoginMeta{Streak: rec.Streak, Date: today})

	result := DailyLoginResult{Streak: rec.Streak, TotalPoints: out.Total, Deferred: out.Deferred}
	if out.Awarded {
		result.PointsEarned = reward
	}
	return result, nil
}

// DailyLoginStatus is today's claim state. Streak is the current streak,
// which continues from yesterday when today is not yet claimed.
type DailyLoginStatus struct {
	ClaimedToday bool `json:"claimed_today"`
	Streak       int  `json:"streak"`
}

func (s *Service) DailyLoginStatus(ctx context.Context, userID int64) (DailyLoginStatus, error) {
	now := s.ledger.Now()
	cal := s.ledger.Calendar()

	rec, err := s.checkins.Get(ctx, userID, cal.DayKey(now))
	if err != nil {
		return DailyLoginStatus{}, apperrors.NewDatabaseError("get daily login", err)
	}
	if rec != nil {
		return DailyLoginStatus{ClaimedToday: true, Streak: rec.Streak}, nil
	}

	prev, err := s.checkins.Get(ctx, userID, cal.DaysAgo(now, 1))
	if err != nil {
		return DailyLoginStatus{}, apperrors.NewDatabaseError("get daily login", err)
	}
	if prev != nil {
		return DailyLoginStatus{Streak: prev.Streak}, nil
	}
	return DailyLoginStatus{}, nil
}

// SpinResult is the prize won on the daily wheel.
type SpinResult struct {
	Prize       Prize `json:"prize"`
	TotalPoints int64 `json:"total_points"`
}

// Spin draws a prize once per reference day.
func (s *Service) Spin(ctx context.Context, userID int64) (SpinResult, error) {
	now := s.ledger.Now()
	date := s.ledger.Calendar().DayKey(now)
	prize := Pick(Wheel, s.rng)

	res, err := s.ledger.AwardOnce(ctx, ledgersvc.DailySpinKey(userID, date), userID, prize.Points, ledger.ReasonDailySpin,
		ledger.DailySpinMeta{PrizeLabel: prize.Label})
	if err != nil {
		return SpinResult{}, err
	}
	if !res.Awarded {
		return SpinResult{}, apperrors.NewAlreadyClaimedError("daily_spin").WithUserID(userID)
	}

	if err := s.users.MarkSpun(ctx, userID, now); err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to update last spin time")
	}
	return SpinResult{Prize: prize, TotalPoints: res.Total}, nil
}

// WalletResult is the outcome of a wallet verification.
type WalletResult struct {
	ClaimResult
	Address string `json:"address"`
}

// WalletPayload issues a TON proof payload for userID.
func (s *Service) WalletPayload(ctx context.Context, userID int64) (string, error) {
	if s.proofs == nil {
		return "", apperrors.New(apperrors.ErrCodeInternal, "Wallet verification is not available")
	}
	return s.proofs.GeneratePayload(ctx, userID)
}

// ConnectWallet verifies the proof, grants the one-time reward and then
// sets the wallet flag. A repeat verification refreshes the stored address.
func (s *Service) ConnectWallet(ctx context.Context, userID int64, req *VerifyRequest) (WalletResult, error) {
	if s.proofs == nil {
		return WalletResult{}, apperrors.New(apperrors.ErrCodeInternal, "Wallet verification is not available")
	}
	addr, err := s.proofs.Verify(ctx, userID, req)
	if err != nil {
		return WalletResult{}, err
	}
	normalized := addr.String()

	res, err := s.ledger.AwardOnce(ctx, ledgersvc.WalletKey(userID), userID, s.cfg.Wallet, ledger.ReasonWalletConnect,
		ledger.WalletConnectMeta{Address: normalized})
	if err != nil {
		return WalletResult{}, err
	}
	if err := s.users.SetWalletConnected(ctx, userID, normalized); err != nil {
		return WalletResult{}, s.userError(userID, "set wallet connected", err)
	}

	s.log.Info().Int64("user_id", userID).Str("address", normalized).Bool("awarded", res.Awarded).Msg("Wallet verified")
	return WalletResult{ClaimResult: claim(res), Address: normalized}, nil
}

// ChannelResult is the outcome of a channel membership check.
type ChannelResult struct {
	Joined bool `json:"joined"`
	*ClaimResult
}

// VerifyChannel checks membership in the configured channel. Non-members
// get Joined=false and nothing is written.
func (s *Service) VerifyChannel(ctx context.Context, userID int64) (ChannelResult, error) {
	if s.chat == nil || s.cfg.ChannelID == "" {
		return ChannelResult{}, apperrors.New(apperrors.ErrCodeBadRequest, "Channel verification is not configured")
	}

	member, err := s.chat.GetChatMember(ctx, s.cfg.ChannelID, userID)
	if err != nil {
		var rpsErr *telegram.RPSError
		if errors.As(err, &rpsErr) {
			return ChannelResult{}, apperrors.NewRateLimitError("telegram", rpsErr.RetryAfter)
		}
		return ChannelResult{}, apperrors.NewTelegramAPIError("getChatMember", err)
	}
	if !member.Joined() {
		return ChannelResult{Joined: false}, nil
	}

	res, err := s.ledger.AwardOnce(ctx, ledgersvc.ChannelKey(userID), userID, s.cfg.Channel, ledger.ReasonChannelJoin,
		ledger.ChannelJoinMeta{ChannelID: s.cfg.ChannelID})
	if err != nil {
		return ChannelResult{}, err
	}
	if err := s.users.SetChannelJoined(ctx, userID); err != nil {
		return ChannelResult{}, s.userError(userID, "set channel joined", err)
	}

	c := claim(res)
	return ChannelResult{Joined: true, ClaimResult: &c}, nil
}

func (s *Service) userError(userID int64, op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return apperrors.NewUnknownUserError(userID)
	}
	return apperrors.NewDatabaseError(op, err)
}
