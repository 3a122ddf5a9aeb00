package education

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/common/validation"
	domain "loyalty-points-backend/internal/domain/education"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/domain/user"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
	"loyalty-points-backend/internal/service/rewards"
)

// DeferredAwarder applies a reward that must not undo the completion.
type DeferredAwarder interface {
	AwardOnce(ctx context.Context, key string, userID, amount int64, reason ledger.Reason, meta ledger.Metadata) rewards.Outcome
}

type Service struct {
	repo    domain.Repository
	awarder DeferredAwarder
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(repo domain.Repository, awarder DeferredAwarder) *Service {
	return &Service{
		repo:    repo,
		awarder: awarder,
		now:     time.Now,
		log:     logger.With("education"),
	}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Progress returns nil when the user has not started the module.
func (s *Service) Progress(ctx context.Context, userID int64, moduleID string) (*domain.Progress, error) {
	if err := validation.ValidateModuleID(moduleID); err != nil {
		return nil, apperrors.NewValidationError("module_id", err.Error())
	}
	p, err := s.repo.Get(ctx, userID, moduleID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewDatabaseError("get progress", err)
	}
	return p, nil
}

func (s *Service) ListProgress(ctx context.Context, userID int64) ([]domain.Progress, error) {
	list, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list progress", err)
	}
	if list == nil {
		list = []domain.Progress{}
	}
	return list, nil
}

// SaveSlide stores the user's position in a module.
func (s *Service) SaveSlide(ctx context.Context, userID int64, moduleID string, slide int) (*domain.Progress, error) {
	if err := validation.ValidateModuleID(moduleID); err != nil {
		return nil, apperrors.NewValidationError("module_id", err.Error())
	}
	if err := validation.ValidateSlideIndex(slide); err != nil {
		return nil, apperrors.NewValidationError("slide_index", err.Error())
	}
	p, err := s.repo.SaveSlide(ctx, userID, moduleID, slide, s.now())
	if err != nil {
		return nil, s.repoError(userID, "save progress", err)
	}
	return p, nil
}

// CompleteRequest carries the module and its reward.
type CompleteRequest struct {
	ModuleID string `json:"module_id" binding:"required"`
	BadgeID  string `json:"badge_id"`
	Points   int64  `json:"points_amount"`
}

type CompleteResult struct {
	Progress         *domain.Progress `json:"progress"`
	AlreadyCompleted bool             `json:"already_completed"`
	NewPoints        *int64           `json:"new_points"`
	Deferred         bool             `json:"reward_deferred,omitempty"`
}

// Complete marks the module finished once. Points are awarded only on the
// first completion and only when positive; a failed award is reconciled
// later without undoing the completion.
func (s *Service) Complete(ctx context.Context, userID int64, req CompleteRequest) (CompleteResult, error) {
	if err := validation.ValidateModuleID(req.ModuleID); err != nil {
		return CompleteResult{}, apperrors.NewValidationError("module_id", err.Error())
	}
	if err := validation.ValidateBadgeID(req.BadgeID); err != nil {
		return CompleteResult{}, apperrors.NewValidationError("badge_id", err.Error())
	}
	if req.Points < 0 {
		return CompleteResult{}, apperrors.NewValidationError("points_amount", "cannot be negative")
	}

	p, first, err := s.repo.Complete(ctx, userID, req.ModuleID, req.BadgeID, s.now())
	if err != nil {
		return CompleteResult{}, s.repoError(userID, "complete module", err)
	}
	if !first {
		return CompleteResult{Progress: p, AlreadyCompleted: true}, nil
	}

	s.log.Info().Int64("user_id", userID).Str("module_id", req.ModuleID).Msg("Module completed")

	result := CompleteResult{Progress: p}
	if req.Points > 0 {
		out := s.awarder.AwardOnce(ctx, ledgersvc.EducationKey(userID, req.ModuleID), userID, req.Points,
			ledger.ReasonEducationComplete, ledger.EducationCompleteMeta{ModuleID: req.ModuleID, BadgeID: req.BadgeID})
		result.Deferred = out.Deferred
		if out.Awarded {
			total := out.Total
			result.NewPoints = &total
		}
	}
	return result, nil
}

func (s *Service) repoError(userID int64, op string, err error) error {
	if errors.Is(err, user.ErrNotFound) {
		return apperrors.NewUnknownUserError(userID)
	}
	return apperrors.NewDatabaseError(op, err)
}
