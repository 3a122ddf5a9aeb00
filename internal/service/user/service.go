package user

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/common/validation"
	"loyalty-points-backend/internal/domain/ledger"
	domain "loyalty-points-backend/internal/domain/user"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// Service mirrors Telegram identities into profiles.
type Service struct {
	repo    domain.Repository
	history ledger.TransactionReader
	now     func() time.Time
	log     zerolog.Logger
}

func NewService(repo domain.Repository, history ledger.TransactionReader) *Service {
	return &Service{repo: repo, history: history, now: time.Now, log: logger.With("user_service")}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Sync upserts the profile for id and refreshes last_active_at. The first
// sync is the signup.
func (s *Service) Sync(ctx context.Context, id domain.Identity) (*domain.Profile, error) {
	if err := validation.ValidateUserID(id.ID); err != nil {
		return nil, apperrors.NewValidationError("user_id", err.Error())
	}
	p, err := s.repo.Sync(ctx, id, s.now())
	if err != nil {
		return nil, apperrors.NewDatabaseError("sync profile", err).WithUserID(id.ID)
	}
	s.log.Debug().Int64("user_id", id.ID).Msg("Profile synced")
	return p, nil
}

func (s *Service) Me(ctx context.Context, id int64) (*domain.Profile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperrors.NewNotFoundError("profile", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseError("get profile", err).WithUserID(id)
	}
	return p, nil
}

// History lists the user's transactions, newest first.
func (s *Service) History(ctx context.Context, id int64, limit int) ([]ledger.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)
	txs, err := s.history.ListTransactions(ctx, id, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list transactions", err).WithUserID(id)
	}
	if txs == nil {
		txs = []ledger.Transaction{}
	}
	return txs, nil
}
