package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/common/validation"
	domain "loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/platform/metrics"
)

const publishTimeout = 2 * time.Second

// Publisher receives committed awards.
type Publisher interface {
	PublishAward(ctx context.Context, event domain.AwardEvent) error
}

// Result is the outcome of a guarded award. Awarded is false when the
// idempotency key had already been used; Total is the current balance
// either way.
type Result struct {
	Total   int64 `json:"total_points"`
	Awarded bool  `json:"awarded"`
}

// Writer is the only path that mutates point balances.
type Writer struct {
	store  domain.Store
	cal    *domain.Calendar
	events Publisher
	now    func() time.Time
	log    zerolog.Logger
}

func NewWriter(store domain.Store, cal *domain.Calendar, events Publisher) *Writer {
	return &Writer{
		store:  store,
		cal:    cal,
		events: events,
		now:    time.Now,
		log:    logger.With("ledger_writer"),
	}
}

// WithClock replaces the time source.
func (w *Writer) WithClock(now func() time.Time) *Writer {
	w.now = now
	return w
}

func (w *Writer) Calendar() *domain.Calendar { return w.cal }

// Now returns the writer clock so callers derive period keys from the same
// instant the ledger stamps.
func (w *Writer) Now() time.Time { return w.now() }

// AwardPoints records one award and returns the new total. It is not
// idempotent except for one-time reasons, which are routed through their
// canonical key.
func (w *Writer) AwardPoints(ctx context.Context, userID, amount int64, reason domain.Reason, meta domain.Metadata) (int64, error) {
	key := ""
	if reason.OneTime() {
		key = OneTimeKey(reason, userID)
	}
	res, err := w.apply(ctx, key, userID, amount, reason, meta)
	if err != nil {
		return 0, err
	}
	return res.Total, nil
}

// AwardOnce records the award under key. A key that was already used leaves
// every aggregate untouched and returns Awarded=false.
func (w *Writer) AwardOnce(ctx context.Context, key string, userID, amount int64, reason domain.Reason, meta domain.Metadata) (Result, error) {
	if key == "" {
		return Result{}, apperrors.NewValidationError("idempotency_key", "cannot be empty")
	}
	return w.apply(ctx, key, userID, amount, reason, meta)
}

func (w *Writer) apply(ctx context.Context, key string, userID, amount int64, reason domain.Reason, meta domain.Metadata) (Result, error) {
	start := time.Now()

	if meta == nil {
		meta = domain.DefaultMetadata(reason)
	}
	if err := validate(userID, amount, reason, meta); err != nil {
		metrics.ObserveAward(string(reason), metrics.OutcomeRejected, time.Since(start))
		return Result{}, err
	}

	now := w.now()
	entry := domain.Entry{
		Transaction: domain.Transaction{
			ID:             uuid.New(),
			UserID:         userID,
			Amount:         amount,
			Reason:         reason,
			Metadata:       meta,
			IdempotencyKey: key,
			CreatedAt:      now,
		},
		DailyKey:  w.cal.DayKey(now),
		WeeklyKey: w.cal.WeekKey(now),
	}

	res, err := w.store.ApplyAward(ctx, entry)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownUser) {
			metrics.ObserveAward(string(reason), metrics.OutcomeRejected, time.Since(start))
			return Result{}, apperrors.NewUnknownUserError(userID)
		}
		metrics.ObserveAward(string(reason), metrics.OutcomeFailed, time.Since(start))
		w.log.Error().Err(err).
			Int64("user_id", userID).
			Str("reason", string(reason)).
			Int64("amount", amount).
			Msg("Failed to apply award")
		return Result{}, apperrors.NewTransactionError("apply award", err).WithUserID(userID)
	}

	if !res.Applied {
		metrics.ObserveAward(string(reason), metrics.OutcomeDuplicate, time.Since(start))
		w.log.Debug().Int64("user_id", userID).Str("key", key).Msg("Award already applied")
		return Result{Total: res.Total}, nil
	}

	metrics.ObserveAward(string(reason), metrics.OutcomeApplied, time.Since(start))
	w.log.Info().
		Int64("user_id", userID).
		Str("reason", string(reason)).
		Int64("amount", amount).
		Int64("total", res.Total).
		Msg("Points awarded")

	w.publish(ctx, domain.AwardEvent{
		ID:        entry.ID,
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
		Metadata:  meta,
		Total:     res.Total,
		CreatedAt: now,
	})

	return Result{Total: res.Total, Awarded: true}, nil
}

// publish never affects the award outcome.
func (w *Writer) publish(ctx context.Context, event domain.AwardEvent) {
	if w.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := w.events.PublishAward(ctx, event); err != nil {
		w.log.Warn().Err(err).Str("tx_id", event.ID.String()).Msg("Failed to publish award event")
	}
}

func validate(userID, amount int64, reason domain.Reason, meta domain.Metadata) error {
	if err := validation.ValidateUserID(userID); err != nil {
		return apperrors.NewValidationError("user_id", err.Error())
	}
	if err := validation.ValidateAmount(amount); err != nil {
		return apperrors.NewValidationError("amount", err.Error())
	}
	if !reason.Valid() {
		return apperrors.NewUnknownReasonError(string(reason))
	}
	if err := domain.ValidateMetadata(reason, meta); err != nil {
		return apperrors.NewValidationError("metadata", err.Error())
	}
	return nil
}
