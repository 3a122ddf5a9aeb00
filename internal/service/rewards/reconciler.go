package rewards

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/domain/ledger"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
)

// Awarder is the guarded half of the ledger writer.
type Awarder interface {
	AwardOnce(ctx context.Context, key string, userID, amount int64, reason ledger.Reason, meta ledger.Metadata) (ledgersvc.Result, error)
}

// Queue accepts rewards for a later retry.
type Queue interface {
	Enqueue(ctx context.Context, p ledger.PendingReward) error
}

// Outcome is the result of a secondary award. Deferred means the award failed
// and was queued for reconciliation.
type Outcome struct {
	ledgersvc.Result
	Deferred bool `json:"deferred,omitempty"`
}

// Reconciler applies rewards that must not roll back the record they follow.
// A failed award is logged and queued under the same idempotency key.
type Reconciler struct {
	awarder Awarder
	queue   Queue
	now     func() time.Time
	log     zerolog.Logger
}

func NewReconciler(awarder Awarder, queue Queue) *Reconciler {
	return &Reconciler{
		awarder: awarder,
		queue:   queue,
		now:     time.Now,
		log:     logger.With("reward_reconciler"),
	}
}

// AwardOnce never returns an error. Validation failures cannot succeed on a
// retry, so they are logged and dropped.
func (r *Reconciler) AwardOnce(ctx context.Context, key string, userID, amount int64, reason ledger.Reason, meta ledger.Metadata) Outcome {
	res, err := r.awarder.AwardOnce(ctx, key, userID, amount, reason, meta)
	if err == nil {
		return Outcome{Result: res}
	}

	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsValidation() {
		r.log.Error().Err(err).
			Str("key", key).
			Int64("user_id", userID).
			Str("reason", string(reason)).
			Msg("Reward rejected, not retrying")
		return Outcome{}
	}

	r.log.Warn().Err(err).
		Str("key", key).
		Int64("user_id", userID).
		Str("reason", string(reason)).
		Int64("amount", amount).
		Msg("Reward failed, deferring to reconciliation")

	if r.queue == nil {
		return Outcome{}
	}
	pending, encErr := ledger.NewPendingReward(key, userID, amount, reason, meta, r.now())
	if encErr != nil {
		r.log.Error().Err(encErr).Str("key", key).Msg("Failed to encode pending reward")
		return Outcome{}
	}
	pending.LastError = err.Error()

	// The request may already be cancelled; the enqueue must still happen.
	if qErr := r.queue.Enqueue(context.WithoutCancel(ctx), pending); qErr != nil {
		r.log.Error().Err(qErr).Str("key", key).Msg("Failed to enqueue pending reward")
		return Outcome{}
	}
	return Outcome{Deferred: true}
}
