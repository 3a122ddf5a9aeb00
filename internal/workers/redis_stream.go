package workers

import (
	"context"
	"errors"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	apperrors "loyalty-points-backend/internal/common/errors"
	"loyalty-points-backend/internal/common/logger"
	"loyalty-points-backend/internal/domain/ledger"
	"loyalty-points-backend/internal/platform/metrics"
	rplatform "loyalty-points-backend/internal/platform/redis"
	ledgersvc "loyalty-points-backend/internal/service/ledger"
)

const (
	readBlock    = 5 * time.Second
	readCount    = 10
	reclaimCount = 50

	resultApplied   = "applied"
	resultDuplicate = "duplicate"
	resultRetried   = "retried"
	resultDead      = "dead"
)

// Awarder replays a pending reward under its idempotency key.
type Awarder interface {
	AwardOnce(ctx context.Context, key string, userID, amount int64, reason ledger.Reason, meta ledger.Metadata) (ledgersvc.Result, error)
}

type StreamConfig struct {
	Group       string
	Consumer    string
	MaxAttempts int
	ReclaimIdle time.Duration
}

// RewardStreamWorker consumes the reconciliation stream through a consumer
// group and replays every pending reward.
type RewardStreamWorker struct {
	rdb     *rplatform.Client
	queue   *RewardQueue
	awarder Awarder
	cfg     StreamConfig
	log     zerolog.Logger
}

func NewRewardStreamWorker(rdb *rplatform.Client, queue *RewardQueue, awarder Awarder, cfg StreamConfig) *RewardStreamWorker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ReclaimIdle <= 0 {
		cfg.ReclaimIdle = 2 * time.Minute
	}
	return &RewardStreamWorker{
		rdb:     rdb,
		queue:   queue,
		awarder: awarder,
		cfg:     cfg,
		log:     logger.With("reward_stream_worker"),
	}
}

// EnsureGroup creates the consumer group and the stream if needed.
func (w *RewardStreamWorker) EnsureGroup(ctx context.Context) error {
	err := w.rdb.XGroupCreateMkStream(ctx, w.queue.Stream(), w.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// Start reads the stream until ctx is cancelled.
func (w *RewardStreamWorker) Start(ctx context.Context) {
	if err := w.EnsureGroup(ctx); err != nil {
		w.log.Error().Err(err).Msg("Failed to create consumer group")
	}

	w.log.Info().Str("stream", w.queue.Stream()).Msg("Starting reward stream worker")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping reward stream worker")
			return
		default:
			if _, err := w.poll(ctx, readBlock); err != nil {
				if ctx.Err() != nil {
					continue
				}
				w.log.Error().Err(err).Msg("Failed to read reward stream")
				time.Sleep(time.Second)
			}
		}
	}
}

// ProcessOnce handles whatever is immediately available without blocking.
func (w *RewardStreamWorker) ProcessOnce(ctx context.Context) (int, error) {
	return w.poll(ctx, -1)
}

func (w *RewardStreamWorker) poll(ctx context.Context, block time.Duration) (int, error) {
	entries, err := w.rdb.XReadGroup(ctx, &goredis.XReadGroupArgs{
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		Streams:  []string{w.queue.Stream(), ">"},
		Count:    readCount,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, nil
		}
		return 0, err
	}

	n := 0
	for _, stream := range entries {
		for _, msg := range stream.Messages {
			w.handle(ctx, msg)
			n++
		}
	}
	return n, nil
}

// Reclaim takes over messages another consumer left pending for longer than
// the reclaim window and handles them.
func (w *RewardStreamWorker) Reclaim(ctx context.Context) (int, error) {
	msgs, _, err := w.rdb.XAutoClaim(ctx, &goredis.XAutoClaimArgs{
		Stream:   w.queue.Stream(),
		Group:    w.cfg.Group,
		Consumer: w.cfg.Consumer,
		MinIdle:  w.cfg.ReclaimIdle,
		Start:    "0-0",
		Count:    reclaimCount,
	}).Result()
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		w.handle(ctx, msg)
	}
	if len(msgs) > 0 {
		w.log.Info().Int("count", len(msgs)).Msg("Reclaimed pending rewards")
	}
	return len(msgs), nil
}

// handle acks the message once its outcome is durable: applied, re-enqueued
// or dead-lettered. Anything else stays pending for Reclaim.
func (w *RewardStreamWorker) handle(ctx context.Context, msg goredis.XMessage) {
	p, err := decodePending(msg.Values)
	if err != nil {
		w.log.Error().Err(err).Str("msg_id", msg.ID).Msg("Dropping malformed pending reward")
		w.ack(ctx, msg.ID)
		metrics.ObserveReconcile(resultDead)
		return
	}

	log := w.log.With().Str("msg_id", msg.ID).Str("key", p.Key).Int64("user_id", p.UserID).Logger()

	meta, err := p.Meta()
	if err != nil {
		p.LastError = err.Error()
		w.deadLetter(ctx, msg.ID, p, log)
		return
	}

	res, err := w.awarder.AwardOnce(ctx, p.Key, p.UserID, p.Amount, p.Reason, meta)
	if err == nil {
		result := resultApplied
		if !res.Awarded {
			result = resultDuplicate
		}
		log.Info().Str("result", result).Int64("total", res.Total).Msg("Pending reward reconciled")
		metrics.ObserveReconcile(result)
		w.ack(ctx, msg.ID)
		return
	}

	p.LastError = err.Error()
	if appErr, ok := apperrors.AsAppError(err); ok && appErr.IsValidation() {
		w.deadLetter(ctx, msg.ID, p, log)
		return
	}

	p.Attempts++
	if p.Attempts >= w.cfg.MaxAttempts {
		w.deadLetter(ctx, msg.ID, p, log)
		return
	}
	if err := w.queue.Enqueue(ctx, p); err != nil {
		log.Error().Err(err).Msg("Failed to re-enqueue pending reward")
		return
	}
	log.Warn().Err(err).Int("attempts", p.Attempts).Msg("Pending reward retry scheduled")
	metrics.ObserveReconcile(resultRetried)
	w.ack(ctx, msg.ID)
}

func (w *RewardStreamWorker) deadLetter(ctx context.Context, id string, p ledger.PendingReward, log zerolog.Logger) {
	if err := w.queue.DeadLetter(ctx, p); err != nil {
		log.Error().Err(err).Msg("Failed to dead-letter pending reward")
		return
	}
	log.Error().Str("last_error", p.LastError).Int("attempts", p.Attempts).Msg("Pending reward dead-lettered")
	metrics.ObserveReconcile(resultDead)
	w.ack(ctx, id)
}

func (w *RewardStreamWorker) ack(ctx context.Context, id string) {
	if err := w.rdb.XAck(ctx, w.queue.Stream(), w.cfg.Group, id).Err(); err != nil {
		w.log.Error().Err(err).Str("msg_id", id).Msg("Failed to ack message")
	}
}
