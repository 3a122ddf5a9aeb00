package workers

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"loyalty-points-backend/internal/domain/ledger"
	rplatform "loyalty-points-backend/internal/platform/redis"
)

const payloadField = "payload"

// RewardQueue appends pending rewards to the reconciliation stream and
// failed ones to the dead-letter stream.
type RewardQueue struct {
	rdb        *rplatform.Client
	stream     string
	deadStream string
}

func NewRewardQueue(rdb *rplatform.Client, stream, deadStream string) *RewardQueue {
	return &RewardQueue{rdb: rdb, stream: stream, deadStream: deadStream}
}

func (q *RewardQueue) Stream() string { return q.stream }

// Enqueue implements rewards.Queue.
func (q *RewardQueue) Enqueue(ctx context.Context, p ledger.PendingReward) error {
	return q.add(ctx, q.stream, p)
}

// DeadLetter parks a reward that will not be retried.
func (q *RewardQueue) DeadLetter(ctx context.Context, p ledger.PendingReward) error {
	return q.add(ctx, q.deadStream, p)
}

func (q *RewardQueue) add(ctx context.Context, stream string, p ledger.PendingReward) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal pending reward: %w", err)
	}
	err = q.rdb.XAdd(ctx, &goredis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{payloadField: string(b)},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add to %s: %w", stream, err)
	}
	return nil
}

func decodePending(values map[string]interface{}) (ledger.PendingReward, error) {
	var p ledger.PendingReward
	raw, ok := values[payloadField].(string)
	if !ok {
		return p, fmt.Errorf("missing %s field", payloadField)
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return p, fmt.Errorf("failed to unmarshal pending reward: %w", err)
	}
	return p, nil
}
