package ledger

import (
	"encoding/json"
	"fmt"
	"time"
)

// PendingReward is a guarded award whose anchor committed but whose ledger
// write failed. Replaying it under the same key never double-awards.
type PendingReward struct {
	Key        string          `json:"key"`
	UserID     int64           `json:"user_id"`
	Amount     int64           `json:"amount"`
	Reason     Reason          `json:"reason"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	Attempts   int             `json:"attempts"`
	LastError  string          `json:"last_error,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// NewPendingReward encodes meta for transport.
func NewPendingReward(key string, userID, amount int64, reason Reason, meta Metadata, at time.Time) (PendingReward, error) {
	raw, err := EncodeMetadata(meta)
	if err != nil {
		return PendingReward{}, fmt.Errorf("encode metadata: %w", err)
	}
	return PendingReward{
		Key:        key,
		UserID:     userID,
		Amount:     amount,
		Reason:     reason,
		Metadata:   raw,
		EnqueuedAt: at,
	}, nil
}

// Meta decodes the metadata variant for the reward's reason.
func (p PendingReward) Meta() (Metadata, error) {
	return DecodeMetadata(p.Reason, p.Metadata)
}
