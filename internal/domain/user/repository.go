package user

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("profile not found")

// Repository defines persistence operations for the Profile aggregate.
// Flag setters are idempotent.
type Repository interface {
	Sync(ctx context.Context, id Identity, at time.Time) (*Profile, error)
	GetByID(ctx context.Context, id int64) (*Profile, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	SetWalletConnected(ctx context.Context, id int64, address string) error
	SetChannelJoined(ctx context.Context, id int64) error
	MarkSpun(ctx context.Context, id int64, at time.Time) error
}

// LifecycleReader feeds retention analysis.
type LifecycleReader interface {
	Lifecycles(ctx context.Context) ([]Lifecycle, error)
}

// NudgeRepository is the read side used by the external nudge batch.
type NudgeRepository interface {
	NudgeCandidates(ctx context.Context, inactiveBefore, notifiedBefore time.Time, limit int) ([]NudgeCandidate, error)
	MarkNotified(ctx context.Context, id int64, at time.Time) error
	DisablePush(ctx context.Context, id int64) error
}
