package education

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("progress not found")

// Repository persists education progress.
type Repository interface {
	SaveSlide(ctx context.Context, userID int64, moduleID string, slide int, at time.Time) (*Progress, error)
	// Complete sets completed_at if it is still empty. The boolean is false
	// when the module had already been completed.
	Complete(ctx context.Context, userID int64, moduleID, badgeID string, at time.Time) (*Progress, bool, error)
	Get(ctx context.Context, userID int64, moduleID string) (*Progress, error)
	List(ctx context.Context, userID int64) ([]Progress, error)
}
