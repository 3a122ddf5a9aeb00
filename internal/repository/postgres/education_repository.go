package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loyalty-points-backend/internal/domain/education"
	"loyalty-points-backend/internal/domain/user"
)

const progressColumns = `user_id, module_id, slide_index, completed_at, badge_earned, COALESCE(badge_id, ''), created_at, updated_at`

type EducationRepository struct {
	db *sql.DB
}

func NewEducationRepository(db *sql.DB) *EducationRepository { return &EducationRepository{db: db} }

func (r *EducationRepository) SaveSlide(ctx context.Context, userID int64, moduleID string, slide int, at time.Time) (*education.Progress, error) {
	q := `
INSERT INTO education_progress (user_id, module_id, slide_index, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4)
ON CONFLICT (user_id, module_id) DO UPDATE SET
	slide_index = EXCLUDED.slide_index,
	updated_at = EXCLUDED.updated_at
RETURNING ` + progressColumns
	p, err := scanProgress(r.db.QueryRowContext(ctx, q, userID, moduleID, slide, at))
	if err != nil {
		if isPQCode(err, pqForeignKeyViolation) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}
	return p, nil
}

// Complete sets completed_at only while it is empty. When the row is
// already complete the upsert matches nothing and the stored row is returned.
func (r *EducationRepository) Complete(ctx context.Context, userID int64, moduleID, badgeID string, at time.Time) (*education.Progress, bool, error) {
	q := `
INSERT INTO education_progress (user_id, module_id, completed_at, badge_earned, badge_id, created_at, updated_at)
VALUES ($1, $2, $3, $4 <> '', NULLIF($4, ''), $3, $3)
ON CONFLICT (user_id, module_id) DO UPDATE SET
	completed_at = EXCLUDED.completed_at,
	badge_earned = EXCLUDED.badge_earned,
	badge_id = EXCLUDED.badge_id,
	updated_at = EXCLUDED.updated_at
WHERE education_progress.completed_at IS NULL
RETURNING ` + progressColumns
	p, err := scanProgress(r.db.QueryRowContext(ctx, q, userID, moduleID, at, badgeID))
	if err == nil {
		return p, true, nil
	}
	if isPQCode(err, pqForeignKeyViolation) {
		return nil, false, user.ErrNotFound
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to complete module: %w", err)
	}

	existing, err := r.Get(ctx, userID, moduleID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *EducationRepository) Get(ctx context.Context, userID int64, moduleID string) (*education.Progress, error) {
	q := `SELECT ` + progressColumns + ` FROM education_progress WHERE user_id=$1 AND module_id=$2`
	p, err := scanProgress(r.db.QueryRowContext(ctx, q, userID, moduleID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, education.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}
	return p, nil
}

func (r *EducationRepository) List(ctx context.Context, userID int64) ([]education.Progress, error) {
	q := `SELECT ` + progressColumns + ` FROM education_progress WHERE user_id=$1 ORDER BY module_id`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	var out []education.Progress
	for rows.Next() {
		p, err := scanProgress(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanProgress(row rowScanner) (*education.Progress, error) {
	var p education.Progress
	if err := row.Scan(&p.UserID, &p.ModuleID, &p.SlideIndex, &p.CompletedAt, &p.BadgeEarned, &p.BadgeID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
