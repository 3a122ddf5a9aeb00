package education

import "time"

// Progress tracks a user's position in one module. CompletedAt is set once.
type Progress struct {
	UserID      int64      `json:"user_id"`
	ModuleID    string     `json:"module_id"`
	SlideIndex  int        `json:"slide_index"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	BadgeEarned bool       `json:"badge_earned"`
	BadgeID     string     `json:"badge_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Completed reports whether the module has been finished.
func (p *Progress) Completed() bool {
	return p != nil && p.CompletedAt != nil
}
