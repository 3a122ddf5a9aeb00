package leaderboard

import (
	"loyalty-points-backend/internal/domain/ledger"
)

const (
	// TopLimit is the size of an anonymous leaderboard.
	TopLimit = 50
	// TopBlock is always shown before a gap.
	TopBlock = 3
	// Ahead and Behind bound the requester's neighborhood.
	Ahead  = 2
	Behind = 10

	// GapRank marks omitted entries.
	GapRank = -1
)

// Entry is one ranked row, or the gap marker when Rank is GapRank.
type Entry struct {
	Rank          int    `json:"rank"`
	UserID        int64  `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
	FirstName     string `json:"first_name,omitempty"`
	Points        int64  `json:"points"`
	IsCurrentUser bool   `json:"is_current_user,omitempty"`
}

// IsGap reports whether e is the gap marker.
func (e Entry) IsGap() bool { return e.Rank == GapRank }

// View is the windowed leaderboard returned to clients. TotalParticipants
// counts ranked users only.
type View struct {
	Period            ledger.PeriodType `json:"period"`
	PeriodKey         string            `json:"period_key,omitempty"`
	Entries           []Entry           `json:"entries"`
	UserRank          *int              `json:"user_rank"`
	TotalParticipants int               `json:"total_participants"`
	HasGap            bool              `json:"has_gap"`
}

// Window selects the visible entries of an ordered standings list.
//
// Without a requester it returns the top TopLimit. A requester missing from
// the list sees the top TopBlock. A requester ranked within TopBlock sees
// ranks 1 through TopBlock+Behind. Anyone else sees a neighborhood of Ahead
// entries above and Behind below, preceded by the top block and a gap marker
// when the neighborhood starts more than TopBlock entries past the top block.
func Window(standings []ledger.Standing, requester *int64) (entries []Entry, userRank *int, hasGap bool) {
	n := len(standings)
	ranked := make([]Entry, n)
	idx := -1
	for i, s := range standings {
		ranked[i] = Entry{
			Rank:      i + 1,
			UserID:    s.UserID,
			Username:  s.Username,
			FirstName: s.FirstName,
			Points:    s.Points,
		}
		if requester != nil && s.UserID == *requester {
			idx = i
			ranked[i].IsCurrentUser = true
		}
	}

	if requester == nil {
		return ranked[:min(n, TopLimit)], nil, false
	}
	if idx < 0 {
		return ranked[:min(n, TopBlock)], nil, false
	}

	rank := idx + 1
	if rank <= TopBlock {
		return ranked[:min(n, TopBlock+Behind)], &rank, false
	}

	start := max(0, idx-Ahead)
	end := min(n, idx+Behind+1)
	if start-TopBlock > TopBlock {
		out := make([]Entry, 0, TopBlock+1+end-start)
		out = append(out, ranked[:TopBlock]...)
		out = append(out, Entry{Rank: GapRank})
		out = append(out, ranked[start:end]...)
		return out, &rank, true
	}
	return ranked[:end], &rank, false
}
