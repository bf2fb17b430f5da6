package leaderboard

import (
	"time"

	"campaign-rewards/pkg/period"
)

// Entry is derived from the activity log and never stored on its own.
type Entry struct {
	UserID          string    `json:"user_id"`
	TotalPosts      int64     `json:"total_posts"`
	TotalEngagement int64     `json:"total_engagement"`
	TotalPoints     int64     `json:"total_points"`
	Rank            int       `json:"rank"`
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
}

type Leaderboard struct {
	period.Window
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Top returns at most n entries with positive points, in rank order.
func (l *Leaderboard) Top(n int) []Entry {
	out := make([]Entry, 0, n)
	for _, e := range l.Entries {
		if len(out) == n {
			break
		}
		if e.TotalPoints <= 0 {
			break
		}
		out = append(out, e)
	}
	return out
}
