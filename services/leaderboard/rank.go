package leaderboard

import (
	"fmt"
	"sort"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/services/activity"
)

// Weights sets how much each engagement type received on a post counts
// towards its author's total engagement.
type Weights map[activity.Type]int64

func DefaultWeights() Weights {
	return Weights{
		activity.TypeLike:    1,
		activity.TypeShare:   1,
		activity.TypeView:    1,
		activity.TypeComment: 0,
	}
}

func WeightsFromConfig(cfg *config.Config) (Weights, error) {
	w := DefaultWeights()
	if cfg == nil {
		return w, nil
	}

	for name, v := range cfg.Engine.EngagementWeights {
		t, ok := activity.ParseType(name)
		if !ok || !t.IsEngagement() {
			return nil, fmt.Errorf("unknown engagement type %q", name)
		}
		if v < 0 {
			return nil, fmt.Errorf("negative engagement weight for %q", name)
		}
		w[t] = v
	}
	return w, nil
}

// Rank rolls the activities inside [start, end) up per user and orders them
// by points, then engagement, then user id. The output depends only on the
// inputs, never on their order.
func Rank(activities []*activity.SupporterActivity, start, end time.Time, weights Weights) []Entry {
	if weights == nil {
		weights = DefaultWeights()
	}

	byUser := map[string]*Entry{}
	entry := func(userID string) *Entry {
		e, ok := byUser[userID]
		if !ok {
			e = &Entry{UserID: userID, PeriodStart: start, PeriodEnd: end}
			byUser[userID] = e
		}
		return e
	}

	for _, a := range activities {
		if a == nil || a.CreatedAt.Before(start) || !a.CreatedAt.Before(end) {
			continue
		}

		e := entry(a.UserID)
		e.TotalPoints += a.PointsEarned
		if a.ActivityType.IsPost() {
			e.TotalPosts++
		}

		if a.ActivityType.IsEngagement() && a.PostAuthorID != "" {
			if w := weights[a.ActivityType]; w > 0 {
				entry(a.PostAuthorID).TotalEngagement += w
			}
		}
	}

	entries := make([]Entry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.TotalEngagement != b.TotalEngagement {
			return a.TotalEngagement > b.TotalEngagement
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	return entries
}
