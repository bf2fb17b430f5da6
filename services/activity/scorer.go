package activity

import (
	"fmt"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
)

var defaultPoints = map[Type]int64{
	TypePostText:  10,
	TypePostImage: 25,
	TypePostVideo: 50,
	TypeShare:     5,
	TypeComment:   2,
	TypeLike:      0,
	TypeView:      0,
}

// Scorer maps an activity type to points. It holds no state beyond its table.
type Scorer struct {
	points map[Type]int64
}

// NewScorer starts from the default table and applies overrides keyed by
// activity type name.
func NewScorer(overrides map[string]int64) (*Scorer, error) {
	points := make(map[Type]int64, len(defaultPoints))
	for t, p := range defaultPoints {
		points[t] = p
	}

	for name, p := range overrides {
		t, ok := ParseType(name)
		if !ok {
			return nil, fmt.Errorf("unknown activity type %q in scoring table", name)
		}
		if p < 0 {
			return nil, fmt.Errorf("negative points for %q", name)
		}
		points[t] = p
	}

	return &Scorer{points: points}, nil
}

func NewScorerFromConfig(cfg *config.Config) (*Scorer, error) {
	if cfg == nil {
		return NewScorer(nil)
	}
	return NewScorer(cfg.Engine.Scoring)
}

func (s *Scorer) Score(t Type) (int64, error) {
	p, ok := s.points[t]
	if !ok {
		return 0, errutil.InvalidActivity(fmt.Sprintf("unknown activity type %q", t))
	}
	return p, nil
}

// RewardEligible is false only for passive activity.
func (s *Scorer) RewardEligible(t Type) bool {
	return t != TypeView
}

// Points returns the score credited to the leaderboard: ineligible activity
// earns nothing regardless of the table.
func (s *Scorer) Points(t Type) (points int64, eligible bool, err error) {
	p, err := s.Score(t)
	if err != nil {
		return 0, false, err
	}
	eligible = s.RewardEligible(t)
	if !eligible {
		return 0, false, nil
	}
	return p, true, nil
}
