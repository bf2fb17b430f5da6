package period

import (
	"fmt"
	"strings"
	"time"

	"campaign-rewards/pkg/config"

	"go.uber.org/zap"
)

type Type string

const (
	Daily  Type = "daily"
	Weekly Type = "weekly"
)

func Parse(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case Daily:
		return Daily, nil
	case Weekly:
		return Weekly, nil
	default:
		return "", fmt.Errorf("unknown period type %q", s)
	}
}

func (t Type) Valid() bool {
	return t == Daily || t == Weekly
}

// Window is a half-open interval [Start, End).
type Window struct {
	Type  Type      `json:"period_type"`
	Start time.Time `json:"period_start"`
	End   time.Time `json:"period_end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Ended reports whether the window is fully in the past.
func (w Window) Ended(now time.Time) bool {
	return !now.Before(w.End)
}

// Previous returns the window immediately before w.
func (w Window) Previous(loc *time.Location) Window {
	return Of(w.Type, w.Start.Add(-time.Nanosecond), loc)
}

// Of returns the window of type t containing instant at. Days start at local
// midnight in loc; weeks start on Monday.
func Of(t Type, at time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := at.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if t == Weekly {
		offset := (int(start.Weekday()) + 6) % 7
		start = start.AddDate(0, 0, -offset)
		return Window{Type: t, Start: start.UTC(), End: start.AddDate(0, 0, 7).UTC()}
	}

	return Window{Type: Daily, Start: start.UTC(), End: start.AddDate(0, 0, 1).UTC()}
}

// LoadLocation falls back to UTC when name is empty.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(name)
}

// LocationFromConfig resolves ENGINE.TIMEZONE, defaulting to UTC when the
// config is absent or the zone is unknown.
func LocationFromConfig(cfg *config.Config) *time.Location {
	if cfg == nil {
		return time.UTC
	}
	loc, err := LoadLocation(cfg.Engine.Timezone)
	if err != nil {
		zap.L().Warn("unknown engine timezone, using UTC", zap.String("timezone", cfg.Engine.Timezone), zap.Error(err))
		return time.UTC
	}
	return loc
}
