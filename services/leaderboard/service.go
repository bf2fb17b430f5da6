package leaderboard

import (
	"context"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/period"
	"campaign-rewards/services/activity"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("campaign-rewards/services/leaderboard")

const defaultCacheTTL = 30 * time.Second

type Service struct {
	activity *activity.Service
	cache    *Cache
	weights  Weights
	loc      *time.Location
	now      func() time.Time
	group    singleflight.Group
}

type ServiceParams struct {
	fx.In

	Activity *activity.Service
	Config   *config.Config `optional:"true"`
	Redis    *redis.Client  `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	weights, err := WeightsFromConfig(p.Config)
	if err != nil {
		return nil, err
	}

	ttl := defaultCacheTTL
	if p.Config != nil && p.Config.Engine.LeaderboardCacheTTL > 0 {
		ttl = p.Config.Engine.LeaderboardCacheTTL
	}

	return &Service{
		activity: p.Activity,
		cache:    NewCache(p.Redis, ttl),
		weights:  weights,
		loc:      period.LocationFromConfig(p.Config),
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *Service) Location() *time.Location {
	return s.loc
}

// Window resolves a period type and any instant inside it to the period
// boundaries. A zero instant means the current period.
func (s *Service) Window(periodType string, at time.Time) (period.Window, error) {
	t, err := period.Parse(periodType)
	if err != nil {
		return period.Window{}, errutil.InvalidPeriod(err.Error())
	}
	if at.IsZero() {
		at = s.now()
	}
	return period.Of(t, at, s.loc), nil
}

// GetLeaderboard serves the ranked leaderboard of a period, from cache when
// possible. Concurrent misses for the same period share one computation.
func (s *Service) GetLeaderboard(ctx context.Context, periodType string, periodStart time.Time) (*Leaderboard, error) {
	ctx, span := tracer.Start(ctx, "leaderboard.GetLeaderboard")
	defer span.End()

	w, err := s.Window(periodType, periodStart)
	if err != nil {
		return nil, err
	}

	zapLog := logger.FromContext(ctx).With(
		zap.String("period_type", string(w.Type)),
		zap.Time("period_start", w.Start),
	)

	if lb, ok, err := s.cache.Get(ctx, w); err != nil {
		zapLog.Warn("leaderboard cache read failed", zap.Error(err))
	} else if ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return lb, nil
	}

	v, err, _ := s.group.Do(key(w), func() (interface{}, error) {
		version, verErr := s.cache.Version(ctx, w)
		if verErr != nil {
			zapLog.Warn("leaderboard cache version read failed", zap.Error(verErr))
		}

		lb, err := s.Compute(ctx, w)
		if err != nil {
			return nil, err
		}
		if verErr == nil {
			if err := s.cache.Set(ctx, lb, version); err != nil {
				zapLog.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
		return lb, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*Leaderboard), nil
}

// Compute ranks the period straight from the activity log.
func (s *Service) Compute(ctx context.Context, w period.Window) (*Leaderboard, error) {
	ctx, span := tracer.Start(ctx, "leaderboard.Compute")
	defer span.End()

	items, err := s.activity.ListInWindow(ctx, w.Start, w.End)
	if err != nil {
		return nil, err
	}

	entries := Rank(items, w.Start, w.End, s.weights)
	span.SetAttributes(attribute.Int("leaderboard.entries", len(entries)))

	return &Leaderboard{
		Window:      w,
		Entries:     entries,
		GeneratedAt: s.now(),
	}, nil
}
