package activity

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db/option"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/metrics"
	"campaign-rewards/pkg/period"
	"campaign-rewards/pkg/rediskey"
	"campaign-rewards/pkg/repository"
	"campaign-rewards/services/campaign"

	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("campaign-rewards/services/activity")

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	redis    *redis.Client
	scorer   *Scorer
	campaign *campaign.Service
	loc      *time.Location
	now      func() time.Time

	activity repository.Repository[SupporterActivity]
}

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Campaign *campaign.Service
	Config   *config.Config `optional:"true"`
	Redis    *redis.Client  `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	scorer, err := NewScorerFromConfig(p.Config)
	if err != nil {
		return nil, err
	}

	return &Service{
		db:       p.DB,
		node:     p.Node,
		redis:    p.Redis,
		scorer:   scorer,
		campaign: p.Campaign,
		loc:      period.LocationFromConfig(p.Config),
		now:      func() time.Time { return time.Now().UTC() },
		activity: repository.ProvideStore[SupporterActivity](p.DB),
	}, nil
}

func (s *Service) Scorer() *Scorer {
	return s.scorer
}

type RecordRequest struct {
	UserID       string         `json:"-"`
	CampaignID   string         `json:"campaign_id"`
	ActivityType string         `json:"activity_type"`
	PostID       string         `json:"post_id"`
	Metadata     map[string]any `json:"metadata"`
}

// RecordActivity scores and stores one supporter action.
func (s *Service) RecordActivity(ctx context.Context, req RecordRequest) (*SupporterActivity, error) {
	ctx, span := tracer.Start(ctx, "activity.RecordActivity")
	defer span.End()

	zapLog := logger.FromContext(ctx).With(
		zap.String("user_id", req.UserID),
		zap.String("campaign_id", req.CampaignID),
		zap.String("activity_type", req.ActivityType),
	)

	if strings.TrimSpace(req.UserID) == "" {
		return nil, errutil.InvalidActivity("user_id is required")
	}

	t, ok := ParseType(req.ActivityType)
	if !ok {
		return nil, errutil.InvalidActivity("unknown activity type " + req.ActivityType)
	}

	if t.IsEngagement() && req.PostID == "" {
		return nil, errutil.InvalidActivity("post_id is required for " + string(t))
	}

	points, eligible, err := s.scorer.Points(t)
	if err != nil {
		return nil, err
	}

	var meta datatypes.JSON
	if len(req.Metadata) > 0 {
		b, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, errutil.BadRequest("invalid metadata", err)
		}
		meta = datatypes.JSON(b)
	}

	fund, err := s.campaign.LoadActive(ctx, s.db, req.CampaignID)
	if err != nil {
		zapLog.Warn("activity rejected", zap.Error(err))
		return nil, err
	}

	a := &SupporterActivity{
		ID:             s.node.Generate().String(),
		UserID:         req.UserID,
		CampaignID:     fund.CampaignID,
		ActivityType:   t,
		PointsEarned:   points,
		RewardEligible: eligible,
		Metadata:       meta,
		CreatedAt:      s.now(),
	}

	if t.IsEngagement() {
		post, err := s.findPost(ctx, req.PostID)
		if err != nil {
			return nil, err
		}
		a.PostID = post.ID
		a.PostAuthorID = post.UserID
	}

	if err := s.activity.Create(ctx, a); err != nil {
		zapLog.Error("failed to store activity", zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	metrics.ActivitiesTotal.WithLabelValues(string(t)).Inc()
	span.SetAttributes(attribute.String("activity.id", a.ID), attribute.Int64("activity.points", a.PointsEarned))

	s.invalidate(ctx, a.CreatedAt)

	zapLog.Info("activity recorded",
		zap.String("activity_id", a.ID),
		zap.Int64("points", a.PointsEarned),
		zap.Bool("reward_eligible", a.RewardEligible),
	)

	return a, nil
}

func (s *Service) findPost(ctx context.Context, postID string) (*SupporterActivity, error) {
	post, err := s.activity.FindOne(ctx, &SupporterActivity{ID: postID})
	if err != nil {
		return nil, errutil.StoreUnavailable(err)
	}
	if post == nil || !post.ActivityType.IsPost() {
		return nil, errutil.PostNotFound(postID)
	}
	return post, nil
}

// invalidate bumps the leaderboard versions of the periods containing at and
// drops their cached boards. A failure only delays freshness until the cache
// TTL runs out.
func (s *Service) invalidate(ctx context.Context, at time.Time) {
	if s.redis == nil {
		return
	}

	var keys []string
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, t := range []period.Type{period.Daily, period.Weekly} {
			start := period.Of(t, at, s.loc).Start
			ver := rediskey.BuildLeaderboardVersionKey(string(t), start)
			key := rediskey.BuildLeaderboardKey(string(t), start)
			keys = append(keys, key)

			pipe.Incr(ctx, ver)
			pipe.Expire(ctx, ver, rediskey.LeaderboardVersionTTL)
			pipe.Del(ctx, key)
		}
		return nil
	})
	if err != nil {
		logger.FromContext(ctx).Warn("failed to invalidate leaderboard cache", zap.Strings("keys", keys), zap.Error(err))
	}
}

// ListInWindow returns every activity created in [from, to), oldest first.
func (s *Service) ListInWindow(ctx context.Context, from, to time.Time) ([]*SupporterActivity, error) {
	ctx, span := tracer.Start(ctx, "activity.ListInWindow")
	defer span.End()

	items, err := s.activity.Find(ctx, &SupporterActivity{},
		option.Between("created_at", from.UTC(), to.UTC()),
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to load activities", zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	return items, nil
}
