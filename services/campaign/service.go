package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db/option"
	"campaign-rewards/pkg/db/pagination"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/money"
	"campaign-rewards/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.opentelemetry.io/otel"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("campaign-rewards/services/campaign")

type Service struct {
	db       *gorm.DB
	node     *snowflake.Node
	currency  string
	minTarget int64
	now       func() time.Time

	campaign repository.Repository[CampaignFund]
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Config *config.Config `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	currency := "NGN"
	var minTarget int64
	if p.Config != nil {
		if p.Config.Engine.CurrencyCode != "" {
			currency = p.Config.Engine.CurrencyCode
		}
		minTarget = p.Config.Engine.MinTargetAmount
	}

	return &Service{
		db:        p.DB,
		node:      p.Node,
		currency:  currency,
		minTarget: minTarget,
		now:       func() time.Time { return time.Now().UTC() },
		campaign:  repository.ProvideStore[CampaignFund](p.DB),
	}
}

func (s *Service) CurrencyCode() string {
	return s.currency
}

type OpenRequest struct {
	Slug          string         `json:"slug"`
	CandidateName string         `json:"candidate_name"`
	PartyName     string         `json:"party_name"`
	Position      string         `json:"position"`
	Description   string         `json:"description"`
	TargetAmount  int64          `json:"target_amount"`
	EndDate       *time.Time     `json:"end_date"`
	Metadata      map[string]any `json:"metadata"`
}

// Open creates a campaign fund with zero totals. The target must reach the
// configured minimum and an end date, when given, must be in the future.
func (s *Service) Open(ctx context.Context, req OpenRequest) (*CampaignFund, error) {
	ctx, span := tracer.Start(ctx, "campaign.Open")
	defer span.End()

	zapLog := logger.FromContext(ctx)

	if req.TargetAmount <= 0 || req.TargetAmount > money.MaxAmount {
		return nil, errutil.InvalidAmount("target amount must be positive")
	}

	if req.TargetAmount < s.minTarget {
		return nil, errutil.InvalidAmount(fmt.Sprintf("target amount must be at least %d", s.minTarget))
	}

	if req.EndDate != nil && !req.EndDate.After(s.now()) {
		return nil, errutil.InvalidPeriod("end date must be in the future")
	}

	if strings.TrimSpace(req.CandidateName) == "" {
		return nil, errutil.ValidationFailed("candidate name is required", nil,
			errutil.WithDetails(errutil.Detail{Field: "candidate_name", Message: "required"}))
	}

	slugName := req.Slug
	if slugName == "" {
		slugName = slug.Make(strings.TrimSpace(req.CandidateName + " " + req.Position))
	}

	exist, err := s.campaign.FindOne(ctx, &CampaignFund{Slug: slugName})
	if err != nil {
		zapLog.Error("failed query campaign by slug", zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	if exist != nil {
		zapLog.Warn("campaign already exists", zap.String("slug", slugName))
		return nil, errutil.Conflict("campaign already exists", nil, errutil.WithReason(errutil.ReasonCampaignExists))
	}

	var meta datatypes.JSON
	if len(req.Metadata) > 0 {
		b, err := json.Marshal(req.Metadata)
		if err != nil {
			return nil, errutil.BadRequest("invalid metadata", err)
		}
		meta = datatypes.JSON(b)
	}

	fund := &CampaignFund{
		CampaignID:    s.node.Generate().String(),
		Slug:          slugName,
		CandidateName: req.CandidateName,
		PartyName:     req.PartyName,
		Position:      req.Position,
		Description:   req.Description,
		TargetAmount:  req.TargetAmount,
		CurrencyCode:  s.currency,
		Status:        StatusActive,
		EndDate:       utcPtr(req.EndDate),
		Metadata:      meta,
	}

	if err := s.campaign.Create(ctx, fund); err != nil {
		zapLog.Error("failed to create campaign", zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	zapLog.Info("campaign opened",
		zap.String("campaign_id", fund.CampaignID),
		zap.String("slug", fund.Slug),
		zap.Int64("target_amount", fund.TargetAmount),
	)

	return fund, nil
}

// Get returns the current fund state.
func (s *Service) Get(ctx context.Context, campaignID string) (*CampaignFund, error) {
	ctx, span := tracer.Start(ctx, "campaign.Get")
	defer span.End()

	return s.find(ctx, s.db, campaignID)
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, campaignID string) (*CampaignFund, error) {
	if campaignID == "" {
		return nil, errutil.CampaignNotFound(campaignID)
	}

	fund, err := s.campaign.WithTrx(tx).FindOne(ctx, &CampaignFund{CampaignID: campaignID})
	if err != nil {
		logger.FromContext(ctx).Error("failed to query campaign", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	if fund == nil {
		return nil, errutil.CampaignNotFound(campaignID)
	}

	return fund, nil
}

// LoadActive returns the campaign inside tx, failing when it is missing or
// no longer accepts contributions and activity.
func (s *Service) LoadActive(ctx context.Context, tx *gorm.DB, campaignID string) (*CampaignFund, error) {
	fund, err := s.find(ctx, tx, campaignID)
	if err != nil {
		return nil, err
	}

	if !fund.IsActive(s.now()) {
		return nil, errutil.CampaignInactive(campaignID)
	}

	return fund, nil
}

// ApplyContribution folds one allocation into the stored totals with a single
// UPDATE, so concurrent contributions to the same campaign never lose writes.
func (s *Service) ApplyContribution(ctx context.Context, tx *gorm.DB, campaignID string, a Allocation) (*CampaignFund, error) {
	res := tx.WithContext(ctx).
		Model(&CampaignFund{}).
		Where("campaign_id = ? AND status = ?", campaignID, StatusActive).
		Updates(map[string]any{
			"current_amount":     gorm.Expr("current_amount + ?", a.Amount),
			"reward_pool":        gorm.Expr("reward_pool + ?", a.RewardAllocation),
			"daily_reward_pool":  gorm.Expr("daily_reward_pool + ?", a.DailyAllocation),
			"weekly_reward_pool": gorm.Expr("weekly_reward_pool + ?", a.WeeklyAllocation),
			"contributors_count": gorm.Expr("contributors_count + ?", 1),
			"updated_at":         s.now(),
		})
	if res.Error != nil {
		return nil, errutil.StoreUnavailable(res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, errutil.CampaignInactive(campaignID)
	}

	return s.find(ctx, tx, campaignID)
}

type ListRequest struct {
	Status Status
	pagination.Pagination
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]*CampaignFund, *pagination.PageInfo, error) {
	ctx, span := tracer.Start(ctx, "campaign.List")
	defer span.End()

	funds, err := s.campaign.Find(ctx, &CampaignFund{Status: req.Status},
		option.ApplyPagination(req.Pagination, "campaign_id"),
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list campaigns", zap.Error(err))
		return nil, nil, errutil.StoreUnavailable(err)
	}

	funds, page := pagination.Paginate(funds, req.Pagination, func(c *CampaignFund) string { return c.CampaignID })
	return funds, page, nil
}

// Close stops an active campaign from accepting contributions.
func (s *Service) Close(ctx context.Context, campaignID string) (*CampaignFund, error) {
	ctx, span := tracer.Start(ctx, "campaign.Close")
	defer span.End()

	return s.transition(ctx, campaignID, []Status{StatusActive}, StatusClosed)
}

// Archive hides a campaign. Campaigns are never deleted.
func (s *Service) Archive(ctx context.Context, campaignID string) (*CampaignFund, error) {
	ctx, span := tracer.Start(ctx, "campaign.Archive")
	defer span.End()

	return s.transition(ctx, campaignID, []Status{StatusActive, StatusClosed}, StatusArchived)
}

func (s *Service) transition(ctx context.Context, campaignID string, from []Status, to Status) (*CampaignFund, error) {
	zapLog := logger.FromContext(ctx).With(zap.String("campaign_id", campaignID))

	fund, err := s.find(ctx, s.db, campaignID)
	if err != nil {
		return nil, err
	}

	if fund.Status == to {
		return fund, nil
	}

	res := s.db.WithContext(ctx).
		Model(&CampaignFund{}).
		Where("campaign_id = ? AND status IN ?", campaignID, from).
		Updates(map[string]any{"status": to, "updated_at": s.now()})
	if res.Error != nil {
		zapLog.Error("failed to update campaign status", zap.Error(res.Error))
		return nil, errutil.StoreUnavailable(res.Error)
	}

	if res.RowsAffected == 0 {
		return nil, errutil.UnprocessableEntity("campaign cannot move to "+string(to), nil,
			errutil.WithReason(errutil.ReasonCampaignInactive))
	}

	zapLog.Info("campaign status changed", zap.String("from", string(fund.Status)), zap.String("to", string(to)))

	return s.find(ctx, s.db, campaignID)
}

// ExpireEnded closes every active campaign whose end date has passed.
func (s *Service) ExpireEnded(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "campaign.ExpireEnded")
	defer span.End()

	now := s.now()
	res := s.db.WithContext(ctx).
		Model(&CampaignFund{}).
		Where("status = ? AND end_date IS NOT NULL AND end_date < ?", StatusActive, now).
		Updates(map[string]any{"status": StatusClosed, "updated_at": now})
	if res.Error != nil {
		logger.FromContext(ctx).Error("failed to expire campaigns", zap.Error(res.Error))
		return 0, errutil.StoreUnavailable(res.Error)
	}

	if res.RowsAffected > 0 {
		logger.FromContext(ctx).Info("expired ended campaigns", zap.Int64("count", res.RowsAffected))
	}

	return res.RowsAffected, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
