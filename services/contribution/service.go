package contribution

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db/option"
	"campaign-rewards/pkg/db/pagination"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/logger"
	"campaign-rewards/pkg/metrics"
	"campaign-rewards/pkg/repository"
	"campaign-rewards/pkg/sequence"
	"campaign-rewards/services/campaign"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("campaign-rewards/services/contribution")

type Service struct {
	db        *gorm.DB
	node      *snowflake.Node
	seq       sequence.Generator
	allocator *Allocator
	campaign  *campaign.Service
	now       func() time.Time

	contribution repository.Repository[Contribution]
}

type ServiceParams struct {
	fx.In

	DB       *gorm.DB
	Node     *snowflake.Node
	Campaign *campaign.Service
	Config   *config.Config     `optional:"true"`
	Seq      sequence.Generator `optional:"true"`
}

func NewService(p ServiceParams) (*Service, error) {
	allocator, err := NewAllocator(AllocatorConfigFrom(p.Config))
	if err != nil {
		return nil, err
	}

	return &Service{
		db:           p.DB,
		node:         p.Node,
		seq:          p.Seq,
		allocator:    allocator,
		campaign:     p.Campaign,
		now:          func() time.Time { return time.Now().UTC() },
		contribution: repository.ProvideStore[Contribution](p.DB),
	}, nil
}

type ContributeRequest struct {
	CampaignID       string         `json:"campaign_id"`
	ContributorID    string         `json:"-"`
	Amount           int64          `json:"amount"`
	RewardPercentage *int64         `json:"reward_percentage"`
	Metadata         map[string]any `json:"metadata"`
}

func (s *Service) percentage(req ContributeRequest) int64 {
	if req.RewardPercentage == nil {
		return s.allocator.Config().DefaultPercentage
	}
	return *req.RewardPercentage
}

type Result struct {
	Contribution *Contribution
	Fund         *campaign.CampaignFund
}

// Preview returns the allocation a contribution would produce without
// persisting anything.
func (s *Service) Preview(ctx context.Context, req ContributeRequest) (*Contribution, error) {
	ctx, span := tracer.Start(ctx, "contribution.Preview")
	defer span.End()

	pct := s.percentage(req)
	if err := s.allocator.Validate(req.Amount, pct); err != nil {
		return nil, err
	}

	fund, err := s.campaign.LoadActive(ctx, s.db, req.CampaignID)
	if err != nil {
		return nil, err
	}

	c, err := s.allocator.Allocate(fund.CampaignID, req.Amount, pct)
	if err != nil {
		return nil, err
	}
	c.CurrencyCode = fund.CurrencyCode
	c.ContributorID = req.ContributorID

	return &c, nil
}

// Contribute allocates the contribution, appends it to the log and applies it
// to the campaign fund in one transaction.
func (s *Service) Contribute(ctx context.Context, req ContributeRequest) (*Result, error) {
	ctx, span := tracer.Start(ctx, "contribution.Contribute")
	defer span.End()

	zapLog := logger.FromContext(ctx).With(zap.String("campaign_id", req.CampaignID))

	pct := s.percentage(req)
	if err := s.allocator.Validate(req.Amount, pct); err != nil {
		zapLog.Warn("contribution rejected", zap.Error(err))
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

	id := s.node.Generate()
	reference := "CTB-" + id.String()
	if s.seq != nil {
		code, err := s.seq.NextContributionCode(ctx)
		if err != nil {
			zapLog.Warn("sequence unavailable, falling back to id reference", zap.Error(err))
		} else {
			reference = code
		}
	}

	result := &Result{}
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fund, err := s.campaign.LoadActive(ctx, tx, req.CampaignID)
		if err != nil {
			return err
		}

		c, err := s.allocator.Allocate(fund.CampaignID, req.Amount, pct)
		if err != nil {
			return err
		}

		c.ID = id.String()
		c.Reference = reference
		c.ContributorID = req.ContributorID
		c.CurrencyCode = fund.CurrencyCode
		c.Metadata = meta
		c.CreatedAt = s.now()

		if err := s.contribution.WithTrx(tx).Create(ctx, &c); err != nil {
			zapLog.Error("failed to append contribution", zap.Error(err))
			return errutil.StoreUnavailable(err)
		}

		updated, err := s.campaign.ApplyContribution(ctx, tx, fund.CampaignID, c.Allocation())
		if err != nil {
			return err
		}

		result.Contribution = &c
		result.Fund = updated
		return nil
	}); err != nil {
		return nil, wrapStore(err)
	}

	c := result.Contribution
	metrics.ContributionsTotal.WithLabelValues(c.CurrencyCode).Inc()
	metrics.ContributedAmount.WithLabelValues(c.CurrencyCode, "campaign").Add(float64(c.CampaignAllocation))
	metrics.ContributedAmount.WithLabelValues(c.CurrencyCode, "daily").Add(float64(c.DailyAllocation))
	metrics.ContributedAmount.WithLabelValues(c.CurrencyCode, "weekly").Add(float64(c.WeeklyAllocation))

	span.SetAttributes(
		attribute.String("contribution.id", c.ID),
		attribute.Int64("contribution.amount", c.Amount),
	)

	zapLog.Info("contribution applied",
		zap.String("contribution_id", c.ID),
		zap.String("reference", c.Reference),
		zap.Int64("amount", c.Amount),
		zap.Int64("reward_allocation", c.RewardAllocation),
		zap.Int64("current_amount", result.Fund.CurrentAmount),
	)

	return result, nil
}

type ListRequest struct {
	CampaignID    string
	ContributorID string
	pagination.Pagination
}

func (s *Service) List(ctx context.Context, req ListRequest) ([]*Contribution, *pagination.PageInfo, error) {
	ctx, span := tracer.Start(ctx, "contribution.List")
	defer span.End()

	items, err := s.contribution.Find(ctx, &Contribution{
		CampaignID:    req.CampaignID,
		ContributorID: req.ContributorID,
	}, option.ApplyPagination(req.Pagination, "id"))
	if err != nil {
		logger.FromContext(ctx).Error("failed to list contributions", zap.Error(err))
		return nil, nil, errutil.StoreUnavailable(err)
	}

	items, page := pagination.Paginate(items, req.Pagination, func(c *Contribution) string { return c.ID })
	return items, page, nil
}

// PoolTotals is the reward money contributed inside a window, across campaigns.
type PoolTotals struct {
	Daily  int64 `gorm:"column:daily"`
	Weekly int64 `gorm:"column:weekly"`
}

// SumAllocations adds up the daily and weekly allocations of contributions
// created in [from, to).
func (s *Service) SumAllocations(ctx context.Context, from, to time.Time) (PoolTotals, error) {
	var totals PoolTotals
	err := s.db.WithContext(ctx).
		Model(&Contribution{}).
		Select("COALESCE(SUM(daily_allocation), 0) AS daily, COALESCE(SUM(weekly_allocation), 0) AS weekly").
		Scopes(option.Between("created_at", from.UTC(), to.UTC())).
		Scan(&totals).Error
	if err != nil {
		return PoolTotals{}, errutil.StoreUnavailable(err)
	}
	return totals, nil
}

type Reconciliation struct {
	CampaignID string                `json:"campaign_id"`
	Stored     campaign.CampaignFund `json:"stored"`
	Replayed   campaign.CampaignFund `json:"replayed"`
	Entries    int                   `json:"entries"`
	Consistent bool                  `json:"consistent"`
}

// Reconcile replays the contribution log of a campaign and compares the
// result with the stored totals.
func (s *Service) Reconcile(ctx context.Context, campaignID string) (*Reconciliation, error) {
	ctx, span := tracer.Start(ctx, "contribution.Reconcile")
	defer span.End()

	zapLog := logger.FromContext(ctx).With(zap.String("campaign_id", campaignID))

	fund, err := s.campaign.Get(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	entries, err := s.contribution.Find(ctx, &Contribution{CampaignID: campaignID},
		option.WithSortBy(option.QuerySortBy{
			SortBy:  "created_at",
			OrderBy: "asc",
			Allow:   map[string]bool{"created_at": true},
		}),
	)
	if err != nil {
		zapLog.Error("failed to load contribution log", zap.Error(err))
		return nil, errutil.StoreUnavailable(err)
	}

	log := make([]campaign.Allocation, 0, len(entries))
	for _, e := range entries {
		log = append(log, e.Allocation())
	}

	replayed := campaign.Replay(*fund, log)
	consistent := replayed.CurrentAmount == fund.CurrentAmount &&
		replayed.RewardPool == fund.RewardPool &&
		replayed.DailyRewardPool == fund.DailyRewardPool &&
		replayed.WeeklyRewardPool == fund.WeeklyRewardPool &&
		replayed.ContributorsCount == fund.ContributorsCount

	if !consistent {
		zapLog.Error("campaign fund does not match contribution log",
			zap.Int64("stored_current", fund.CurrentAmount),
			zap.Int64("replayed_current", replayed.CurrentAmount),
			zap.Int("entries", len(entries)),
		)
	}

	return &Reconciliation{
		CampaignID: campaignID,
		Stored:     *fund,
		Replayed:   replayed,
		Entries:    len(entries),
		Consistent: consistent,
	}, nil
}

func wrapStore(err error) error {
	var base errutil.BaseError
	if errors.As(err, &base) {
		return err
	}
	return errutil.StoreUnavailable(err)
}
