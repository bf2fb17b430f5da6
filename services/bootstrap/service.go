package bootstrap

import (
	"context"
	"errors"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/db"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/services/activity"
	"campaign-rewards/services/campaign"
	"campaign-rewards/services/contribution"
	"campaign-rewards/services/grant"
	"campaign-rewards/services/task"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Models lists every table the engine owns.
func Models() []any {
	return []any{
		&campaign.CampaignFund{},
		&contribution.Contribution{},
		&activity.SupporterActivity{},
		&grant.Grant{},
		&grant.PeriodClose{},
		&task.Job{},
	}
}

type Service struct {
	db       *gorm.DB
	config   *config.Config
	campaign *campaign.Service
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Config   *config.Config
	Campaign *campaign.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:       p.DB,
		config:   p.Config,
		campaign: p.Campaign,
	}
}

// Migrate creates the schema when DATABASE.AUTO_MIGRATE is set.
func (s *Service) Migrate() error {
	return db.Migrate(s.config, s.db, Models()...)
}

// SeedCampaign opens the campaign described under BOOTSTRAP.CAMPAIGN. It is
// a no-op when none is configured or the slug already exists.
func (s *Service) SeedCampaign(ctx context.Context) (*campaign.CampaignFund, error) {
	seed := s.config.Bootstrap.Campaign
	if seed.CandidateName == "" {
		return nil, nil
	}

	fund, err := s.campaign.Open(ctx, campaign.OpenRequest{
		Slug:          seed.Slug,
		CandidateName: seed.CandidateName,
		PartyName:     seed.PartyName,
		Position:      seed.Position,
		TargetAmount:  seed.TargetAmount,
	})
	if errors.Is(err, errutil.ErrCampaignExists) {
		zap.L().Info("[bootstrap] default campaign already exists", zap.String("candidate", seed.CandidateName))
		return nil, nil
	}
	if err != nil {
		zap.L().Error("[bootstrap] failed to open default campaign", zap.Error(err))
		return nil, err
	}

	zap.L().Info("[bootstrap] default campaign opened",
		zap.String("campaign_id", fund.CampaignID),
		zap.String("slug", fund.Slug),
	)
	return fund, nil
}
