package contribution

import (
	"fmt"

	"campaign-rewards/pkg/config"
	"campaign-rewards/pkg/errutil"
	"campaign-rewards/pkg/money"
)

type AllocatorConfig struct {
	MinPercentage        int64
	MaxPercentage        int64
	DefaultPercentage    int64
	DailySharePercentage int64
}

func DefaultAllocatorConfig() AllocatorConfig {
	return AllocatorConfig{
		MinPercentage:        50,
		MaxPercentage:        90,
		DefaultPercentage:    70,
		DailySharePercentage: 30,
	}
}

// AllocatorConfigFrom reads the engine section, keeping defaults for unset keys.
func AllocatorConfigFrom(cfg *config.Config) AllocatorConfig {
	out := DefaultAllocatorConfig()
	if cfg == nil {
		return out
	}

	e := cfg.Engine
	if e.MinRewardPercentage > 0 {
		out.MinPercentage = e.MinRewardPercentage
	}
	if e.MaxRewardPercentage > 0 {
		out.MaxPercentage = e.MaxRewardPercentage
	}
	if e.DefaultRewardPercentage > 0 {
		out.DefaultPercentage = e.DefaultRewardPercentage
	}
	if e.DailySharePercentage > 0 {
		out.DailySharePercentage = e.DailySharePercentage
	}
	return out
}

type Allocator struct {
	cfg AllocatorConfig
}

func NewAllocator(cfg AllocatorConfig) (*Allocator, error) {
	if cfg.MinPercentage < 0 || cfg.MaxPercentage > 100 || cfg.MinPercentage > cfg.MaxPercentage {
		return nil, fmt.Errorf("invalid reward percentage bounds %d-%d", cfg.MinPercentage, cfg.MaxPercentage)
	}
	if cfg.DailySharePercentage < 0 || cfg.DailySharePercentage > 100 {
		return nil, fmt.Errorf("invalid daily share percentage %d", cfg.DailySharePercentage)
	}
	if cfg.DefaultPercentage < cfg.MinPercentage || cfg.DefaultPercentage > cfg.MaxPercentage {
		cfg.DefaultPercentage = cfg.MinPercentage
	}
	return &Allocator{cfg: cfg}, nil
}

func (a *Allocator) Config() AllocatorConfig {
	return a.cfg
}

// Validate rejects bad input before anything is read or written.
func (a *Allocator) Validate(amount, rewardPercentage int64) error {
	if amount <= 0 {
		return errutil.InvalidAmount("amount must be greater than zero")
	}
	if amount > money.MaxAmount {
		return errutil.InvalidAmount("amount is too large")
	}
	if rewardPercentage < a.cfg.MinPercentage || rewardPercentage > a.cfg.MaxPercentage {
		return errutil.InvalidPercentage(fmt.Sprintf("reward percentage must be between %d and %d",
			a.cfg.MinPercentage, a.cfg.MaxPercentage))
	}
	return nil
}

// Allocate computes the campaign/reward split and the daily/weekly sub-split.
// It has no side effects; applying the record to a fund is a separate step.
func (a *Allocator) Allocate(campaignID string, amount, rewardPercentage int64) (Contribution, error) {
	if err := a.Validate(amount, rewardPercentage); err != nil {
		return Contribution{}, err
	}

	reward, campaignShare := money.SplitWithRemainder(amount, rewardPercentage)
	daily, weekly := money.SplitWithRemainder(reward, a.cfg.DailySharePercentage)

	return Contribution{
		CampaignID:         campaignID,
		Amount:             amount,
		RewardPercentage:   rewardPercentage,
		CampaignAllocation: campaignShare,
		RewardAllocation:   reward,
		DailyAllocation:    daily,
		WeeklyAllocation:   weekly,
	}, nil
}
