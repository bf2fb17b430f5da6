package campaign

import (
	"time"

	"campaign-rewards/pkg/money"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusClosed   Status = "CLOSED"
	StatusArchived Status = "ARCHIVED"
)

// CampaignFund holds the running totals of one campaign. Totals only move
// through Apply; the contribution log is the source of truth.
type CampaignFund struct {
	CampaignID        string         `gorm:"column:campaign_id;primaryKey;type:varchar(32)" json:"campaign_id"`
	Slug              string         `gorm:"column:slug;uniqueIndex;type:varchar(255);not null" json:"slug"`
	CandidateName     string         `gorm:"column:candidate_name;type:varchar(255);not null" json:"candidate_name"`
	PartyName         string         `gorm:"column:party_name;type:varchar(255)" json:"party_name"`
	Position          string         `gorm:"column:position;type:varchar(255)" json:"position"`
	Description       string         `gorm:"column:description;type:text" json:"description"`
	TargetAmount      int64          `gorm:"column:target_amount;not null" json:"target_amount"`
	CurrentAmount     int64          `gorm:"column:current_amount;not null" json:"current_amount"`
	RewardPool        int64          `gorm:"column:reward_pool;not null" json:"reward_pool"`
	DailyRewardPool   int64          `gorm:"column:daily_reward_pool;not null" json:"daily_reward_pool"`
	WeeklyRewardPool  int64          `gorm:"column:weekly_reward_pool;not null" json:"weekly_reward_pool"`
	ContributorsCount int64          `gorm:"column:contributors_count;not null" json:"contributors_count"`
	CurrencyCode      string         `gorm:"column:currency_code;type:varchar(3);not null" json:"currency_code"`
	Status            Status         `gorm:"column:status;type:varchar(20);index;not null" json:"status"`
	EndDate           *time.Time     `gorm:"column:end_date" json:"end_date,omitempty"`
	Metadata          datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsActive checks the status and the end date.
func (c *CampaignFund) IsActive(now time.Time) bool {
	if c.Status != StatusActive {
		return false
	}
	if c.EndDate != nil && now.After(*c.EndDate) {
		return false
	}
	return true
}

// Allocation is the part of a contribution the fund absorbs.
type Allocation struct {
	Amount           int64
	RewardAllocation int64
	DailyAllocation  int64
	WeeklyAllocation int64
}

// Apply returns fund with one contribution folded in. Deduplication is the
// caller's job: every contribution is applied exactly once.
func Apply(fund CampaignFund, a Allocation) CampaignFund {
	fund.CurrentAmount += a.Amount
	fund.RewardPool += a.RewardAllocation
	fund.DailyRewardPool += a.DailyAllocation
	fund.WeeklyRewardPool += a.WeeklyAllocation
	fund.ContributorsCount++
	return fund
}

// Replay rebuilds the totals of fund from its contribution log.
func Replay(fund CampaignFund, log []Allocation) CampaignFund {
	fund.CurrentAmount = 0
	fund.RewardPool = 0
	fund.DailyRewardPool = 0
	fund.WeeklyRewardPool = 0
	fund.ContributorsCount = 0

	for _, a := range log {
		fund = Apply(fund, a)
	}
	return fund
}

// Progress is min(current/target, 1).
func Progress(fund CampaignFund) decimal.Decimal {
	return money.Ratio(fund.CurrentAmount, fund.TargetAmount)
}

// View is the read model returned to clients.
type View struct {
	CampaignID        string          `json:"campaign_id"`
	Slug              string          `json:"slug"`
	CandidateName     string          `json:"candidate_name"`
	PartyName         string          `json:"party_name"`
	Position          string          `json:"position"`
	Description       string          `json:"description,omitempty"`
	TargetAmount      money.Amount    `json:"target_amount"`
	CurrentAmount     money.Amount    `json:"current_amount"`
	RewardPool        money.Amount    `json:"reward_pool"`
	DailyRewardPool   money.Amount    `json:"daily_reward_pool"`
	WeeklyRewardPool  money.Amount    `json:"weekly_reward_pool"`
	ContributorsCount int64           `json:"contributors_count"`
	Progress          decimal.Decimal `json:"progress"`
	Status            Status          `json:"status"`
	IsActive          bool            `json:"is_active"`
	EndDate           *time.Time      `json:"end_date,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (c *CampaignFund) ToView(now time.Time) View {
	cur := c.CurrencyCode
	return View{
		CampaignID:        c.CampaignID,
		Slug:              c.Slug,
		CandidateName:     c.CandidateName,
		PartyName:         c.PartyName,
		Position:          c.Position,
		Description:       c.Description,
		TargetAmount:      money.New(c.TargetAmount, cur),
		CurrentAmount:     money.New(c.CurrentAmount, cur),
		RewardPool:        money.New(c.RewardPool, cur),
		DailyRewardPool:   money.New(c.DailyRewardPool, cur),
		WeeklyRewardPool:  money.New(c.WeeklyRewardPool, cur),
		ContributorsCount: c.ContributorsCount,
		Progress:          Progress(*c),
		Status:            c.Status,
		IsActive:          c.IsActive(now),
		EndDate:           c.EndDate,
		CreatedAt:         c.CreatedAt,
	}
}
