package contribution

import (
	"time"

	"campaign-rewards/pkg/money"
	"campaign-rewards/services/campaign"

	"gorm.io/datatypes"
)

// Contribution is one immutable funding event. Rows are only ever inserted.
type Contribution struct {
	ID                 string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Reference          string         `gorm:"column:reference;uniqueIndex;type:varchar(64);not null" json:"reference"`
	CampaignID         string         `gorm:"column:campaign_id;index;type:varchar(32);not null" json:"campaign_id"`
	ContributorID      string         `gorm:"column:contributor_id;index;type:varchar(64)" json:"contributor_id,omitempty"`
	Amount             int64          `gorm:"column:amount;not null" json:"amount"`
	RewardPercentage   int64          `gorm:"column:reward_percentage;not null" json:"reward_percentage"`
	CampaignAllocation int64          `gorm:"column:campaign_allocation;not null" json:"campaign_allocation"`
	RewardAllocation   int64          `gorm:"column:reward_allocation;not null" json:"reward_allocation"`
	DailyAllocation    int64          `gorm:"column:daily_allocation;not null" json:"daily_allocation"`
	WeeklyAllocation   int64          `gorm:"column:weekly_allocation;not null" json:"weekly_allocation"`
	CurrencyCode       string         `gorm:"column:currency_code;type:varchar(3);not null" json:"currency_code"`
	Metadata           datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt          time.Time      `gorm:"column:created_at;index;not null" json:"created_at"`
}

func (c *Contribution) Allocation() campaign.Allocation {
	return campaign.Allocation{
		Amount:           c.Amount,
		RewardAllocation: c.RewardAllocation,
		DailyAllocation:  c.DailyAllocation,
		WeeklyAllocation: c.WeeklyAllocation,
	}
}

type View struct {
	ID                 string       `json:"id"`
	Reference          string       `json:"reference"`
	CampaignID         string       `json:"campaign_id"`
	ContributorID      string       `json:"contributor_id,omitempty"`
	Amount             money.Amount `json:"amount"`
	RewardPercentage   int64        `json:"reward_percentage"`
	CampaignAllocation money.Amount `json:"campaign_allocation"`
	RewardAllocation   money.Amount `json:"reward_allocation"`
	DailyAllocation    money.Amount `json:"daily_allocation"`
	WeeklyAllocation   money.Amount `json:"weekly_allocation"`
	CreatedAt          time.Time    `json:"created_at"`
}

func (c *Contribution) ToView() View {
	cur := c.CurrencyCode
	return View{
		ID:                 c.ID,
		Reference:          c.Reference,
		CampaignID:         c.CampaignID,
		ContributorID:      c.ContributorID,
		Amount:             money.New(c.Amount, cur),
		RewardPercentage:   c.RewardPercentage,
		CampaignAllocation: money.New(c.CampaignAllocation, cur),
		RewardAllocation:   money.New(c.RewardAllocation, cur),
		DailyAllocation:    money.New(c.DailyAllocation, cur),
		WeeklyAllocation:   money.New(c.WeeklyAllocation, cur),
		CreatedAt:          c.CreatedAt,
	}
}
