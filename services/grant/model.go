package grant

import (
	"time"

	"campaign-rewards/pkg/money"
	"campaign-rewards/pkg/period"
)

type Status string

const (
	StatusIssued  Status = "issued"
	StatusClaimed Status = "claimed"
)

func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusIssued, StatusClaimed:
		return Status(s), true
	}
	return "", false
}

// Grant is a claimable reward for one user's rank in one period. It moves
// from issued to claimed once and never back.
type Grant struct {
	ID           string      `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	Reference    string      `gorm:"column:reference;uniqueIndex;type:varchar(64);not null" json:"reference"`
	UserID       string      `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex:idx_grant_user_period,priority:1" json:"user_id"`
	PeriodType   period.Type `gorm:"column:period_type;type:varchar(10);not null;uniqueIndex:idx_grant_user_period,priority:2" json:"period_type"`
	PeriodStart  time.Time   `gorm:"column:period_start;not null;uniqueIndex:idx_grant_user_period,priority:3" json:"period_start"`
	PeriodEnd    time.Time   `gorm:"column:period_end;not null" json:"period_end"`
	Rank         int         `gorm:"column:rank;not null" json:"rank"`
	Amount       int64       `gorm:"column:amount;not null" json:"amount"`
	CurrencyCode string      `gorm:"column:currency_code;type:varchar(3);not null" json:"currency_code"`
	Status       Status      `gorm:"column:status;type:varchar(10);index;not null" json:"status"`
	IssuedAt     time.Time   `gorm:"column:issued_at;not null" json:"issued_at"`
	ClaimedAt    *time.Time  `gorm:"column:claimed_at" json:"claimed_at,omitempty"`
}

// PeriodClose marks a period as settled. Its unique index makes closing a
// period a one-time step.
type PeriodClose struct {
	ID              string      `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	PeriodType      period.Type `gorm:"column:period_type;type:varchar(10);not null;uniqueIndex:idx_period_close,priority:1" json:"period_type"`
	PeriodStart     time.Time   `gorm:"column:period_start;not null;uniqueIndex:idx_period_close,priority:2" json:"period_start"`
	PeriodEnd       time.Time   `gorm:"column:period_end;not null" json:"period_end"`
	BasePool        int64       `gorm:"column:base_pool;not null" json:"base_pool"`
	ContributedPool int64       `gorm:"column:contributed_pool;not null" json:"contributed_pool"`
	Budget          int64       `gorm:"column:budget;not null" json:"budget"`
	Winners         int         `gorm:"column:winners;not null" json:"winners"`
	CurrencyCode    string      `gorm:"column:currency_code;type:varchar(3);not null" json:"currency_code"`
	ClosedAt        time.Time   `gorm:"column:closed_at;not null" json:"closed_at"`
}

type View struct {
	ID          string       `json:"id"`
	Reference   string       `json:"reference"`
	UserID      string       `json:"user_id"`
	PeriodType  period.Type  `json:"period_type"`
	PeriodStart time.Time    `json:"period_start"`
	PeriodEnd   time.Time    `json:"period_end"`
	Rank        int          `json:"rank"`
	Amount      money.Amount `json:"amount"`
	Status      Status       `json:"status"`
	IssuedAt    time.Time    `json:"issued_at"`
	ClaimedAt   *time.Time   `json:"claimed_at,omitempty"`
}

func (g *Grant) ToView() View {
	return View{
		ID:          g.ID,
		Reference:   g.Reference,
		UserID:      g.UserID,
		PeriodType:  g.PeriodType,
		PeriodStart: g.PeriodStart,
		PeriodEnd:   g.PeriodEnd,
		Rank:        g.Rank,
		Amount:      money.New(g.Amount, g.CurrencyCode),
		Status:      g.Status,
		IssuedAt:    g.IssuedAt,
		ClaimedAt:   g.ClaimedAt,
	}
}
