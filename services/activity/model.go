package activity

import (
	"time"

	"gorm.io/datatypes"
)

type Type string

const (
	TypePostText  Type = "post_text"
	TypePostImage Type = "post_image"
	TypePostVideo Type = "post_video"
	TypeShare     Type = "share"
	TypeLike      Type = "like"
	TypeComment   Type = "comment"
	TypeView      Type = "view"
)

var AllTypes = []Type{
	TypePostText, TypePostImage, TypePostVideo,
	TypeShare, TypeLike, TypeComment, TypeView,
}

func ParseType(s string) (Type, bool) {
	for _, t := range AllTypes {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// IsPost reports whether the activity creates content others can engage with.
func (t Type) IsPost() bool {
	return t == TypePostText || t == TypePostImage || t == TypePostVideo
}

// IsEngagement reports whether the activity targets an existing post.
func (t Type) IsEngagement() bool {
	return t == TypeShare || t == TypeLike || t == TypeComment || t == TypeView
}

// SupporterActivity is append-only. For post types the row id doubles as the post id.
type SupporterActivity struct {
	ID             string         `gorm:"column:id;primaryKey;type:varchar(32)" json:"id"`
	UserID         string         `gorm:"column:user_id;index;type:varchar(64);not null" json:"user_id"`
	CampaignID     string         `gorm:"column:campaign_id;index;type:varchar(32);not null" json:"campaign_id"`
	ActivityType   Type           `gorm:"column:activity_type;type:varchar(20);not null" json:"activity_type"`
	PostID         string         `gorm:"column:post_id;index;type:varchar(32)" json:"post_id,omitempty"`
	PostAuthorID   string         `gorm:"column:post_author_id;type:varchar(64)" json:"post_author_id,omitempty"`
	PointsEarned   int64          `gorm:"column:points_earned;not null" json:"points_earned"`
	RewardEligible bool           `gorm:"column:reward_eligible;not null" json:"reward_eligible"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time      `gorm:"column:created_at;index;not null" json:"created_at"`
}
