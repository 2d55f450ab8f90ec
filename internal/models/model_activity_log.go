package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nextbud/premium/pkg/types"
)

// ActivityLog is the write-once audit record of a lifecycle transition.
type ActivityLog struct {
	ID             string               `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Action         types.ActivityAction `gorm:"column:action;type:varchar(64);not null;index:idx_activity_logs_action_ts,priority:1" json:"action"`
	PartnerID      *string              `gorm:"column:partner_id;type:varchar(64);index" json:"partnerId,omitempty"`
	SubscriptionID *string              `gorm:"column:subscription_id;type:varchar(64)" json:"subscriptionId,omitempty"`
	UserID         *string              `gorm:"column:user_id;type:varchar(64);index" json:"userId,omitempty"`
	CustomerEmail  *string              `gorm:"column:customer_email;type:varchar(255)" json:"customerEmail,omitempty"`
	InfluencerID   *string              `gorm:"column:influencer_id;type:varchar(64)" json:"influencerId,omitempty"`
	ReferralCode   *string              `gorm:"column:referral_code;type:varchar(64)" json:"referralCode,omitempty"`
	PremiumSource  *types.PremiumSource `gorm:"column:premium_source;type:varchar(128)" json:"premiumSource,omitempty"`
	PerformedBy    string               `gorm:"column:performed_by;type:varchar(64);not null" json:"performedBy"`
	AdminAction    bool                 `gorm:"column:admin_action;not null;default:false" json:"adminAction"`
	Notes          string               `gorm:"column:notes;type:text" json:"notes,omitempty"`
	Details        datatypes.JSONMap    `gorm:"column:details;type:jsonb;default:'{}'" json:"details"`
	Timestamp      time.Time            `gorm:"column:timestamp;not null;index:idx_activity_logs_action_ts,priority:2" json:"timestamp"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
