package models

import (
	"time"

	"github.com/nextbud/premium/pkg/types"
)

// PendingActivation holds an approved partner grant whose email has no user yet.
// ActivationStatus leaves waiting_for_user exactly once.
type PendingActivation struct {
	ID               string                 `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Email            string                 `gorm:"column:email;type:varchar(255);not null;index" json:"email"`
	PartnerID        string                 `gorm:"column:partner_id;type:varchar(64);not null" json:"partnerId"`
	SubscriptionID   string                 `gorm:"column:subscription_id;type:uuid;not null;index" json:"subscriptionId"`
	Duration         int                    `gorm:"column:duration;not null" json:"duration"`
	ApprovedAt       time.Time              `gorm:"column:approved_at;not null" json:"approvedAt"`
	ExpiresAt        time.Time              `gorm:"column:expires_at;not null" json:"expiresAt"`
	ActivationStatus types.ActivationStatus `gorm:"column:activation_status;type:varchar(32);not null;index" json:"activationStatus"`
	CheckCount       int                    `gorm:"column:check_count;not null;default:0" json:"checkCount"`
	LastChecked      *time.Time             `gorm:"column:last_checked" json:"lastChecked"`
	ActivatedAt      *time.Time             `gorm:"column:activated_at" json:"activatedAt"`
	UserID           *string                `gorm:"column:user_id;type:varchar(64)" json:"userId"`
	Notes            string                 `gorm:"column:notes;type:text" json:"notes"`
	CreatedAt        time.Time              `json:"createdAt"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

func (PendingActivation) TableName() string {
	return "pending_activations"
}
