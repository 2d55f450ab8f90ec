package models

import (
	"time"

	"github.com/nextbud/premium/pkg/types"
)

// Subscription is a partner-issued grant of premium access tied to an email.
// An active subscription always carries StartDate and EndDate with
// EndDate = StartDate + Duration days.
type Subscription struct {
	ID            string                   `gorm:"column:id;type:uuid;primary_key" json:"id"`
	CustomerEmail string                   `gorm:"column:customer_email;type:varchar(255);not null;index:idx_subscriptions_email_status,priority:1" json:"customerEmail"`
	PartnerID     string                   `gorm:"column:partner_id;type:varchar(64);not null;index" json:"partnerId"`
	Status        types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null;index:idx_subscriptions_email_status,priority:2" json:"status"`
	// Duration in days. Zero until set explicitly or resolved at approval.
	Duration    int                      `gorm:"column:duration;not null;default:0" json:"duration"`
	StartDate   *time.Time               `gorm:"column:start_date" json:"startDate"`
	EndDate     *time.Time               `gorm:"column:end_date" json:"endDate"`
	Source      types.SubscriptionSource `gorm:"column:source;type:varchar(32)" json:"source"`
	Notes       string                   `gorm:"column:notes;type:text" json:"notes"`
	UserUpdated bool                     `gorm:"column:user_updated;not null;default:false" json:"userUpdated"`
	ApprovedAt  *time.Time               `gorm:"column:approved_at" json:"approvedAt"`
	DeclinedAt  *time.Time               `gorm:"column:declined_at" json:"declinedAt"`
	CreatedAt   time.Time                `json:"createdAt"`
	UpdatedAt   time.Time                `json:"updatedAt"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Valid reports whether the subscription currently grants premium.
func (s *Subscription) Valid(now time.Time) bool {
	return s != nil &&
		s.Status == types.SubscriptionStatusActive &&
		s.EndDate != nil &&
		s.EndDate.After(now)
}
