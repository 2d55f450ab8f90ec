package models

import (
	"time"

	"github.com/nextbud/premium/pkg/types"
)

// User is the premium-related subset of the externally owned user record.
// Only these columns are read or written here; the table itself is created
// and populated by the app's registration flow.
type User struct {
	ID                   string               `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Email                string               `gorm:"column:email;type:varchar(255);index" json:"email"`
	PremiumUser          bool                 `gorm:"column:premium_user;not null;default:false;index" json:"premiumUser"`
	MartPremiumUser      bool                 `gorm:"column:mart_premium_user;not null;default:false" json:"martPremiumUser"`
	PremiumExpiryDate    *time.Time           `gorm:"column:premium_expiry_date;index" json:"premiumExpiryDate"`
	PremiumSource        *types.PremiumSource `gorm:"column:premium_source;type:varchar(128)" json:"premiumSource"`
	PremiumUpdatedAt     *time.Time           `gorm:"column:premium_updated_at" json:"premiumUpdatedAt"`
	PremiumDeactivatedAt *time.Time           `gorm:"column:premium_deactivated_at" json:"premiumDeactivatedAt"`
	ReferredBy           *string              `gorm:"column:referred_by;type:varchar(64)" json:"referredBy"`
	ReferralCode         *string              `gorm:"column:referral_code;type:varchar(64)" json:"referralCode"`
	Notes                string               `gorm:"column:notes;type:text" json:"notes"`
	// CreatedAt is nil for accounts imported without a registration time.
	CreatedAt *time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}

// DaysSinceRegistration is the number of whole days elapsed since CreatedAt.
// A user without a registration time counts as registered now.
func (u *User) DaysSinceRegistration(now time.Time) int {
	if u.CreatedAt == nil {
		return 0
	}
	d := now.Sub(*u.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d / (24 * time.Hour))
}
