package models

import "time"

type Influencer struct {
	ID               string     `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name             string     `gorm:"column:name;type:varchar(255)" json:"name"`
	ReferralCode     string     `gorm:"column:referral_code;type:varchar(64);not null;uniqueIndex" json:"referralCode"`
	SubscriberCount  int        `gorm:"column:subscriber_count;not null;default:0" json:"subscriberCount"`
	TotalReferrals   int        `gorm:"column:total_referrals;not null;default:0" json:"totalReferrals"`
	LastReferralDate *time.Time `gorm:"column:last_referral_date" json:"lastReferralDate"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (Influencer) TableName() string {
	return "influencers"
}
