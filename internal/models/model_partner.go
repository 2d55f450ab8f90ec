package models

import (
	"time"

	"github.com/nextbud/premium/pkg/types"
)

// Partner is a business that grants premium to its customers.
// ID equals Slug.
type Partner struct {
	ID                          string              `gorm:"column:id;type:varchar(64);primary_key" json:"id"`
	Name                        string              `gorm:"column:name;type:varchar(255);not null" json:"name"`
	Slug                        string              `gorm:"column:slug;type:varchar(64);not null;uniqueIndex" json:"slug"`
	Status                      types.PartnerStatus `gorm:"column:status;type:varchar(32);not null;index" json:"status"`
	APIKey                      string              `gorm:"column:api_key;type:varchar(128);not null;uniqueIndex" json:"-"`
	LogoURL                     string              `gorm:"column:logo_url;type:varchar(512)" json:"logoUrl"`
	Description                 string              `gorm:"column:description;type:text" json:"description"`
	Website                     string              `gorm:"column:website;type:varchar(512)" json:"website"`
	ContactEmail                string              `gorm:"column:contact_email;type:varchar(255)" json:"contactEmail"`
	ContactName                 string              `gorm:"column:contact_name;type:varchar(255)" json:"contactName"`
	ContactPhone                string              `gorm:"column:contact_phone;type:varchar(64)" json:"contactPhone"`
	DefaultSubscriptionDuration int                 `gorm:"column:default_subscription_duration;not null;default:90" json:"defaultSubscriptionDuration"`
	TotalSubscriptions          int                 `gorm:"column:total_subscriptions;not null;default:0" json:"totalSubscriptions"`
	LastImportDate              *time.Time          `gorm:"column:last_import_date" json:"lastImportDate"`
	LastActivityDate            *time.Time          `gorm:"column:last_activity_date" json:"lastActivityDate"`
	PartnershipStartDate        time.Time           `gorm:"column:partnership_start_date" json:"partnershipStartDate"`
	CreatedAt                   time.Time           `json:"createdAt"`
	UpdatedAt                   time.Time           `json:"updatedAt"`
}

func (Partner) TableName() string {
	return "partners"
}

func (p *Partner) Active() bool {
	return p != nil && p.Status == types.PartnerStatusActive
}
