package subscription

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

const unknownPartnerName = "Unknown Partner"

var ErrInvalidEmail = fmt.Errorf("email is required")

type PartnerInfo struct {
	Name    string `json:"name"`
	LogoURL string `json:"logoUrl,omitempty"`
}

type ActiveSubscription struct {
	ID            string      `json:"id"`
	PartnerID     string      `json:"partnerId"`
	Partner       PartnerInfo `json:"partner"`
	Duration      int         `json:"duration"`
	StartDate     *time.Time  `json:"startDate"`
	EndDate       *time.Time  `json:"endDate"`
	DaysRemaining int         `json:"daysRemaining"`
}

type CheckResult struct {
	Email                 string                `json:"email"`
	HasActiveSubscription bool                  `json:"hasActiveSubscription"`
	Subscriptions         []*ActiveSubscription `json:"subscriptions"`
}

// Service answers read-only questions about partner subscriptions.
type Service struct {
	db  *gorm.DB
	now func() time.Time
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DaysRemaining rounds the time left up to whole days.
func DaysRemaining(end, now time.Time) int {
	if !end.After(now) {
		return 0
	}
	return int(math.Ceil(end.Sub(now).Hours() / 24))
}

// buildCheckResult joins active subscriptions with their partners.
func buildCheckResult(email string, subs []*models.Subscription, partners map[string]*models.Partner, now time.Time) *CheckResult {
	res := &CheckResult{Email: email, Subscriptions: []*ActiveSubscription{}}
	for _, sub := range subs {
		if !sub.Valid(now) {
			continue
		}
		info := PartnerInfo{Name: unknownPartnerName}
		if p, ok := partners[sub.PartnerID]; ok {
			info = PartnerInfo{Name: p.Name, LogoURL: p.LogoURL}
		}
		res.Subscriptions = append(res.Subscriptions, &ActiveSubscription{
			ID:            sub.ID,
			PartnerID:     sub.PartnerID,
			Partner:       info,
			Duration:      sub.Duration,
			StartDate:     sub.StartDate,
			EndDate:       sub.EndDate,
			DaysRemaining: DaysRemaining(*sub.EndDate, now),
		})
	}
	res.HasActiveSubscription = len(res.Subscriptions) > 0
	return res
}

// Check returns the active, unexpired subscriptions of email.
func (s *Service) Check(ctx context.Context, email string) (*CheckResult, error) {
	email = lifecycle.NormalizeEmail(email)
	if email == "" {
		return nil, ErrInvalidEmail
	}
	now := s.now()

	var subs []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("customer_email = ? AND status = ? AND end_date > ?", email, types.SubscriptionStatusActive, now).
		Order("end_date DESC").
		Find(&subs).Error
	if err != nil {
		return nil, fmt.Errorf("find active subscriptions: %w", err)
	}

	partners := map[string]*models.Partner{}
	if ids := lo.Uniq(lo.Map(subs, func(s *models.Subscription, _ int) string { return s.PartnerID })); len(ids) > 0 {
		var found []*models.Partner
		if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&found).Error; err != nil {
			return nil, fmt.Errorf("find partners: %w", err)
		}
		partners = lo.KeyBy(found, func(p *models.Partner) string { return p.ID })
	}
	return buildCheckResult(email, subs, partners, now), nil
}
