package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/metrics"
	"github.com/nextbud/premium/pkg/types"
)

// referralCandidate is a user that passed every referral precondition.
type referralCandidate struct {
	user                  *models.User
	influencer            *models.Influencer
	daysSinceRegistration int
}

// checkReferral runs the precondition chain in order. With code empty the
// influencer check is skipped.
func (s *Service) checkReferral(ctx context.Context, email, code string, now time.Time) (*referralCandidate, error) {
	user, err := s.store.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", email, err)
	}
	if user == nil {
		return nil, newError(ReasonNotRegistered, "no registered user for %s", email)
	}
	if user.PremiumUser {
		return nil, newError(ReasonAlreadyPremium, "user %s is already premium", user.ID)
	}
	days := user.DaysSinceRegistration(now)
	if days > s.cfg.Lifecycle.ReferralWindowDays {
		return nil, &Error{
			Reason:                ReasonExpired,
			Message:               fmt.Sprintf("referral window of %d days has passed", s.cfg.Lifecycle.ReferralWindowDays),
			DaysSinceRegistration: lo.ToPtr(days),
		}
	}
	c := &referralCandidate{user: user, daysSinceRegistration: days}
	if code == "" {
		return c, nil
	}
	influencer, err := s.store.FindInfluencerByReferralCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find influencer %s: %w", code, err)
	}
	if influencer == nil {
		return nil, newError(ReasonInvalidReferralCode, "referral code %s does not exist", code)
	}
	c.influencer = influencer
	return c, nil
}

// ProcessReferral grants referral premium. The influencer counters, the user
// flip and the activity log commit together.
func (s *Service) ProcessReferral(ctx context.Context, req *ReferralRequest) (*ReferralResult, error) {
	if req == nil {
		return nil, newError(ReasonValidation, "request is required")
	}
	email := NormalizeEmail(req.Email)
	code := strings.TrimSpace(req.ReferralCode)
	if email == "" || code == "" {
		return nil, newError(ReasonValidation, "email and referralCode are required")
	}
	duration := s.cfg.Lifecycle.ReferralDurationDays
	if req.Duration != nil {
		duration = *req.Duration
	}
	if duration <= 0 {
		return nil, newError(ReasonValidation, "duration must be positive")
	}
	defer metrics.ObserveBusinessProcess("lifecycle", "process_referral", time.Now())

	now := s.now()
	c, err := s.checkReferral(ctx, email, code, now)
	if err != nil {
		return nil, err
	}
	expiresAt := now.AddDate(0, 0, duration)
	source := types.ReferralSource(c.influencer.ID)

	b := &batch{}
	influencerID := c.influencer.ID
	b.add("increment influencer referrals", func(ctx context.Context, tx Tx) error {
		return tx.IncrementInfluencerReferrals(ctx, influencerID, now)
	})
	s.grantPremium(b, premiumGrant{
		User:             c.user,
		Email:            email,
		Source:           source,
		Duration:         duration,
		ExpiresAt:        expiresAt,
		At:               now,
		ReferredBy:       lo.ToPtr(influencerID),
		ReferralCode:     lo.ToPtr(code),
		OnlyIfNotPremium: true,
	})

	entry := s.newActivityLog(types.ActivityActionReferralPremiumGranted, types.PerformedBySystem, now)
	entry.UserID = lo.EmptyableToPtr(c.user.ID)
	entry.CustomerEmail = lo.EmptyableToPtr(email)
	entry.InfluencerID = lo.EmptyableToPtr(influencerID)
	entry.ReferralCode = lo.EmptyableToPtr(code)
	entry.PremiumSource = &source
	entry.Details["premiumDuration"] = duration
	entry.Details["premiumExpiryDate"] = expiresAt
	entry.Details["daysSinceRegistration"] = c.daysSinceRegistration
	b.add("append activity log", func(ctx context.Context, tx Tx) error {
		return tx.AppendActivityLog(ctx, entry)
	})

	if err := b.commit(ctx, s.store); err != nil {
		return nil, err
	}
	return &ReferralResult{
		UserID:                c.user.ID,
		InfluencerID:          influencerID,
		PremiumDuration:       duration,
		ExpiryDate:            expiresAt,
		DaysSinceRegistration: c.daysSinceRegistration,
	}, nil
}

// CheckReferralEligibility reports whether email could still redeem a referral code.
func (s *Service) CheckReferralEligibility(ctx context.Context, email string) (*EligibilityResult, error) {
	email = NormalizeEmail(email)
	if email == "" {
		return nil, newError(ReasonValidation, "email is required")
	}
	c, err := s.checkReferral(ctx, email, "", s.now())
	if err != nil {
		le, ok := AsError(err)
		if !ok {
			return nil, err
		}
		return &EligibilityResult{
			Reason:                le.Reason,
			Message:               le.Message,
			DaysSinceRegistration: le.DaysSinceRegistration,
		}, nil
	}
	return &EligibilityResult{Eligible: true, DaysSinceRegistration: lo.ToPtr(c.daysSinceRegistration)}, nil
}
