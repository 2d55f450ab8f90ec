package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

// premiumGrant is a request to give premium to whoever owns Email.
// User is nil when no account matches Email yet.
type premiumGrant struct {
	User      *models.User
	Email     string
	Source    types.PremiumSource
	Duration  int
	ExpiresAt time.Time
	At        time.Time

	// Partner grants only: the subscription a pending activation points at.
	SubscriptionID string

	// Referral grants only.
	ReferredBy   *string
	ReferralCode *string
	// OnlyIfNotPremium turns a concurrent premium flip into ErrAlreadyPremium.
	OnlyIfNotPremium bool
}

// grantPremium queues the premium writes shared by partner approval, referral
// and pending-activation paths: flip the user when one exists, otherwise park
// the grant as a pending activation. It returns the path taken.
func (s *Service) grantPremium(b *batch, g premiumGrant) types.GrantPath {
	if g.User != nil {
		userID := g.User.ID
		grant := PremiumGrant{
			Source:           g.Source,
			ExpiresAt:        g.ExpiresAt,
			At:               g.At,
			ReferredBy:       g.ReferredBy,
			ReferralCode:     g.ReferralCode,
			OnlyIfNotPremium: g.OnlyIfNotPremium,
		}
		b.add("grant user premium", func(ctx context.Context, tx Tx) error {
			err := tx.GrantUserPremium(ctx, userID, grant)
			if errors.Is(err, ErrPreconditionFailed) {
				return newError(ReasonAlreadyPremium, "user %s is already premium", userID)
			}
			return err
		})
		return types.GrantPathUserUpdated
	}

	activation := &models.PendingActivation{
		ID:               s.newID(),
		Email:            g.Email,
		PartnerID:        g.Source.ID,
		SubscriptionID:   g.SubscriptionID,
		Duration:         g.Duration,
		ApprovedAt:       g.At,
		ExpiresAt:        g.ExpiresAt,
		ActivationStatus: types.ActivationStatusWaitingForUser,
		CheckCount:       0,
	}
	b.add("create pending activation", func(ctx context.Context, tx Tx) error {
		return tx.CreatePendingActivation(ctx, activation)
	})
	return types.GrantPathPendingActivation
}
