package lifecycle

import (
	"context"
	"time"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

// Store is the persistence boundary of the lifecycle engine.
// Lookups return (nil, nil) when nothing matches.
type Store interface {
	// RunInTx applies fn atomically. Nothing fn wrote is visible if it returns an error.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	FindSubscriptionsByEmail(ctx context.Context, email string) ([]*models.Subscription, error)
	GetPartner(ctx context.Context, id string) (*models.Partner, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindInfluencerByReferralCode(ctx context.Context, code string) (*models.Influencer, error)
	ListWaitingActivations(ctx context.Context, limit int) ([]*models.PendingActivation, error)
	ListExpiredPremiumUsers(ctx context.Context, before time.Time, limit int) ([]*models.User, error)
}

// Tx is the write side of one atomic batch. Conditional writes return
// ErrPreconditionFailed when the row is no longer in the expected state.
type Tx interface {
	// Savepoint applies fn so that its writes are dropped on error while
	// the enclosing transaction stays usable.
	Savepoint(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	TransitionSubscription(ctx context.Context, id string, from types.SubscriptionStatus, change SubscriptionChange) error
	GrantUserPremium(ctx context.Context, userID string, grant PremiumGrant) error
	RevokeUserPremium(ctx context.Context, userID string, revocation PremiumRevocation) error
	CreatePendingActivation(ctx context.Context, activation *models.PendingActivation) error
	TouchPendingActivation(ctx context.Context, id string, at time.Time) error
	TransitionPendingActivation(ctx context.Context, id string, from types.ActivationStatus, change ActivationChange) error
	AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error
	IncrementPartnerSubscriptions(ctx context.Context, partnerID string, at time.Time) error
	IncrementInfluencerReferrals(ctx context.Context, influencerID string, at time.Time) error
}

// SubscriptionChange is applied only while the row still has the expected status.
// At is stored as approvedAt for active and declinedAt for declined.
type SubscriptionChange struct {
	To          types.SubscriptionStatus
	At          time.Time
	StartDate   *time.Time
	EndDate     *time.Time
	Duration    int
	UserUpdated bool
	Notes       string
}

// PremiumGrant sets the premium fields on a user. With OnlyIfNotPremium the
// write is conditional on premium_user being false.
type PremiumGrant struct {
	Source           types.PremiumSource
	ExpiresAt        time.Time
	At               time.Time
	ReferredBy       *string
	ReferralCode     *string
	OnlyIfNotPremium bool
}

// PremiumRevocation clears premium. It applies only while the user is premium
// with an expiry before ExpiredBefore.
type PremiumRevocation struct {
	ExpiredBefore time.Time
	At            time.Time
	Note          string
}

type ActivationChange struct {
	To     types.ActivationStatus
	At     time.Time
	UserID *string
	Note   string
}
