package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

// LifecycleStore persists lifecycle transitions in Postgres. Conditional
// writes are UPDATE ... WHERE <expected state>; zero affected rows means the
// precondition no longer holds.
type LifecycleStore struct {
	db *gorm.DB
}

func NewLifecycleStore(db *gorm.DB) *LifecycleStore {
	return &LifecycleStore{db: db}
}

func (s *LifecycleStore) RunInTx(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTx{db: tx})
	})
}

func first[T any](q *gorm.DB) (*T, error) {
	var out T
	err := q.First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *LifecycleStore) FindSubscriptionsByEmail(ctx context.Context, email string) ([]*models.Subscription, error) {
	var out []*models.Subscription
	err := s.db.WithContext(ctx).
		Where("customer_email = ?", email).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *LifecycleStore) GetPartner(ctx context.Context, id string) (*models.Partner, error) {
	return first[models.Partner](s.db.WithContext(ctx).Where("id = ?", id))
}

func (s *LifecycleStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return first[models.User](s.db.WithContext(ctx).Where("LOWER(email) = ?", email))
}

func (s *LifecycleStore) FindInfluencerByReferralCode(ctx context.Context, code string) (*models.Influencer, error) {
	return first[models.Influencer](s.db.WithContext(ctx).Where("referral_code = ?", code))
}

func (s *LifecycleStore) ListWaitingActivations(ctx context.Context, limit int) ([]*models.PendingActivation, error) {
	var out []*models.PendingActivation
	err := s.db.WithContext(ctx).
		Where("activation_status = ?", types.ActivationStatusWaitingForUser).
		Order("last_checked ASC NULLS FIRST").
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (s *LifecycleStore) ListExpiredPremiumUsers(ctx context.Context, before time.Time, limit int) ([]*models.User, error) {
	var out []*models.User
	err := s.db.WithContext(ctx).
		Where("premium_user = ? AND premium_expiry_date < ?", true, before).
		Order("premium_expiry_date ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

type gormTx struct {
	db *gorm.DB
}

// Savepoint relies on gorm running a nested Transaction as SAVEPOINT / ROLLBACK TO.
func (t *gormTx) Savepoint(ctx context.Context, fn func(ctx context.Context, tx lifecycle.Tx) error) error {
	return t.db.Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &gormTx{db: tx})
	})
}

func conditional(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return lifecycle.ErrPreconditionFailed
	}
	return nil
}

func (t *gormTx) TransitionSubscription(ctx context.Context, id string, from types.SubscriptionStatus, change lifecycle.SubscriptionChange) error {
	updates := map[string]any{
		"status":     change.To,
		"updated_at": change.At,
	}
	switch change.To {
	case types.SubscriptionStatusActive:
		updates["start_date"] = change.StartDate
		updates["end_date"] = change.EndDate
		updates["duration"] = change.Duration
		updates["user_updated"] = change.UserUpdated
		updates["approved_at"] = change.At
	case types.SubscriptionStatusDeclined:
		updates["declined_at"] = change.At
	default:
		return fmt.Errorf("unsupported subscription transition to %s", change.To)
	}
	if change.Notes != "" {
		updates["notes"] = change.Notes
	}
	return conditional(t.db.WithContext(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates))
}

func (t *gormTx) GrantUserPremium(ctx context.Context, userID string, grant lifecycle.PremiumGrant) error {
	updates := map[string]any{
		"premium_user":        true,
		"mart_premium_user":   true,
		"premium_expiry_date": grant.ExpiresAt,
		"premium_source":      grant.Source,
		"premium_updated_at":  grant.At,
	}
	if grant.ReferredBy != nil {
		updates["referred_by"] = *grant.ReferredBy
	}
	if grant.ReferralCode != nil {
		updates["referral_code"] = *grant.ReferralCode
	}
	q := t.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID)
	if grant.OnlyIfNotPremium {
		q = q.Where("premium_user = ?", false)
	}
	return conditional(q.Updates(updates))
}

func (t *gormTx) RevokeUserPremium(ctx context.Context, userID string, r lifecycle.PremiumRevocation) error {
	return conditional(t.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND premium_user = ? AND premium_expiry_date < ?", userID, true, r.ExpiredBefore).
		Updates(map[string]any{
			"premium_user":           false,
			"mart_premium_user":      false,
			"premium_deactivated_at": r.At,
			"notes":                  gorm.Expr("CONCAT_WS(E'\\n', NULLIF(notes, ''), ?)", r.Note),
		}))
}

func (t *gormTx) CreatePendingActivation(ctx context.Context, activation *models.PendingActivation) error {
	return t.db.WithContext(ctx).Create(activation).Error
}

func (t *gormTx) TouchPendingActivation(ctx context.Context, id string, at time.Time) error {
	return conditional(t.db.WithContext(ctx).
		Model(&models.PendingActivation{}).
		Where("id = ? AND activation_status = ?", id, types.ActivationStatusWaitingForUser).
		Updates(map[string]any{
			"check_count":  gorm.Expr("check_count + 1"),
			"last_checked": at,
			"updated_at":   at,
		}))
}

func (t *gormTx) TransitionPendingActivation(ctx context.Context, id string, from types.ActivationStatus, change lifecycle.ActivationChange) error {
	updates := map[string]any{
		"activation_status": change.To,
		"updated_at":        change.At,
	}
	if change.To == types.ActivationStatusActivated {
		updates["activated_at"] = change.At
		updates["user_id"] = change.UserID
	}
	if change.Note != "" {
		updates["notes"] = change.Note
	}
	return conditional(t.db.WithContext(ctx).
		Model(&models.PendingActivation{}).
		Where("id = ? AND activation_status = ?", id, from).
		Updates(updates))
}

func (t *gormTx) AppendActivityLog(ctx context.Context, entry *models.ActivityLog) error {
	return t.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(entry).Error
}

func (t *gormTx) IncrementPartnerSubscriptions(ctx context.Context, partnerID string, at time.Time) error {
	err := conditional(t.db.WithContext(ctx).
		Model(&models.Partner{}).
		Where("id = ?", partnerID).
		Updates(map[string]any{
			"total_subscriptions": gorm.Expr("total_subscriptions + 1"),
			"last_activity_date":  at,
			"updated_at":          at,
		}))
	if errors.Is(err, lifecycle.ErrPreconditionFailed) {
		return fmt.Errorf("partner %s not found", partnerID)
	}
	return err
}

func (t *gormTx) IncrementInfluencerReferrals(ctx context.Context, influencerID string, at time.Time) error {
	err := conditional(t.db.WithContext(ctx).
		Model(&models.Influencer{}).
		Where("id = ?", influencerID).
		Updates(map[string]any{
			"subscriber_count":   gorm.Expr("subscriber_count + 1"),
			"total_referrals":    gorm.Expr("total_referrals + 1"),
			"last_referral_date": at,
			"updated_at":         at,
		}))
	if errors.Is(err, lifecycle.ErrPreconditionFailed) {
		return fmt.Errorf("influencer %s not found", influencerID)
	}
	return err
}
