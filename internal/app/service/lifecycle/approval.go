package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/metrics"
	"github.com/nextbud/premium/pkg/types"
)

func validateProcessPendingRequest(req *ProcessPendingRequest) error {
	if req == nil || len(req.Subscriptions) == 0 {
		return newError(ReasonValidation, "subscriptions must be a non-empty list")
	}
	for i, d := range req.Subscriptions {
		if NormalizeEmail(d.Email) == "" {
			return newError(ReasonValidation, "subscriptions[%d]: email is required", i)
		}
		if d.Action != ActionApprove && d.Action != ActionDecline {
			return newError(ReasonValidation, "subscriptions[%d]: action must be approve or decline", i)
		}
		if d.Duration != nil && *d.Duration <= 0 {
			return newError(ReasonValidation, "subscriptions[%d]: duration must be positive", i)
		}
	}
	return nil
}

// ProcessPendingSubscriptions applies each decision to every pending
// subscription of the decision's email. Each subscription commits on its own;
// a rejected one is reported in Errors and does not affect the others.
// An infrastructure error stops the batch; the result so far is returned
// with it because those outcomes are already committed.
func (s *Service) ProcessPendingSubscriptions(ctx context.Context, req *ProcessPendingRequest) (*ProcessPendingResult, error) {
	if err := validateProcessPendingRequest(req); err != nil {
		return nil, err
	}
	defer metrics.ObserveBusinessProcess("lifecycle", "process_pending_subscriptions", time.Now())

	performedBy := lo.Ternary(req.PerformedBy != "", req.PerformedBy, types.PerformedByAdmin)
	result := &ProcessPendingResult{Errors: []RecordError{}, Subscriptions: []*SubscriptionOutcome{}}

	for _, d := range req.Subscriptions {
		email := NormalizeEmail(d.Email)

		subs, err := s.store.FindSubscriptionsByEmail(ctx, email)
		if err != nil {
			return result, fmt.Errorf("find subscriptions for %s: %w", email, err)
		}
		pending := lo.Filter(subs, func(sub *models.Subscription, _ int) bool {
			return sub.Status == types.SubscriptionStatusPending
		})
		if len(pending) == 0 {
			reason := lo.Ternary(len(subs) > 0, ReasonInvalidState, ReasonNotFound)
			result.Errors = append(result.Errors, RecordError{
				Email:  email,
				Reason: reason,
				Error:  fmt.Sprintf("no pending subscriptions found for %s", email),
			})
			continue
		}

		var user *models.User
		if d.Action == ActionApprove {
			user, err = s.store.FindUserByEmail(ctx, email)
			if err != nil {
				return result, fmt.Errorf("find user %s: %w", email, err)
			}
		}

		for _, sub := range pending {
			var outcome *SubscriptionOutcome
			switch d.Action {
			case ActionApprove:
				outcome, err = s.approve(ctx, sub, user, d, performedBy)
			case ActionDecline:
				outcome, err = s.decline(ctx, sub, d.Notes, performedBy)
			}
			if err != nil {
				le, ok := AsError(err)
				if !ok {
					return result, fmt.Errorf("%s subscription %s: %w", d.Action, sub.ID, err)
				}
				result.Errors = append(result.Errors, RecordError{ID: sub.ID, Email: email, Reason: le.Reason, Error: err.Error()})
				continue
			}

			result.Processed++
			result.Subscriptions = append(result.Subscriptions, outcome)
			switch outcome.Action {
			case ActionApprove:
				result.Approved++
				if outcome.Path == types.GrantPathUserUpdated {
					result.UserUpdated++
				} else {
					result.PendingActivation++
				}
				s.notifyApproved(ctx, outcome)
			case ActionDecline:
				result.Declined++
			}
		}
	}
	return result, nil
}

func (s *Service) resolveDuration(ctx context.Context, requested *int, sub *models.Subscription) (int, *models.Partner, error) {
	partner, err := s.store.GetPartner(ctx, sub.PartnerID)
	if err != nil {
		return 0, nil, fmt.Errorf("get partner %s: %w", sub.PartnerID, err)
	}
	switch {
	case requested != nil && *requested > 0:
		return *requested, partner, nil
	case sub.Duration > 0:
		return sub.Duration, partner, nil
	case partner != nil && partner.DefaultSubscriptionDuration > 0:
		return partner.DefaultSubscriptionDuration, partner, nil
	case s.cfg.Lifecycle.DefaultPartnerDurationDays > 0:
		return s.cfg.Lifecycle.DefaultPartnerDurationDays, partner, nil
	default:
		return fallbackPartnerDuration, partner, nil
	}
}

// approve activates one pending subscription and grants premium in a single
// transaction. user may be nil, in which case a pending activation is created.
func (s *Service) approve(ctx context.Context, sub *models.Subscription, user *models.User, d PendingSubscriptionDecision, performedBy string) (*SubscriptionOutcome, error) {
	if !sub.Status.CanTransition(types.SubscriptionStatusActive) {
		return nil, newError(ReasonInvalidState, "subscription %s is %s, not pending", sub.ID, sub.Status)
	}
	duration, partner, err := s.resolveDuration(ctx, d.Duration, sub)
	if err != nil {
		return nil, err
	}

	now := s.now()
	start := now
	end := now.AddDate(0, 0, duration)
	source := types.PartnerSource(sub.PartnerID)

	b := &batch{}
	subID := sub.ID
	change := SubscriptionChange{
		To:          types.SubscriptionStatusActive,
		At:          now,
		StartDate:   &start,
		EndDate:     &end,
		Duration:    duration,
		UserUpdated: user != nil,
		Notes:       d.Notes,
	}
	b.add("activate subscription", func(ctx context.Context, tx Tx) error {
		return s.transitionSubscription(ctx, tx, subID, change)
	})

	path := s.grantPremium(b, premiumGrant{
		User:           user,
		Email:          sub.CustomerEmail,
		Source:         source,
		Duration:       duration,
		ExpiresAt:      end,
		At:             now,
		SubscriptionID: sub.ID,
	})

	entry := s.newActivityLog(types.ActivityActionSubscriptionApproved, performedBy, now)
	entry.PartnerID = lo.EmptyableToPtr(sub.PartnerID)
	entry.SubscriptionID = lo.EmptyableToPtr(sub.ID)
	entry.CustomerEmail = lo.EmptyableToPtr(sub.CustomerEmail)
	entry.PremiumSource = &source
	entry.Notes = d.Notes
	entry.Details["path"] = string(path)
	entry.Details["duration"] = duration
	entry.Details["endDate"] = end
	if user != nil {
		entry.UserID = lo.EmptyableToPtr(user.ID)
	}
	b.add("append activity log", func(ctx context.Context, tx Tx) error {
		return tx.AppendActivityLog(ctx, entry)
	})

	if partner != nil {
		partnerID := partner.ID
		b.add("increment partner subscriptions", func(ctx context.Context, tx Tx) error {
			return tx.IncrementPartnerSubscriptions(ctx, partnerID, now)
		})
	} else {
		logctx.FromCtx(ctx, s.log).Warnw("approving subscription of unknown partner", "subscription_id", sub.ID, "partner_id", sub.PartnerID)
	}

	if err := b.commit(ctx, s.store); err != nil {
		return nil, err
	}
	return &SubscriptionOutcome{
		ID:        sub.ID,
		Email:     sub.CustomerEmail,
		PartnerID: sub.PartnerID,
		Action:    ActionApprove,
		Status:    types.SubscriptionStatusActive,
		Path:      path,
		Duration:  duration,
		StartDate: &start,
		EndDate:   &end,
	}, nil
}

func (s *Service) decline(ctx context.Context, sub *models.Subscription, notes, performedBy string) (*SubscriptionOutcome, error) {
	if !sub.Status.CanTransition(types.SubscriptionStatusDeclined) {
		return nil, newError(ReasonInvalidState, "subscription %s is %s, not pending", sub.ID, sub.Status)
	}
	now := s.now()

	b := &batch{}
	subID := sub.ID
	change := SubscriptionChange{To: types.SubscriptionStatusDeclined, At: now, Notes: notes}
	b.add("decline subscription", func(ctx context.Context, tx Tx) error {
		return s.transitionSubscription(ctx, tx, subID, change)
	})

	entry := s.newActivityLog(types.ActivityActionSubscriptionDeclined, performedBy, now)
	entry.PartnerID = lo.EmptyableToPtr(sub.PartnerID)
	entry.SubscriptionID = lo.EmptyableToPtr(sub.ID)
	entry.CustomerEmail = lo.EmptyableToPtr(sub.CustomerEmail)
	entry.Notes = notes
	b.add("append activity log", func(ctx context.Context, tx Tx) error {
		return tx.AppendActivityLog(ctx, entry)
	})

	if err := b.commit(ctx, s.store); err != nil {
		return nil, err
	}
	return &SubscriptionOutcome{
		ID:        sub.ID,
		Email:     sub.CustomerEmail,
		PartnerID: sub.PartnerID,
		Action:    ActionDecline,
		Status:    types.SubscriptionStatusDeclined,
	}, nil
}

// transitionSubscription flips a pending subscription, failing with
// ErrInvalidState when another writer got there first.
func (s *Service) transitionSubscription(ctx context.Context, tx Tx, id string, change SubscriptionChange) error {
	err := tx.TransitionSubscription(ctx, id, types.SubscriptionStatusPending, change)
	if errors.Is(err, ErrPreconditionFailed) {
		return newError(ReasonInvalidState, "subscription %s is no longer pending", id)
	}
	return err
}

func (s *Service) notifyApproved(ctx context.Context, outcome *SubscriptionOutcome) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SubscriptionApproved(ctx, outcome); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("approval notification failed", "subscription_id", outcome.ID, "err", err)
	}
}
