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

type activationOutcome int

const (
	activationStillPending activationOutcome = iota
	activationActivated
	activationExpired
)

// ReconcilePendingActivations examines up to jobs.batch_limit waiting
// activations. All records share one transaction; each record's writes sit
// in their own savepoint so a failing record only drops its own writes.
func (s *Service) ReconcilePendingActivations(ctx context.Context) (*ActivationSweepSummary, error) {
	defer metrics.ObserveBusinessProcess("sweep", string(types.ActivityActionAutoActivated), time.Now())
	lg := logctx.FromCtx(ctx, s.log)

	waiting, err := s.store.ListWaitingActivations(ctx, s.batchLimit())
	if err != nil {
		return nil, fmt.Errorf("list waiting activations: %w", err)
	}
	now := s.now()
	summary := &ActivationSweepSummary{Errors: []RecordError{}}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, pa := range waiting {
			summary.Checked++
			outcome, err := s.reconcileActivation(ctx, tx, pa, now)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lg.Warnw("pending activation reconcile failed", "pending_activation_id", pa.ID, "err", err)
				re := RecordError{ID: pa.ID, Email: pa.Email, Error: err.Error()}
				if le, ok := AsError(err); ok {
					re.Reason = le.Reason
				}
				summary.Errors = append(summary.Errors, re)
				continue
			}
			switch outcome {
			case activationActivated:
				summary.Activated++
			case activationExpired:
				summary.Expired++
			default:
				summary.StillPending++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit pending activation sweep: %w", err)
	}
	return summary, nil
}

func (s *Service) reconcileActivation(ctx context.Context, tx Tx, pa *models.PendingActivation, now time.Time) (activationOutcome, error) {
	if pa.ActivationStatus.IsTerminal() {
		return 0, newError(ReasonInvalidState, "pending activation %s is already %s", pa.ID, pa.ActivationStatus)
	}

	b := &batch{}
	id := pa.ID
	b.add("touch pending activation", func(ctx context.Context, tx Tx) error {
		return tx.TouchPendingActivation(ctx, id, now)
	})

	// Expiry wins over a registration that happened in the meantime.
	if now.After(pa.ExpiresAt) {
		change := ActivationChange{To: types.ActivationStatusExpired, At: now, Note: "Expired before the user registered"}
		b.add("expire pending activation", func(ctx context.Context, tx Tx) error {
			return s.transitionActivation(ctx, tx, id, change)
		})
		entry := s.newActivityLog(types.ActivityActionActivationExpired, types.PerformedBySystem, now)
		entry.PartnerID = lo.EmptyableToPtr(pa.PartnerID)
		entry.SubscriptionID = lo.EmptyableToPtr(pa.SubscriptionID)
		entry.CustomerEmail = lo.EmptyableToPtr(pa.Email)
		entry.Details["pendingActivationId"] = pa.ID
		entry.Details["expiresAt"] = pa.ExpiresAt
		entry.Details["checkCount"] = pa.CheckCount + 1
		b.add("append activity log", func(ctx context.Context, tx Tx) error {
			return tx.AppendActivityLog(ctx, entry)
		})
		return activationExpired, b.commitIn(ctx, tx)
	}

	user, err := s.store.FindUserByEmail(ctx, pa.Email)
	if err != nil {
		return 0, fmt.Errorf("find user %s: %w", pa.Email, err)
	}
	if user == nil {
		return activationStillPending, b.commitIn(ctx, tx)
	}

	source := types.PartnerSource(pa.PartnerID)
	s.grantPremium(b, premiumGrant{
		User:           user,
		Email:          pa.Email,
		Source:         source,
		Duration:       pa.Duration,
		ExpiresAt:      pa.ExpiresAt,
		At:             now,
		SubscriptionID: pa.SubscriptionID,
	})
	change := ActivationChange{
		To:     types.ActivationStatusActivated,
		At:     now,
		UserID: lo.ToPtr(user.ID),
		Note:   fmt.Sprintf("Activated for user %s", user.ID),
	}
	b.add("activate pending activation", func(ctx context.Context, tx Tx) error {
		return s.transitionActivation(ctx, tx, id, change)
	})
	entry := s.newActivityLog(types.ActivityActionAutoActivated, types.PerformedBySystem, now)
	entry.PartnerID = lo.EmptyableToPtr(pa.PartnerID)
	entry.SubscriptionID = lo.EmptyableToPtr(pa.SubscriptionID)
	entry.UserID = lo.EmptyableToPtr(user.ID)
	entry.CustomerEmail = lo.EmptyableToPtr(pa.Email)
	entry.PremiumSource = &source
	entry.Details["pendingActivationId"] = pa.ID
	entry.Details["premiumExpiryDate"] = pa.ExpiresAt
	b.add("append activity log", func(ctx context.Context, tx Tx) error {
		return tx.AppendActivityLog(ctx, entry)
	})
	return activationActivated, b.commitIn(ctx, tx)
}

func (s *Service) transitionActivation(ctx context.Context, tx Tx, id string, change ActivationChange) error {
	err := tx.TransitionPendingActivation(ctx, id, types.ActivationStatusWaitingForUser, change)
	if errors.Is(err, ErrPreconditionFailed) {
		return newError(ReasonInvalidState, "pending activation %s is no longer waiting_for_user", id)
	}
	return err
}
