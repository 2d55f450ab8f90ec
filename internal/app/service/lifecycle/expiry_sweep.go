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

// DeactivateExpiredPremium revokes premium from up to jobs.batch_limit users
// whose premiumExpiryDate has passed. Users whose expiry turns out not to be
// past are counted as still active and left untouched.
func (s *Service) DeactivateExpiredPremium(ctx context.Context) (*ExpirySweepSummary, error) {
	defer metrics.ObserveBusinessProcess("sweep", string(types.ActivityActionAutoDeactivated), time.Now())
	lg := logctx.FromCtx(ctx, s.log)

	now := s.now()
	users, err := s.store.ListExpiredPremiumUsers(ctx, now, s.batchLimit())
	if err != nil {
		return nil, fmt.Errorf("list expired premium users: %w", err)
	}
	summary := &ExpirySweepSummary{Errors: []RecordError{}}

	err = s.store.RunInTx(ctx, func(ctx context.Context, tx Tx) error {
		for _, u := range users {
			summary.Checked++
			if !premiumExpired(u, now) {
				summary.StillActive++
				continue
			}
			err := s.revokeBatch(u, now).commitIn(ctx, tx)
			switch {
			case err == nil:
				summary.Deactivated++
			case errors.Is(err, ErrInvalidState):
				// Renewed or revoked since it was listed.
				summary.StillActive++
			default:
				if ctx.Err() != nil {
					return ctx.Err()
				}
				lg.Warnw("premium deactivation failed", "user_id", u.ID, "err", err)
				summary.Errors = append(summary.Errors, RecordError{ID: u.ID, Email: u.Email, Error: err.Error()})
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("commit expired premium sweep: %w", err)
	}
	return summary, nil
}

func premiumExpired(u *models.User, now time.Time) bool {
	return u.PremiumUser && u.PremiumExpiryDate != nil && u.PremiumExpiryDate.Before(now)
}

func (s *Service) revokeBatch(u *models.User, now time.Time) *batch {
	b := &batch{}
	userID := u.ID
	revocation := PremiumRevocation{
		ExpiredBefore: now,
		At:            now,
		Note:          fmt.Sprintf("Premium expired on %s", u.PremiumExpiryDate.UTC().Format(time.DateOnly)),
	}
	b.add("revoke user premium", func(ctx context.Context, tx Tx) error {
		err := tx.RevokeUserPremium(ctx, userID, revocation)
		if errors.Is(err, ErrPreconditionFailed) {
			return newError(ReasonInvalidState, "user %s is no longer expired premium", userID)
		}
		return err
	})

	entry := s.newActivityLog(types.ActivityActionAutoDeactivated, types.PerformedBySystem, now)
	entry.UserID = lo.EmptyableToPtr(u.ID)
	entry.CustomerEmail = lo.EmptyableToPtr(u.Email)
	entry.PremiumSource = u.PremiumSource
	entry.Notes = revocation.Note
	entry.Details["premiumExpiryDate"] = *u.PremiumExpiryDate
	b.add("append activity log", func(ctx context.Context, tx Tx) error {
		return tx.AppendActivityLog(ctx, entry)
	})
	return b
}
