package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

func referralStore(registeredDaysAgo time.Duration) *memStore {
	store := newMemStore()
	store.addUser(models.User{ID: "u1", Email: "amy@x.com", CreatedAt: lo.ToPtr(testNow.Add(-registeredDaysAgo * 24 * time.Hour))})
	store.addInfluencer(models.Influencer{ID: "inf1", Name: "Influencer", ReferralCode: "AMYFRIENDS"})
	return store
}

func TestProcessReferral_Grants(t *testing.T) {
	store := referralStore(3)
	svc, _ := newTestService(t, store)

	res, err := svc.ProcessReferral(context.Background(), &ReferralRequest{Email: "Amy@x.com", ReferralCode: "AMYFRIENDS"})
	require.NoError(t, err)
	require.Equal(t, 30, res.PremiumDuration)
	require.Equal(t, "inf1", res.InfluencerID)
	require.Equal(t, testNow.AddDate(0, 0, 30), res.ExpiryDate)
	require.Equal(t, 3, res.DaysSinceRegistration)

	u := store.user("u1")
	require.True(t, u.PremiumUser)
	require.True(t, u.MartPremiumUser)
	require.Equal(t, "referral_inf1", u.PremiumSource.String())
	require.Equal(t, "inf1", *u.ReferredBy)
	require.Equal(t, "AMYFRIENDS", *u.ReferralCode)

	inf, _ := store.FindInfluencerByReferralCode(context.Background(), "AMYFRIENDS")
	require.Equal(t, 1, inf.SubscriberCount)
	require.Equal(t, 1, inf.TotalReferrals)
	require.Equal(t, testNow, *inf.LastReferralDate)

	logs := store.logs()
	require.Len(t, logs, 1)
	require.Equal(t, types.ActivityActionReferralPremiumGranted, logs[0].Action)
	require.Equal(t, 30, logs[0].Details["premiumDuration"])
	require.Equal(t, 3, logs[0].Details["daysSinceRegistration"])
	require.Empty(t, store.activationsByEmail("amy@x.com"))
}

func TestProcessReferral_AlreadyPremiumWins(t *testing.T) {
	// Old account and unknown code would also fail; already_premium is reported first.
	store := referralStore(30)
	u := store.user("u1")
	u.PremiumUser = true
	store.addUser(u)
	svc, _ := newTestService(t, store)

	_, err := svc.ProcessReferral(context.Background(), &ReferralRequest{Email: "amy@x.com", ReferralCode: "NOPE"})
	require.ErrorIs(t, err, ErrAlreadyPremium)
	require.Empty(t, store.writes)
}

func TestProcessReferral_Window(t *testing.T) {
	svc, _ := newTestService(t, referralStore(7))
	_, err := svc.ProcessReferral(context.Background(), &ReferralRequest{Email: "amy@x.com", ReferralCode: "AMYFRIENDS"})
	require.NoError(t, err)

	store := referralStore(8)
	svc, _ = newTestService(t, store)
	_, err = svc.ProcessReferral(context.Background(), &ReferralRequest{Email: "amy@x.com", ReferralCode: "AMYFRIENDS"})
	require.ErrorIs(t, err, ErrExpired)
	le, ok := AsError(err)
	require.True(t, ok)
	require.NotNil(t, le.DaysSinceRegistration)
	require.Equal(t, 8, *le.DaysSinceRegistration)
	require.Empty(t, store.writes)
}

func TestProcessReferral_Rejections(t *testing.T) {
	store := referralStore(1)
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.ProcessReferral(ctx, &ReferralRequest{Email: "ghost@x.com", ReferralCode: "AMYFRIENDS"})
	require.ErrorIs(t, err, ErrNotRegistered)

	_, err = svc.ProcessReferral(ctx, &ReferralRequest{Email: "amy@x.com", ReferralCode: "UNKNOWN"})
	require.ErrorIs(t, err, ErrInvalidReferralCode)

	_, err = svc.ProcessReferral(ctx, &ReferralRequest{Email: "amy@x.com", ReferralCode: "AMYFRIENDS", Duration: intPtr(0)})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.ProcessReferral(ctx, &ReferralRequest{Email: "amy@x.com"})
	require.ErrorIs(t, err, ErrValidation)

	require.Empty(t, store.writes)
}

func TestProcessReferral_ConcurrentPremiumFlip(t *testing.T) {
	store := referralStore(1)
	// The committed row is already premium, but the precondition read saw it before the flip.
	stale := store.user("u1")
	store.staleUsers["amy@x.com"] = &stale
	u := store.user("u1")
	u.PremiumUser = true
	store.addUser(u)
	svc, _ := newTestService(t, store)

	_, err := svc.ProcessReferral(context.Background(), &ReferralRequest{Email: "amy@x.com", ReferralCode: "AMYFRIENDS"})
	require.ErrorIs(t, err, ErrAlreadyPremium)
	require.Empty(t, store.writes)
	inf, _ := store.FindInfluencerByReferralCode(context.Background(), "AMYFRIENDS")
	require.Equal(t, 0, inf.TotalReferrals)
}

func TestCheckReferralEligibility(t *testing.T) {
	store := referralStore(2)
	store.addUser(models.User{ID: "u2", Email: "old@x.com", CreatedAt: lo.ToPtr(testNow.AddDate(0, 0, -10))})
	store.addUser(models.User{ID: "u3", Email: "imported@x.com"})
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	res, err := svc.CheckReferralEligibility(ctx, "amy@x.com")
	require.NoError(t, err)
	require.True(t, res.Eligible)
	require.Equal(t, 2, *res.DaysSinceRegistration)

	res, err = svc.CheckReferralEligibility(ctx, "old@x.com")
	require.NoError(t, err)
	require.False(t, res.Eligible)
	require.Equal(t, ReasonExpired, res.Reason)
	require.Equal(t, 10, *res.DaysSinceRegistration)

	res, err = svc.CheckReferralEligibility(ctx, "imported@x.com")
	require.NoError(t, err)
	require.True(t, res.Eligible)
	require.Equal(t, 0, *res.DaysSinceRegistration)

	res, err = svc.CheckReferralEligibility(ctx, "ghost@x.com")
	require.NoError(t, err)
	require.Equal(t, ReasonNotRegistered, res.Reason)

	_, err = svc.CheckReferralEligibility(ctx, " ")
	require.ErrorIs(t, err, ErrValidation)
	require.Empty(t, store.writes)
}
