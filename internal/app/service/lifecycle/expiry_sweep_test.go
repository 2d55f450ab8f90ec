package lifecycle

import (
	"context"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

func premiumUser(id, email string, expiresInDays int) models.User {
	return models.User{
		ID:                id,
		Email:             email,
		PremiumUser:       true,
		MartPremiumUser:   true,
		PremiumExpiryDate: lo.ToPtr(testNow.AddDate(0, 0, expiresInDays)),
		PremiumSource:     lo.ToPtr(types.PartnerSource("acme")),
		Notes:             "vip",
	}
}

func TestDeactivateExpiredPremium(t *testing.T) {
	store := newMemStore()
	store.addUser(premiumUser("u1", "old@x.com", -1))
	store.addUser(premiumUser("u2", "fresh@x.com", 5))
	svc, _ := newTestService(t, store)
	ctx := context.Background()

	sum, err := svc.DeactivateExpiredPremium(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, sum.Checked)
	require.Equal(t, 1, sum.Deactivated)
	require.Empty(t, sum.Errors)

	u := store.user("u1")
	require.False(t, u.PremiumUser)
	require.False(t, u.MartPremiumUser)
	require.Equal(t, testNow, *u.PremiumDeactivatedAt)
	require.Equal(t, "vip\nPremium expired on 2025-03-09", u.Notes)
	require.True(t, store.user("u2").PremiumUser)

	logs := store.logs()
	require.Len(t, logs, 1)
	require.Equal(t, types.ActivityActionAutoDeactivated, logs[0].Action)
	require.Equal(t, types.PerformedBySystem, logs[0].PerformedBy)
	require.False(t, logs[0].AdminAction)

	again, err := svc.DeactivateExpiredPremium(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, again.Checked)
	require.Len(t, store.logs(), 1)
}

func TestDeactivateExpiredPremium_FutureExpiryLeftUntouched(t *testing.T) {
	store := newMemStore()
	future := premiumUser("u1", "a@x.com", 3)
	store.addUser(future)
	store.expiredUsers = []*models.User{lo.ToPtr(future)}
	svc, _ := newTestService(t, store)

	sum, err := svc.DeactivateExpiredPremium(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.Checked)
	require.Equal(t, 1, sum.StillActive)
	require.Equal(t, 0, sum.Deactivated)
	require.Empty(t, store.writes)
	require.True(t, store.user("u1").PremiumUser)
}

func TestDeactivateExpiredPremium_RenewedSinceListed(t *testing.T) {
	store := newMemStore()
	listed := premiumUser("u1", "a@x.com", -2)
	store.addUser(premiumUser("u1", "a@x.com", 30))
	store.expiredUsers = []*models.User{lo.ToPtr(listed)}
	svc, _ := newTestService(t, store)

	sum, err := svc.DeactivateExpiredPremium(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, sum.StillActive)
	require.Empty(t, sum.Errors)
	require.Empty(t, store.writes)
	require.Empty(t, store.logs())
}

func TestDeactivateExpiredPremium_ForeignPremiumSources(t *testing.T) {
	store := newMemStore()
	raws := map[string]string{"u1": "unknown", "u2": "in_app_purchase", "u3": "stripe_sub_1"}
	for id, raw := range raws {
		u := premiumUser(id, id+"@x.com", -1)
		var src types.PremiumSource
		require.NoError(t, src.Scan(raw))
		u.PremiumSource = &src
		store.addUser(u)
	}
	store.addUser(premiumUser("u4", "u4@x.com", -1))
	noSource := premiumUser("u5", "u5@x.com", -1)
	noSource.PremiumSource = nil
	store.addUser(noSource)
	svc, _ := newTestService(t, store)

	sum, err := svc.DeactivateExpiredPremium(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, sum.Checked)
	require.Equal(t, 5, sum.Deactivated)
	require.Empty(t, sum.Errors)

	logged := map[string]string{}
	for _, l := range store.logs() {
		src := ""
		if l.PremiumSource != nil {
			src = l.PremiumSource.String()
		}
		logged[*l.UserID] = src
	}
	for id, raw := range raws {
		require.False(t, store.user(id).PremiumUser)
		require.Equal(t, raw, logged[id])
	}
	require.Equal(t, "partner_acme", logged["u4"])
	require.Equal(t, "", logged["u5"])
}
