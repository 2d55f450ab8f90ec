package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/pkg/types"
)

func TestLogNotifier_SubscriptionApproved(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	n := NewLogNotifier(zap.New(core).Sugar())

	err := n.SubscriptionApproved(context.Background(), &lifecycle.SubscriptionOutcome{
		ID:        "s1",
		PartnerID: "acme",
		Email:     "a@x.com",
		Path:      types.GrantPathPendingActivation,
	})
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("subscription approved").Len())
	require.Equal(t, "acme", logs.All()[0].ContextMap()["partner_id"])
}
