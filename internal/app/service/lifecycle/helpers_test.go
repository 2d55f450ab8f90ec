package lifecycle

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/types"
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Jobs: config.JobsConfig{BatchLimit: 100, MaxAttempts: 1},
		Lifecycle: config.LifecycleConfig{
			DefaultPartnerDurationDays: 90,
			ReferralDurationDays:       30,
			ReferralWindowDays:         7,
		},
	}
}

type recordingNotifier struct {
	approved []*SubscriptionOutcome
	err      error
}

func (n *recordingNotifier) SubscriptionApproved(_ context.Context, outcome *SubscriptionOutcome) error {
	n.approved = append(n.approved, outcome)
	return n.err
}

func newTestService(t *testing.T, store Store) (*Service, *recordingNotifier) {
	t.Helper()
	notifier := &recordingNotifier{}
	svc := newService(testConfig(), zap.NewNop().Sugar(), store, notifier)
	svc.now = func() time.Time { return testNow }
	seq := 0
	svc.newID = func() string {
		seq++
		return fmt.Sprintf("gen-%03d", seq)
	}
	return svc, notifier
}

func pendingSub(id, email, partnerID string, duration int) models.Subscription {
	return models.Subscription{
		ID:            id,
		CustomerEmail: email,
		PartnerID:     partnerID,
		Status:        types.SubscriptionStatusPending,
		Duration:      duration,
		CreatedAt:     testNow.Add(-time.Hour),
	}
}

func acmePartner() models.Partner {
	return models.Partner{
		ID:                          "acme",
		Slug:                        "acme",
		Name:                        "Acme",
		Status:                      types.PartnerStatusActive,
		DefaultSubscriptionDuration: 90,
	}
}

func intPtr(v int) *int { return &v }
