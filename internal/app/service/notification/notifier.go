package notification

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/nextbud/premium/internal/app/service/lifecycle"
	"github.com/nextbud/premium/pkg/logctx"
)

// LogNotifier records approval notifications in the structured log.
// Outbound email is handled by a separate delivery system.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) SubscriptionApproved(ctx context.Context, outcome *lifecycle.SubscriptionOutcome) error {
	logctx.FromCtx(ctx, n.log).Infow("subscription approved",
		"subscription_id", outcome.ID,
		"partner_id", outcome.PartnerID,
		"email", outcome.Email,
		"path", outcome.Path,
		"end_date", outcome.EndDate,
	)
	return nil
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(NewLogNotifier, fx.As(new(lifecycle.Notifier)))),
)
