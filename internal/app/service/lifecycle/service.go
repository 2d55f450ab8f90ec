package lifecycle

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/nextbud/premium/pkg/config"
	"github.com/nextbud/premium/pkg/tool"
)

// fallbackPartnerDuration applies when neither the request, the subscription
// nor the partner carries a duration.
const fallbackPartnerDuration = 90

type Service struct {
	cfg      *config.Config
	log      *zap.SugaredLogger
	store    Store
	notifier Notifier
	now      func() time.Time
	newID    func() string
}

func NewService(cfg *config.Config, log *zap.SugaredLogger, store Store, notifier Notifier) Manager {
	return newService(cfg, log, store, notifier)
}

func newService(cfg *config.Config, log *zap.SugaredLogger, store Store, notifier Notifier) *Service {
	return &Service{
		cfg:      cfg,
		log:      log,
		store:    store,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    tool.GenerateUUIDV7,
	}
}

// NormalizeEmail trims and lowercases an email for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) batchLimit() int {
	if s.cfg.Jobs.BatchLimit > 0 {
		return s.cfg.Jobs.BatchLimit
	}
	return 100
}
