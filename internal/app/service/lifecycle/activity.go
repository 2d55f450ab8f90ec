package lifecycle

import (
	"time"

	"gorm.io/datatypes"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

func (s *Service) newActivityLog(action types.ActivityAction, performedBy string, at time.Time) *models.ActivityLog {
	return &models.ActivityLog{
		ID:          s.newID(),
		Action:      action,
		PerformedBy: performedBy,
		AdminAction: performedBy != types.PerformedBySystem,
		Details:     datatypes.JSONMap{},
		Timestamp:   at,
	}
}
