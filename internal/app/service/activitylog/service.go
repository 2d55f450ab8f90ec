package activitylog

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/logctx"
	"github.com/nextbud/premium/pkg/tool"
	"github.com/nextbud/premium/pkg/types"
)

// ErrInvalidRequest wraps every scan request rejected before querying.
var ErrInvalidRequest = errors.New("invalid activity log scan request")

var sortableColumns = map[string]bool{
	"timestamp":    true,
	"action":       true,
	"partner_id":   true,
	"user_id":      true,
	"performed_by": true,
}

type ScanRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sortBy"`
	SortOrder string                `json:"sortOrder"`
}

type ScanResponse struct {
	Items []*models.ActivityLog `json:"items"`
	Total int64                 `json:"total"`
}

// Service reads the activity log and appends entries for writes made outside
// the lifecycle engine.
type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Append writes entry using db, which may be an open transaction.
func Append(ctx context.Context, db *gorm.DB, entry *models.ActivityLog) error {
	if entry == nil {
		return fmt.Errorf("nil activity log")
	}
	if entry.ID == "" {
		entry.ID = tool.GenerateUUIDV7()
	}
	return db.WithContext(ctx).Create(entry).Error
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

// normalize fills paging defaults and validates filters and sorting.
func (req *ScanRequest) normalize() error {
	if req.Size <= 0 {
		req.Size = 20
	}
	if req.Size > 200 {
		req.Size = 200
	}
	if req.From < 0 {
		req.From = 0
	}
	for _, f := range req.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	if req.SortBy == "" {
		req.SortBy = "timestamp"
	}
	if !sortableColumns[req.SortBy] {
		return fmt.Errorf("unsupported sort field: %s", req.SortBy)
	}
	if req.SortOrder == "" {
		req.SortOrder = "desc"
	}
	if req.SortOrder != "asc" && req.SortOrder != "desc" {
		return fmt.Errorf("sortOrder must be asc or desc")
	}
	return nil
}

// Scan implements paginated admin listing with filters
func (s *Service) Scan(ctx context.Context, req *ScanRequest) (*ScanResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if err := req.normalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	tx := s.db.WithContext(ctx).Model(&models.ActivityLog{})
	if len(req.Filters) > 0 {
		tx = tx.Where(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("count activity logs failed", "err", err)
		return nil, fmt.Errorf("count activity logs: %w", err)
	}

	var items []*models.ActivityLog
	err := tx.Order(clause.OrderByColumn{Column: clause.Column{Name: req.SortBy}, Desc: req.SortOrder == "desc"}).
		Limit(req.Size).
		Offset(req.From).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("scan activity logs: %w", err)
	}
	return &ScanResponse{Items: items, Total: total}, nil
}
