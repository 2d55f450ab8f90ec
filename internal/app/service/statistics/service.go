package statistics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nextbud/premium/internal/models"
	"github.com/nextbud/premium/pkg/types"
)

type StatisticType string

const (
	// Current state
	StatisticTypeSubscriptionStatusCount      StatisticType = "subscription_status_count"
	StatisticTypePendingActivationStatusCount StatisticType = "pending_activation_status_count"
	StatisticTypeTotalPremiumUsers            StatisticType = "total_premium_users"

	// Daily series
	StatisticTypeDailyActivityCount StatisticType = "daily_activity_count"
	StatisticTypeDailyApprovedCount StatisticType = "daily_approved_count"
)

var statisticTypes = []StatisticType{
	StatisticTypeSubscriptionStatusCount,
	StatisticTypePendingActivationStatusCount,
	StatisticTypeTotalPremiumUsers,
	StatisticTypeDailyActivityCount,
	StatisticTypeDailyApprovedCount,
}

// Filter fields that only make sense for some statistic types.
type StatisticFilterType string

const (
	StatisticFilterTypePartnerID StatisticFilterType = "partner_id"
	StatisticFilterTypeAction    StatisticFilterType = "action"
)

var filterTypes = []StatisticFilterType{
	StatisticFilterTypePartnerID,
	StatisticFilterTypeAction,
}

var validFilters = map[StatisticFilterType][]StatisticType{
	StatisticFilterTypePartnerID: {
		StatisticTypeSubscriptionStatusCount,
		StatisticTypePendingActivationStatusCount,
		StatisticTypeDailyActivityCount,
		StatisticTypeDailyApprovedCount,
	},
	StatisticFilterTypeAction: {StatisticTypeDailyActivityCount},
}

type StatisticDataItem struct {
	ID StatisticType `json:"id"`
}

type StatisticRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	DataItems []*StatisticDataItem  `json:"dataItems"`
}

// Validate rejects unknown data items and malformed filters.
func (r *StatisticRequest) Validate() error {
	if r == nil || len(r.DataItems) == 0 {
		return fmt.Errorf("dataItems must be a non-empty list")
	}
	for _, di := range r.DataItems {
		if di == nil || !lo.Contains(statisticTypes, di.ID) {
			return fmt.Errorf("invalid data item id: %v", di)
		}
	}
	for _, f := range r.Filters {
		if err := f.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// applicable reports whether every restricted filter in the request supports t.
func (r *StatisticRequest) applicable(t StatisticType) bool {
	for _, filter := range r.Filters {
		ft := StatisticFilterType(filter.Field)
		if lo.Contains(filterTypes, ft) && !lo.Contains(validFilters[ft], t) {
			return false
		}
	}
	return true
}

// Build implements clause.Expression over all filters.
func (r *StatisticRequest) Build(builder clause.Builder) {
	if len(r.Filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(r.Filters))
	for _, f := range r.Filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

func (r *StatisticRequest) where() clause.Where {
	return clause.Where{Exprs: []clause.Expression{r}}
}

type StatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type StatisticResponse struct {
	DataItems map[StatisticType][]StatisticResponseDataItem `json:"dataItems"`
}

// Service provides admin statistics over the lifecycle tables.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) getSubscriptionStatusCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("status as label, count(*) as value").
		Where(request.where()).
		Group("status").
		Order("status")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getPendingActivationStatusCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.PendingActivation{}).TableName()).
		Select("activation_status as label, count(*) as value").
		Where(request.where()).
		Group("activation_status").
		Order("activation_status")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getTotalPremiumUsers(ctx context.Context, _ *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.User{}).TableName()).
		Select("count(*) as value").
		Where("premium_user = ?", true).
		Where("premium_expiry_date >= ?", time.Now())
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyActivityCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.ActivityLog{}).TableName()).
		Select("TO_CHAR(timestamp, 'YYYY-MM-DD') as date, action as label, count(*) as value").
		Where(request.where()).
		Group("TO_CHAR(timestamp, 'YYYY-MM-DD')").
		Group("action").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "date"}, Desc: true})
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyApprovedCount(ctx context.Context, request *StatisticRequest) ([]StatisticResponseDataItem, error) {
	var results []StatisticResponseDataItem
	q := s.db.WithContext(ctx).Table((models.Subscription{}).TableName()).
		Select("TO_CHAR(approved_at, 'YYYY-MM-DD') as date, count(*) as value").
		Where("status = ?", types.SubscriptionStatusActive).
		Where(request.where()).
		Group("TO_CHAR(approved_at, 'YYYY-MM-DD')").
		Order("date")
	if err := q.Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getStatistic(ctx context.Context, request *StatisticRequest, dataItem *StatisticDataItem) ([]StatisticResponseDataItem, error) {
	switch dataItem.ID {
	case StatisticTypeSubscriptionStatusCount:
		return s.getSubscriptionStatusCount(ctx, request)
	case StatisticTypePendingActivationStatusCount:
		return s.getPendingActivationStatusCount(ctx, request)
	case StatisticTypeTotalPremiumUsers:
		return s.getTotalPremiumUsers(ctx, request)
	case StatisticTypeDailyActivityCount:
		return s.getDailyActivityCount(ctx, request)
	case StatisticTypeDailyApprovedCount:
		return s.getDailyApprovedCount(ctx, request)
	default:
		return nil, fmt.Errorf("invalid data item id: %s", dataItem.ID)
	}
}

// GetStatistic computes every requested data item concurrently. Items a
// restricted filter does not apply to come back as nil.
func (s *Service) GetStatistic(ctx context.Context, request *StatisticRequest) (*StatisticResponse, error) {
	if err := request.Validate(); err != nil {
		return nil, err
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	results := make(map[StatisticType][]StatisticResponseDataItem, len(request.DataItems))

	for _, item := range request.DataItems {
		wg.Add(1)
		go func(di *StatisticDataItem) {
			defer wg.Done()
			var res []StatisticResponseDataItem
			var err error
			if request.applicable(di.ID) {
				res, err = s.getStatistic(ctx, request, di)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", di.ID, err)
				}
				return
			}
			results[di.ID] = res
		}(item)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return &StatisticResponse{DataItems: results}, nil
}
