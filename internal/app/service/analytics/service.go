package analytics

import (
	"context"
	"fmt"
	"sync"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tierbill/tierbill/internal/app/service/ledger"
	"github.com/tierbill/tierbill/pkg/types"
)

// MetricType identifies one aggregate computed over the ledger.
type MetricType string

const (
	MetricTypeTotalRevenue      MetricType = "total_revenue"
	MetricTypeRevenueByProvider MetricType = "revenue_by_provider"
	MetricTypeRevenueByPlan     MetricType = "revenue_by_plan"
	MetricTypeCountByStatus     MetricType = "count_by_status"
	MetricTypeCountByProvider   MetricType = "count_by_provider"
	MetricTypeDailyRevenue      MetricType = "daily_revenue"
)

// AllMetricTypes is what an analytics request defaults to.
var AllMetricTypes = []MetricType{
	MetricTypeTotalRevenue,
	MetricTypeRevenueByProvider,
	MetricTypeRevenueByPlan,
	MetricTypeCountByStatus,
	MetricTypeCountByProvider,
	MetricTypeDailyRevenue,
}

type Request struct {
	Filter  *ledger.TransactionFilter `json:"filter"`
	Metrics []MetricType              `json:"metrics"`
}

// DataItem is one row of one metric: a label (provider, plan, status or
// date, depending on the metric) and its aggregate value. Revenue is in the
// major currency unit.
type DataItem struct {
	Label string `json:"label,omitempty" gorm:"column:label"`
	Value int64  `json:"value" gorm:"column:value"`
	Count int64  `json:"count,omitempty" gorm:"column:count"`
}

type Response struct {
	Metrics map[MetricType][]DataItem `json:"metrics"`
}

// Service computes ledger aggregates. It reads the same table the ledger
// service lists from; all revenue metrics count successful rows only.
type Service struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) base(ctx context.Context, filter *ledger.TransactionFilter, successOnly bool) *gorm.DB {
	q := s.db.WithContext(ctx).Table("transaction")
	if filter != nil {
		q = q.Where(clause.Where{Exprs: []clause.Expression{filter}})
	}
	if successOnly {
		q = q.Where("status = ?", types.TransactionStatusSuccess)
	}
	return q
}

func (s *Service) getTotalRevenue(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, true).
		Select("COALESCE(SUM(amount), 0) as value, COUNT(*) as count").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getRevenueByProvider(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, true).
		Select("payment_provider as label, COALESCE(SUM(amount), 0) as value, COUNT(*) as count").
		Group("payment_provider").
		Order("label").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getRevenueByPlan(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, true).
		Select("plan as label, COALESCE(SUM(amount), 0) as value, COUNT(*) as count").
		Group("plan").
		Order("value DESC").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getCountByStatus(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, false).
		Select("status as label, COUNT(*) as value").
		Group("status").
		Order("label").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getCountByProvider(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, false).
		Select("payment_provider as label, COUNT(*) as value").
		Group("payment_provider").
		Order("label").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getDailyRevenue(ctx context.Context, filter *ledger.TransactionFilter) ([]DataItem, error) {
	var results []DataItem
	err := s.base(ctx, filter, true).
		Select("TO_CHAR(created_at, 'YYYY-MM-DD') as label, COALESCE(SUM(amount), 0) as value, COUNT(*) as count").
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order(clause.OrderByColumn{Column: clause.Column{Name: "label"}, Desc: true}).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Service) getMetric(ctx context.Context, filter *ledger.TransactionFilter, metric MetricType) ([]DataItem, error) {
	switch metric {
	case MetricTypeTotalRevenue:
		return s.getTotalRevenue(ctx, filter)
	case MetricTypeRevenueByProvider:
		return s.getRevenueByProvider(ctx, filter)
	case MetricTypeRevenueByPlan:
		return s.getRevenueByPlan(ctx, filter)
	case MetricTypeCountByStatus:
		return s.getCountByStatus(ctx, filter)
	case MetricTypeCountByProvider:
		return s.getCountByProvider(ctx, filter)
	case MetricTypeDailyRevenue:
		return s.getDailyRevenue(ctx, filter)
	default:
		return nil, fmt.Errorf("invalid metric type: %s", metric)
	}
}

// GetAnalytics computes the requested metrics concurrently and returns them
// keyed by metric type. An empty metric list means all of them.
func (s *Service) GetAnalytics(ctx context.Context, request *Request) (*Response, error) {
	if request == nil {
		request = &Request{}
	}
	metrics := request.Metrics
	if len(metrics) == 0 {
		metrics = AllMetricTypes
	}

	results, err := collectMetrics(metrics, func(m MetricType) ([]DataItem, error) {
		return s.getMetric(ctx, request.Filter, m)
	})
	if err != nil {
		return nil, err
	}
	return &Response{Metrics: results}, nil
}

// collectMetrics fans the metric queries out and drains every buffered
// result after the last worker finishes. Both channels are sized to the
// metric count, so the workers never block and waiting before the drain
// cannot deadlock; draining only after the close means no result can be
// lost to a zero read from the closed error channel.
func collectMetrics(metrics []MetricType, run func(MetricType) ([]DataItem, error)) (map[MetricType][]DataItem, error) {
	var wg sync.WaitGroup
	errChan := make(chan error, len(metrics))
	resChan := make(chan *lo.Entry[MetricType, []DataItem], len(metrics))

	for _, metric := range metrics {
		wg.Add(1)
		go func(m MetricType) {
			defer wg.Done()
			res, err := run(m)
			if err != nil {
				errChan <- err
				return
			}
			resChan <- &lo.Entry[MetricType, []DataItem]{Key: m, Value: res}
		}(metric)
	}

	wg.Wait()
	close(errChan)
	close(resChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	results := make(map[MetricType][]DataItem, len(metrics))
	for entry := range resChan {
		results[entry.Key] = entry.Value
	}
	return results, nil
}
