// Package telemetry provides OpenTelemetry integration for metrics collection.
package telemetry

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// GormFulfillmentStateProvider implements FulfillmentStateProvider using GORM.
// It queries the order and job tables directly for aggregated gauge values.
type GormFulfillmentStateProvider struct {
	db *gorm.DB
}

// NewGormFulfillmentStateProvider creates a new GormFulfillmentStateProvider.
func NewGormFulfillmentStateProvider(db *gorm.DB) *GormFulfillmentStateProvider {
	return &GormFulfillmentStateProvider{db: db}
}

// CountOpenOrdersByStatus returns the number of non-terminal orders per status.
func (p *GormFulfillmentStateProvider) CountOpenOrdersByStatus(ctx context.Context) (map[string]int64, error) {
	type result struct {
		Status string `gorm:"column:status"`
		Count  int64  `gorm:"column:count"`
	}

	var results []result
	err := p.db.WithContext(ctx).
		Table("print_orders").
		Select("status, COUNT(*) as count").
		Where("status NOT IN ?", []string{"DELIVERED", "CANCELLED", "FAILED"}).
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, r := range results {
		counts[r.Status] = r.Count
	}
	return counts, nil
}

// CountRunnableJobs returns the number of waiting rendition jobs whose
// scheduled time has passed.
func (p *GormFulfillmentStateProvider) CountRunnableJobs(ctx context.Context) (int64, error) {
	var count int64
	err := p.db.WithContext(ctx).
		Table("rendition_jobs").
		Where("status = ? AND next_run_at <= ?", "WAITING", time.Now()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
