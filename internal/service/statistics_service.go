package service

import (
	"context"
	"time"

	"fieldops/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context) (model.StatisticsResponse, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

// GetStatistics aggregates the dashboard metrics from work orders and approvals
func (s *statisticsService) GetStatistics(ctx context.Context) (model.StatisticsResponse, error) {
	var response model.StatisticsResponse

	// Status breakdown
	if err := s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Order("status").
		Scan(&response.StatusCounts).Error; err != nil {
		return response, err
	}

	// Overdue open orders
	if err := s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Where("due_date < ? AND status NOT IN ?", time.Now().UTC(), []string{model.StatusCompleted, model.StatusCancelled}).
		Count(&response.OverdueOpen).Error; err != nil {
		return response, err
	}

	// Pending approvals
	if err := s.db.WithContext(ctx).Model(&model.ApprovalRequest{}).
		Where("status = ?", model.ApprovalPending).
		Count(&response.PendingApprovals).Error; err != nil {
		return response, err
	}

	// Per-agent workload with billed totals
	if err := s.db.WithContext(ctx).Table("work_orders").
		Select(`users.id as agent_id,
			users.username as agent_name,
			COUNT(*) FILTER (WHERE work_orders.status NOT IN ('completed', 'cancelled')) as open,
			COUNT(*) FILTER (WHERE work_orders.status = 'completed') as completed,
			COALESCE(SUM(work_orders.budget_amount) FILTER (WHERE work_orders.payment_status = 'paid'), 0) as billed_total`).
		Joins("JOIN users ON users.id = work_orders.assignee_id").
		Where("work_orders.deleted_at IS NULL").
		Group("users.id, users.username").
		Order("users.username").
		Scan(&response.AgentWorkloads).Error; err != nil {
		return response, err
	}

	// Paid and outstanding totals
	var totals struct {
		Paid        decimal.Decimal
		Outstanding decimal.Decimal
	}
	if err := s.db.WithContext(ctx).Model(&model.WorkOrder{}).
		Select(`COALESCE(SUM(budget_amount) FILTER (WHERE payment_status = 'paid'), 0) as paid,
			COALESCE(SUM(budget_amount) FILTER (WHERE payment_status = 'pending'), 0) as outstanding`).
		Scan(&totals).Error; err != nil {
		return response, err
	}
	response.PaidTotal = totals.Paid
	response.OutstandingTotal = totals.Outstanding

	return response, nil
}
