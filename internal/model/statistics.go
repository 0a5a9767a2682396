package model

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StatusCount is one row of the work-order status breakdown
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// AgentWorkload aggregates one field agent's assignments
type AgentWorkload struct {
	AgentID     uuid.UUID       `json:"agent_id"`
	AgentName   string          `json:"agent_name"`
	Open        int64           `json:"open"`
	Completed   int64           `json:"completed"`
	BilledTotal decimal.Decimal `json:"billed_total"`
}

// StatisticsResponse is the dashboard aggregate returned by GET /api/statistics
type StatisticsResponse struct {
	StatusCounts     []StatusCount   `json:"status_counts"`
	OverdueOpen      int64           `json:"overdue_open"`
	PendingApprovals int64           `json:"pending_approvals"`
	AgentWorkloads   []AgentWorkload `json:"agent_workloads"`
	PaidTotal        decimal.Decimal `json:"paid_total"`
	OutstandingTotal decimal.Decimal `json:"outstanding_total"`
}
