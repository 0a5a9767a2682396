package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coarse lifecycle statuses
const (
	StatusScheduled  = "scheduled"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusPending    = "pending"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

// Fine-grained field-visit sub-states
const (
	WorkStatusNotStarted = "not_started"
	WorkStatusInRoute    = "in_route"
	WorkStatusCheckedIn  = "checked_in"
	WorkStatusCheckedOut = "checked_out"
	WorkStatusCompleted  = "completed"
)

// Priority constants
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Budget type constants
const (
	BudgetFixed     = "fixed"
	BudgetHourly    = "hourly"
	BudgetPerDevice = "per_device"
)

// Payment status constants (empty string means the order has not been billed yet)
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// WorkOrder represents a unit of field work assigned to an agent, tracked through a
// status/work_status lifecycle. The work_status may only reach completed once every
// associated task is completed; the work-order service enforces that invariant.
type WorkOrder struct {
	ID               uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Title            string              `gorm:"type:varchar(255);not null" json:"title"`
	Description      string              `gorm:"type:text" json:"description"`
	Status           string              `gorm:"type:varchar(20);not null;default:'scheduled';index" json:"status"`
	WorkStatus       string              `gorm:"type:varchar(20);not null;default:'not_started';index" json:"work_status"`
	Priority         string              `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	AssigneeID       *uuid.UUID          `gorm:"type:uuid;index" json:"assignee_id"`
	Assignee         *User               `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	DueDate          time.Time           `gorm:"not null;index" json:"due_date"`
	EstimatedHours   float64             `gorm:"type:decimal(6,2);default:0" json:"estimated_hours"`
	BudgetType       string              `gorm:"type:varchar(20)" json:"budget_type,omitempty"`
	BudgetAmount     decimal.NullDecimal `gorm:"type:decimal(12,2)" json:"budget_amount,omitempty"`
	DevicesInstalled *int                `json:"devices_installed,omitempty"`
	PaymentStatus    string              `gorm:"type:varchar(20)" json:"payment_status,omitempty"`
	Tasks            []Task              `gorm:"foreignKey:WorkOrderID" json:"tasks,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	DeletedAt        gorm.DeletedAt      `gorm:"index" json:"-"`
}
