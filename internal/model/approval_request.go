package model

import (
	"time"

	"github.com/google/uuid"
)

// ApprovalRequestType enum constants
const (
	ApprovalReqTypeUserDeletion   = "user_deletion"
	ApprovalReqTypeBudgetApproval = "budget_approval"
	ApprovalReqTypeEscalation     = "escalation"
)

// Approval status constants
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// ApprovalRequest represents a pending administrative decision (budget, deletion,
// escalation) routed by role. Side effects run only when the request is approved.
type ApprovalRequest struct {
	ID              uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RequestType     string     `gorm:"type:varchar(30);not null;index" json:"request_type"`
	ReferenceID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"reference_id"` // FK to users.id / work_orders.id
	RequestData     string     `gorm:"type:jsonb;not null" json:"request_data"`      // Full snapshot of the request payload
	Status          string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	RequestedBy     *uuid.UUID `gorm:"type:uuid;index" json:"requested_by"`
	Requester       *User      `gorm:"foreignKey:RequestedBy" json:"requester,omitempty"`
	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver        *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at"`
	RejectionReason string     `gorm:"type:text" json:"rejection_reason"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
