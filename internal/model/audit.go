package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionCreateWorkOrder  = "CREATE_WORK_ORDER"
	ActionUpdateWorkOrder  = "UPDATE_WORK_ORDER"
	ActionDeleteWorkOrder  = "DELETE_WORK_ORDER"
	ActionConfirmWorkOrder = "CONFIRM_WORK_ORDER"
	ActionWorkStatusChange = "WORK_STATUS_CHANGE"
	ActionMarkPaid         = "MARK_PAID"

	ActionCompleteTask   = "COMPLETE_TASK"
	ActionUncompleteTask = "UNCOMPLETE_TASK"

	// Approval workflow actions
	ActionCreateApprovalRequest = "CREATE_APPROVAL_REQUEST"
	ActionApproveRequest        = "APPROVE_REQUEST"
	ActionRejectRequest         = "REJECT_REQUEST"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated bot
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    string     `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
