package model

import (
	"time"

	"github.com/google/uuid"
)

// Task categories, one per visit phase
const (
	TaskPreVisit = "pre_visit"
	TaskOnSite   = "on_site"
	TaskPostSite = "post_site"
)

// TaskCategories in checklist display order
var TaskCategories = []string{TaskPreVisit, TaskOnSite, TaskPostSite}

// Task is a checklist item attached to a work order, grouped by visit phase
type Task struct {
	ID            uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	WorkOrderID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"work_order_id"`
	Title         string     `gorm:"type:varchar(255);not null" json:"title"`
	Category      string     `gorm:"type:varchar(20);not null;index" json:"category"`
	IsCompleted   bool       `gorm:"not null;default:false" json:"is_completed"`
	CompletedAt   *time.Time `json:"completed_at"`
	CompletedByID *uuid.UUID `gorm:"type:uuid" json:"completed_by_id"`
	CompletedBy   *User      `gorm:"foreignKey:CompletedByID" json:"completed_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
