package repository

import (
	"context"

	"fieldops/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NoteRepository interface {
	Create(ctx context.Context, note *model.WorkOrderNote) error
	ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID, page, limit int) ([]model.WorkOrderNote, int64, error)
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) Create(ctx context.Context, note *model.WorkOrderNote) error {
	return GetDB(ctx, r.db).Create(note).Error
}

func (r *noteRepository) ListByWorkOrder(ctx context.Context, workOrderID uuid.UUID, page, limit int) ([]model.WorkOrderNote, int64, error) {
	var notes []model.WorkOrderNote
	var total int64

	query := GetDB(ctx, r.db).Model(&model.WorkOrderNote{}).Where("work_order_id = ?", workOrderID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Author").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notes).Error; err != nil {
		return nil, 0, err
	}

	return notes, total, nil
}
