package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreateNoteRequest struct {
	Body string `json:"body" binding:"required"`
}

type NoteResponse struct {
	ID          string `json:"id"`
	WorkOrderID string `json:"work_order_id"`
	AuthorID    string `json:"author_id"`
	AuthorName  string `json:"author_name,omitempty"`
	Body        string `json:"body"`
	CreatedAt   string `json:"created_at"`
}

type NoteService interface {
	Create(ctx context.Context, actor Actor, workOrderID string, req CreateNoteRequest) (NoteResponse, error)
	ListByWorkOrder(ctx context.Context, actor Actor, workOrderID string, page, limit int) ([]NoteResponse, int64, error)
}

type noteService struct {
	noteRepo  repository.NoteRepository
	orderRepo repository.WorkOrderRepository
}

func NewNoteService(noteRepo repository.NoteRepository, orderRepo repository.WorkOrderRepository) NoteService {
	return &noteService{noteRepo: noteRepo, orderRepo: orderRepo}
}

func toNoteResponse(n *model.WorkOrderNote) NoteResponse {
	resp := NoteResponse{
		ID:          n.ID.String(),
		WorkOrderID: n.WorkOrderID.String(),
		AuthorID:    n.AuthorID.String(),
		Body:        n.Body,
		CreatedAt:   n.CreatedAt.Format(time.RFC3339),
	}
	if n.Author != nil {
		resp.AuthorName = n.Author.Username
	}
	return resp
}

func (s *noteService) Create(ctx context.Context, actor Actor, workOrderID string, req CreateNoteRequest) (NoteResponse, error) {
	order, err := s.findOrder(ctx, workOrderID)
	if err != nil {
		return NoteResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return NoteResponse{}, err
	}

	note := &model.WorkOrderNote{
		WorkOrderID: order.ID,
		AuthorID:    actor.ID,
		Body:        req.Body,
	}
	if err := s.noteRepo.Create(ctx, note); err != nil {
		return NoteResponse{}, fmt.Errorf("failed to create note: %w", err)
	}
	return toNoteResponse(note), nil
}

func (s *noteService) ListByWorkOrder(ctx context.Context, actor Actor, workOrderID string, page, limit int) ([]NoteResponse, int64, error) {
	order, err := s.findOrder(ctx, workOrderID)
	if err != nil {
		return nil, 0, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return nil, 0, err
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	notes, total, err := s.noteRepo.ListByWorkOrder(ctx, order.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notes: %w", err)
	}

	responses := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		responses = append(responses, toNoteResponse(&notes[i]))
	}
	return responses, total, nil
}

func (s *noteService) findOrder(ctx context.Context, id string) (*model.WorkOrder, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, notFound("work order not found")
	}
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("work order not found")
		}
		return nil, err
	}
	return order, nil
}
