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

// DTOs
type CreateTaskRequest struct {
	Title    string `json:"title" binding:"required"`
	Category string `json:"category" binding:"required,oneof=pre_visit on_site post_site"`
}

type UpdateTaskRequest struct {
	Title    string `json:"title"`
	Category string `json:"category" binding:"omitempty,oneof=pre_visit on_site post_site"`
}

type TaskResponse struct {
	ID              string  `json:"id"`
	WorkOrderID     string  `json:"work_order_id"`
	Title           string  `json:"title"`
	Category        string  `json:"category"`
	IsCompleted     bool    `json:"is_completed"`
	CompletedAt     *string `json:"completed_at"`
	CompletedByID   *string `json:"completed_by_id"`
	CompletedByName string  `json:"completed_by_name,omitempty"`
}

// ChecklistGroup is one visit phase of the checklist
type ChecklistGroup struct {
	Category  string         `json:"category"`
	Tasks     []TaskResponse `json:"tasks"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
}

// ChecklistResponse groups a work order's tasks by phase in display order
type ChecklistResponse struct {
	WorkOrderID string           `json:"work_order_id"`
	Groups      []ChecklistGroup `json:"groups"`
	Completed   int              `json:"completed"`
	Total       int              `json:"total"`
}

type TaskService interface {
	ListByWorkOrder(ctx context.Context, actor Actor, workOrderID string) (ChecklistResponse, error)
	Create(ctx context.Context, actor Actor, workOrderID string, req CreateTaskRequest) (TaskResponse, error)
	Update(ctx context.Context, actor Actor, taskID string, req UpdateTaskRequest) (TaskResponse, error)
	Delete(ctx context.Context, actor Actor, taskID string) error
	Complete(ctx context.Context, actor Actor, taskID string) (TaskResponse, error)
	Uncomplete(ctx context.Context, actor Actor, taskID string) (TaskResponse, error)
}

type taskService struct {
	taskRepo  repository.TaskRepository
	orderRepo repository.WorkOrderRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	now       func() time.Time
}

func NewTaskService(
	taskRepo repository.TaskRepository,
	orderRepo repository.WorkOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) TaskService {
	return &taskService{
		taskRepo:  taskRepo,
		orderRepo: orderRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func toTaskResponse(t *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          t.ID.String(),
		WorkOrderID: t.WorkOrderID.String(),
		Title:       t.Title,
		Category:    t.Category,
		IsCompleted: t.IsCompleted,
	}
	if t.CompletedAt != nil {
		s := t.CompletedAt.Format(time.RFC3339)
		resp.CompletedAt = &s
	}
	if t.CompletedByID != nil {
		s := t.CompletedByID.String()
		resp.CompletedByID = &s
	}
	if t.CompletedBy != nil {
		resp.CompletedByName = t.CompletedBy.Username
	}
	return resp
}

func (s *taskService) ListByWorkOrder(ctx context.Context, actor Actor, workOrderID string) (ChecklistResponse, error) {
	order, err := s.findOrder(ctx, workOrderID)
	if err != nil {
		return ChecklistResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return ChecklistResponse{}, err
	}

	tasks, err := s.taskRepo.ListByWorkOrder(ctx, order.ID)
	if err != nil {
		return ChecklistResponse{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	resp := ChecklistResponse{WorkOrderID: order.ID.String()}
	byCategory := make(map[string][]TaskResponse, len(model.TaskCategories))
	for i := range tasks {
		byCategory[tasks[i].Category] = append(byCategory[tasks[i].Category], toTaskResponse(&tasks[i]))
	}

	for _, category := range model.TaskCategories {
		group := ChecklistGroup{Category: category, Tasks: byCategory[category]}
		if group.Tasks == nil {
			group.Tasks = []TaskResponse{}
		}
		group.Total = len(group.Tasks)
		for _, t := range group.Tasks {
			if t.IsCompleted {
				group.Completed++
			}
		}
		resp.Groups = append(resp.Groups, group)
		resp.Total += group.Total
		resp.Completed += group.Completed
	}

	return resp, nil
}

func (s *taskService) Create(ctx context.Context, actor Actor, workOrderID string, req CreateTaskRequest) (TaskResponse, error) {
	order, err := s.findOrder(ctx, workOrderID)
	if err != nil {
		return TaskResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return TaskResponse{}, err
	}
	if err := checklistOpen(order); err != nil {
		return TaskResponse{}, err
	}

	task := &model.Task{
		WorkOrderID: order.ID,
		Title:       req.Title,
		Category:    req.Category,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return TaskResponse{}, fmt.Errorf("failed to create task: %w", err)
	}
	return toTaskResponse(task), nil
}

func (s *taskService) Update(ctx context.Context, actor Actor, taskID string, req UpdateTaskRequest) (TaskResponse, error) {
	task, order, err := s.findTask(ctx, taskID)
	if err != nil {
		return TaskResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return TaskResponse{}, err
	}
	if err := checklistOpen(order); err != nil {
		return TaskResponse{}, err
	}

	if req.Title != "" {
		task.Title = req.Title
	}
	if req.Category != "" {
		task.Category = req.Category
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return TaskResponse{}, fmt.Errorf("failed to update task: %w", err)
	}
	return toTaskResponse(task), nil
}

func (s *taskService) Delete(ctx context.Context, actor Actor, taskID string) error {
	task, order, err := s.findTask(ctx, taskID)
	if err != nil {
		return err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return err
	}
	if err := checklistOpen(order); err != nil {
		return err
	}
	return s.taskRepo.Delete(ctx, task.ID)
}

func (s *taskService) Complete(ctx context.Context, actor Actor, taskID string) (TaskResponse, error) {
	return s.setCompletion(ctx, actor, taskID, true)
}

func (s *taskService) Uncomplete(ctx context.Context, actor Actor, taskID string) (TaskResponse, error) {
	return s.setCompletion(ctx, actor, taskID, false)
}

func (s *taskService) setCompletion(ctx context.Context, actor Actor, taskID string, completed bool) (TaskResponse, error) {
	task, order, err := s.findTask(ctx, taskID)
	if err != nil {
		return TaskResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return TaskResponse{}, err
	}
	if err := checklistOpen(order); err != nil {
		return TaskResponse{}, err
	}

	if task.IsCompleted == completed {
		if completed {
			return TaskResponse{}, conflict("task is already completed")
		}
		return TaskResponse{}, conflict("task is not completed")
	}

	action := model.ActionCompleteTask
	if completed {
		now := s.now()
		actorID := actor.ID
		task.IsCompleted = true
		task.CompletedAt = &now
		task.CompletedByID = &actorID
	} else {
		action = model.ActionUncompleteTask
		task.IsCompleted = false
		task.CompletedAt = nil
		task.CompletedByID = nil
		task.CompletedBy = nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.taskRepo.Update(txCtx, task); err != nil {
			return fmt.Errorf("failed to update task: %w", err)
		}

		actorID := actor.ID
		entry := &model.AuditLog{
			UserID:     &actorID,
			Action:     action,
			EntityID:   task.ID.String(),
			EntityName: task.Title,
			Details:    fmt.Sprintf(`{"work_order_id":%q,"category":%q}`, order.ID.String(), task.Category),
		}
		if err := s.auditRepo.Create(txCtx, entry); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		return TaskResponse{}, err
	}

	return toTaskResponse(task), nil
}

// --- helpers ---

func (s *taskService) findOrder(ctx context.Context, id string) (*model.WorkOrder, error) {
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

func (s *taskService) findTask(ctx context.Context, id string) (*model.Task, *model.WorkOrder, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, nil, notFound("task not found")
	}
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("task not found")
		}
		return nil, nil, err
	}
	order, err := s.orderRepo.FindByID(ctx, task.WorkOrderID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load work order: %w", err)
	}
	return task, order, nil
}

// checklistOpen rejects checklist edits once the visit is completed or the
// order cancelled; reopening the order (Mark Incomplete) unlocks it again.
func checklistOpen(order *model.WorkOrder) error {
	if order.WorkStatus == model.WorkStatusCompleted {
		return conflict("the task checklist is locked on a completed work order")
	}
	if order.Status == model.StatusCancelled {
		return conflict("work order is cancelled")
	}
	return nil
}
