package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	ws "fieldops/internal/websocket"
	"fieldops/internal/workorder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DTOs
type CreateWorkOrderRequest struct {
	Title            string    `json:"title" binding:"required"`
	Description      string    `json:"description"`
	Priority         string    `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssigneeID       string    `json:"assignee_id"`
	DueDate          time.Time `json:"due_date" binding:"required"`
	EstimatedHours   float64   `json:"estimated_hours" binding:"omitempty,gte=0"`
	BudgetType       string    `json:"budget_type" binding:"omitempty,oneof=fixed hourly per_device"`
	BudgetAmount     string    `json:"budget_amount"`
	DevicesInstalled *int      `json:"devices_installed"`
}

type UpdateWorkOrderRequest struct {
	Title            string     `json:"title"`
	Description      *string    `json:"description"`
	Priority         string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssigneeID       *string    `json:"assignee_id"`
	DueDate          *time.Time `json:"due_date"`
	EstimatedHours   *float64   `json:"estimated_hours"`
	BudgetType       string     `json:"budget_type" binding:"omitempty,oneof=fixed hourly per_device"`
	BudgetAmount     *string    `json:"budget_amount"`
	DevicesInstalled *int       `json:"devices_installed"`
}

type UpdateWorkStatusRequest struct {
	WorkStatus string `json:"work_status" binding:"required,oneof=not_started in_route checked_in checked_out completed"`
}

type WorkOrderResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Description      string  `json:"description"`
	Status           string  `json:"status"`
	WorkStatus       string  `json:"work_status"`
	Priority         string  `json:"priority"`
	AssigneeID       *string `json:"assignee_id"`
	AssigneeName     string  `json:"assignee_name,omitempty"`
	DueDate          string  `json:"due_date"`
	EstimatedHours   float64 `json:"estimated_hours"`
	BudgetType       string  `json:"budget_type,omitempty"`
	BudgetAmount     *string `json:"budget_amount,omitempty"`
	DevicesInstalled *int    `json:"devices_installed,omitempty"`
	PaymentStatus    string  `json:"payment_status,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

type WorkOrderListFilter struct {
	Status     string
	WorkStatus string
	Priority   string
	AssigneeID string
	Page       int
	Limit      int
}

type WorkOrderService interface {
	Create(ctx context.Context, actor Actor, req CreateWorkOrderRequest) (WorkOrderResponse, error)
	GetByID(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	List(ctx context.Context, actor Actor, filter WorkOrderListFilter) ([]WorkOrderResponse, int64, error)
	Update(ctx context.Context, actor Actor, id string, req UpdateWorkOrderRequest) (WorkOrderResponse, error)
	Delete(ctx context.Context, actor Actor, id string) error
	// Transition returns the gate decision the UI renders as the action button.
	Transition(ctx context.Context, actor Actor, id string) (workorder.Decision, error)
	Confirm(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
	UpdateWorkStatus(ctx context.Context, actor Actor, id string, req UpdateWorkStatusRequest) (WorkOrderResponse, error)
	MarkPaid(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error)
}

type workOrderService struct {
	orderRepo repository.WorkOrderRepository
	taskRepo  repository.TaskRepository
	userRepo  repository.UserRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
	hub       *ws.Hub
	now       func() time.Time
}

func NewWorkOrderService(
	orderRepo repository.WorkOrderRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) WorkOrderService {
	return &workOrderService{
		orderRepo: orderRepo,
		taskRepo:  taskRepo,
		userRepo:  userRepo,
		auditRepo: auditRepo,
		txManager: txManager,
		hub:       hub,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// gateOrder maps the persistence model into the gate's input slice.
func gateOrder(o *model.WorkOrder) workorder.Order {
	assignee := uuid.Nil
	if o.AssigneeID != nil {
		assignee = *o.AssigneeID
	}
	return workorder.Order{
		Status:     workorder.Status(o.Status),
		WorkStatus: workorder.WorkStatus(o.WorkStatus),
		AssigneeID: assignee,
		DueDate:    o.DueDate,
	}
}

func gateCaller(actor Actor) workorder.Caller {
	return workorder.Caller{ID: actor.ID, Role: workorder.Role(actor.Role)}
}

func gateTasks(tasks []model.Task) []workorder.TaskState {
	states := make([]workorder.TaskState, 0, len(tasks))
	for _, t := range tasks {
		states = append(states, workorder.TaskState{IsCompleted: t.IsCompleted})
	}
	return states
}

func toWorkOrderResponse(o *model.WorkOrder) WorkOrderResponse {
	resp := WorkOrderResponse{
		ID:               o.ID.String(),
		Title:            o.Title,
		Description:      o.Description,
		Status:           o.Status,
		WorkStatus:       o.WorkStatus,
		Priority:         o.Priority,
		DueDate:          o.DueDate.Format(time.RFC3339),
		EstimatedHours:   o.EstimatedHours,
		BudgetType:       o.BudgetType,
		DevicesInstalled: o.DevicesInstalled,
		PaymentStatus:    o.PaymentStatus,
		CreatedAt:        o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        o.UpdatedAt.Format(time.RFC3339),
	}
	if o.AssigneeID != nil {
		s := o.AssigneeID.String()
		resp.AssigneeID = &s
	}
	if o.Assignee != nil {
		resp.AssigneeName = o.Assignee.Username
	}
	if o.BudgetAmount.Valid {
		s := o.BudgetAmount.Decimal.StringFixed(2)
		resp.BudgetAmount = &s
	}
	return resp
}

func (s *workOrderService) resolveAssignee(ctx context.Context, id string) (*uuid.UUID, error) {
	if id == "" {
		return nil, nil
	}
	assigneeID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid assignee_id: %w", err)
	}
	user, err := s.userRepo.GetByID(ctx, assigneeID)
	if err != nil {
		return nil, notFound("assignee not found")
	}
	if user.Role != model.RoleFieldAgent {
		return nil, fmt.Errorf("assignee must be a field agent, got role %s", user.Role)
	}
	return &assigneeID, nil
}

func parseBudget(raw string) (decimal.NullDecimal, error) {
	if raw == "" {
		return decimal.NullDecimal{}, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid budget_amount: %w", err)
	}
	if amount.IsNegative() {
		return decimal.NullDecimal{}, errors.New("budget_amount must not be negative")
	}
	return decimal.NullDecimal{Decimal: amount, Valid: true}, nil
}

func (s *workOrderService) Create(ctx context.Context, actor Actor, req CreateWorkOrderRequest) (WorkOrderResponse, error) {
	assigneeID, err := s.resolveAssignee(ctx, req.AssigneeID)
	if err != nil {
		return WorkOrderResponse{}, err
	}

	budget, err := parseBudget(req.BudgetAmount)
	if err != nil {
		return WorkOrderResponse{}, err
	}
	if budget.Valid && req.BudgetType == "" {
		return WorkOrderResponse{}, errors.New("budget_type is required when budget_amount is set")
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	order := &model.WorkOrder{
		Title:            req.Title,
		Description:      req.Description,
		Status:           model.StatusScheduled,
		WorkStatus:       model.WorkStatusNotStarted,
		Priority:         priority,
		AssigneeID:       assigneeID,
		DueDate:          req.DueDate,
		EstimatedHours:   req.EstimatedHours,
		BudgetType:       req.BudgetType,
		BudgetAmount:     budget,
		DevicesInstalled: req.DevicesInstalled,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Create(txCtx, order); err != nil {
			return fmt.Errorf("failed to create work order: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionCreateWorkOrder, order, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) GetByID(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return WorkOrderResponse{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return WorkOrderResponse{}, err
	}
	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) List(ctx context.Context, actor Actor, filter WorkOrderListFilter) ([]WorkOrderResponse, int64, error) {
	repoFilter := repository.WorkOrderFilter{
		Status:     filter.Status,
		WorkStatus: filter.WorkStatus,
		Priority:   filter.Priority,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if repoFilter.Page <= 0 {
		repoFilter.Page = 1
	}
	if repoFilter.Limit <= 0 {
		repoFilter.Limit = 20
	}

	if filter.AssigneeID != "" {
		assigneeID, err := uuid.Parse(filter.AssigneeID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid assignee_id: %w", err)
		}
		repoFilter.AssigneeID = &assigneeID
	}

	// Field agents only ever see their own assignments
	if actor.Role == model.RoleFieldAgent {
		own := actor.ID
		repoFilter.AssigneeID = &own
	}

	orders, total, err := s.orderRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch work orders: %w", err)
	}

	responses := make([]WorkOrderResponse, 0, len(orders))
	for i := range orders {
		responses = append(responses, toWorkOrderResponse(&orders[i]))
	}
	return responses, total, nil
}

func (s *workOrderService) Update(ctx context.Context, actor Actor, id string, req UpdateWorkOrderRequest) (WorkOrderResponse, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return WorkOrderResponse{}, err
	}

	if order.Status == model.StatusCompleted || order.Status == model.StatusCancelled {
		return WorkOrderResponse{}, conflict("completed or cancelled work orders cannot be edited")
	}

	if req.Title != "" {
		order.Title = req.Title
	}
	if req.Description != nil {
		order.Description = *req.Description
	}
	if req.Priority != "" {
		order.Priority = req.Priority
	}
	if req.DueDate != nil {
		order.DueDate = *req.DueDate
	}
	if req.EstimatedHours != nil {
		order.EstimatedHours = *req.EstimatedHours
	}
	if req.BudgetType != "" {
		order.BudgetType = req.BudgetType
	}
	if req.BudgetAmount != nil {
		budget, err := parseBudget(*req.BudgetAmount)
		if err != nil {
			return WorkOrderResponse{}, err
		}
		order.BudgetAmount = budget
	}
	if req.DevicesInstalled != nil {
		order.DevicesInstalled = req.DevicesInstalled
	}
	if req.AssigneeID != nil {
		assigneeID, err := s.resolveAssignee(ctx, *req.AssigneeID)
		if err != nil {
			return WorkOrderResponse{}, err
		}
		order.AssigneeID = assigneeID
		order.Assignee = nil
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update work order: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionUpdateWorkOrder, order, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) Delete(ctx context.Context, actor Actor, id string) error {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.Delete(txCtx, order.ID); err != nil {
			return fmt.Errorf("failed to delete work order: %w", err)
		}
		return s.audit(txCtx, actor, model.ActionDeleteWorkOrder, order, nil)
	})
}

func (s *workOrderService) Transition(ctx context.Context, actor Actor, id string) (workorder.Decision, error) {
	order, err := s.findOrder(ctx, id)
	if err != nil {
		return workorder.Decision{}, err
	}
	if err := checkAssigneeVisibility(actor, order); err != nil {
		return workorder.Decision{}, err
	}

	tasks, err := s.taskRepo.ListByWorkOrder(ctx, order.ID)
	if err != nil {
		return workorder.Decision{}, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	return workorder.Decide(gateOrder(order), gateTasks(tasks), gateCaller(actor), s.now()), nil
}

func (s *workOrderService) Confirm(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return WorkOrderResponse{}, notFound("work order not found")
	}

	var order *model.WorkOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("work order not found")
			}
			return err
		}

		if order.Status != model.StatusScheduled {
			return conflict(fmt.Sprintf("work order is already %s", order.Status))
		}

		if ok, reason := workorder.CanConfirm(gateOrder(order), gateCaller(actor), s.now()); !ok {
			return forbidden(reason)
		}

		order.Status = model.StatusConfirmed
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to confirm work order: %w", err)
		}

		return s.audit(txCtx, actor, model.ActionConfirmWorkOrder, order, nil)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	s.publish("work_order.confirmed", order, nil)
	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) UpdateWorkStatus(ctx context.Context, actor Actor, id string, req UpdateWorkStatusRequest) (WorkOrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return WorkOrderResponse{}, notFound("work order not found")
	}

	target, err := workorder.ParseWorkStatus(req.WorkStatus)
	if err != nil {
		return WorkOrderResponse{}, err
	}

	var order *model.WorkOrder
	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("work order not found")
			}
			return err
		}
		from = order.WorkStatus

		switch order.Status {
		case model.StatusScheduled:
			return conflict("work order must be confirmed before its work status can change")
		case model.StatusCancelled:
			return conflict(workorder.ReasonCancelled)
		}

		if ok, reason := workorder.CanUpdateStatus(gateOrder(order), gateCaller(actor)); !ok {
			return forbidden(reason)
		}

		current := workorder.WorkStatus(order.WorkStatus)
		if !workorder.CanTransition(current, target) {
			return conflict(fmt.Sprintf("cannot move work status from %s to %s", current, target))
		}

		switch target {
		case workorder.WorkCompleted:
			incomplete, err := s.taskRepo.CountIncomplete(txCtx, order.ID)
			if err != nil {
				return fmt.Errorf("failed to count tasks: %w", err)
			}
			if incomplete > 0 {
				return conflict(workorder.IncompleteReason(int(incomplete)))
			}
			order.Status = model.StatusCompleted
			if order.BudgetAmount.Valid {
				order.PaymentStatus = model.PaymentPending
			}
		case workorder.WorkCheckedOut:
			if current == workorder.WorkCompleted {
				// Mark Incomplete: paid orders stay closed
				if order.PaymentStatus == model.PaymentPaid {
					return conflict("paid work orders cannot be reopened")
				}
				order.Status = model.StatusInProgress
				order.PaymentStatus = ""
			} else {
				order.Status = model.StatusInProgress
			}
		default:
			order.Status = model.StatusInProgress
		}
		order.WorkStatus = string(target)

		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to update work status: %w", err)
		}

		return s.audit(txCtx, actor, model.ActionWorkStatusChange, order, map[string]interface{}{
			"from": from,
			"to":   string(target),
		})
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	s.publish("work_order.work_status_changed", order, map[string]interface{}{
		"from": from,
		"to":   order.WorkStatus,
	})
	return toWorkOrderResponse(order), nil
}

func (s *workOrderService) MarkPaid(ctx context.Context, actor Actor, id string) (WorkOrderResponse, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return WorkOrderResponse{}, notFound("work order not found")
	}

	var order *model.WorkOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, err = s.orderRepo.FindByIDForUpdate(txCtx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("work order not found")
			}
			return err
		}

		if order.Status != model.StatusCompleted {
			return conflict("only completed work orders can be marked paid")
		}
		if order.PaymentStatus != model.PaymentPending {
			return conflict("work order has no pending payment")
		}

		order.PaymentStatus = model.PaymentPaid
		if err := s.orderRepo.Update(txCtx, order); err != nil {
			return fmt.Errorf("failed to mark work order paid: %w", err)
		}

		details := map[string]interface{}{}
		if order.BudgetAmount.Valid {
			details["amount"] = order.BudgetAmount.Decimal.StringFixed(2)
		}
		return s.audit(txCtx, actor, model.ActionMarkPaid, order, details)
	})
	if err != nil {
		return WorkOrderResponse{}, err
	}

	s.publish("work_order.paid", order, nil)
	return toWorkOrderResponse(order), nil
}

// --- helpers ---

func (s *workOrderService) findOrder(ctx context.Context, id string) (*model.WorkOrder, error) {
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

// checkAssigneeVisibility hides work orders from field agents other than their
// assignee; staff roles see everything.
func checkAssigneeVisibility(actor Actor, order *model.WorkOrder) error {
	if actor.Role != model.RoleFieldAgent {
		return nil
	}
	if order.AssigneeID == nil || *order.AssigneeID != actor.ID {
		return forbidden("work order is not assigned to you")
	}
	return nil
}

func (s *workOrderService) audit(ctx context.Context, actor Actor, action string, order *model.WorkOrder, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"status":      order.Status,
		"work_status": order.WorkStatus,
	}
	for k, v := range extra {
		payload[k] = v
	}
	details, _ := json.Marshal(payload)

	actorID := actor.ID
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   order.ID.String(),
		EntityName: order.Title,
		Details:    string(details),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *workOrderService) publish(event string, order *model.WorkOrder, extra map[string]interface{}) {
	if s.hub == nil {
		return
	}
	data := map[string]interface{}{
		"work_order_id": order.ID.String(),
		"status":        order.Status,
		"work_status":   order.WorkStatus,
	}
	for k, v := range extra {
		data[k] = v
	}
	s.hub.Publish(event, data)
}
