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

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateApprovalRequestDTO struct {
	RequestType string `json:"request_type" binding:"required,oneof=user_deletion budget_approval escalation"`
	ReferenceID string `json:"reference_id" binding:"required"`
	RequestData string `json:"request_data"` // JSON snapshot, defaults to {}
}

type ApprovalListFilter struct {
	Status string // pending, approved, rejected or empty for all
	Page   int
	Limit  int
}

type RejectRequestDTO struct {
	Reason string `json:"reason"`
}

type ApprovalRequestResponse struct {
	ID              string  `json:"id"`
	RequestType     string  `json:"request_type"`
	ReferenceID     string  `json:"reference_id"`
	RequestData     string  `json:"request_data"`
	Status          string  `json:"status"`
	RequestedBy     *string `json:"requested_by"`
	RequesterName   string  `json:"requester_name"`
	ApprovedBy      *string `json:"approved_by"`
	ApproverName    string  `json:"approver_name"`
	ApprovedAt      *string `json:"approved_at"`
	RejectionReason string  `json:"rejection_reason"`
	CreatedAt       string  `json:"created_at"`
}

// budgetRequestData is the expected request_data payload of a budget_approval.
type budgetRequestData struct {
	BudgetType   string `json:"budget_type"`
	BudgetAmount string `json:"budget_amount"`
}

// visibleTypes is the static role->request-type routing table. A role may list
// and decide only the types named here.
var visibleTypes = map[string][]string{
	model.RoleAdmin:      {model.ApprovalReqTypeUserDeletion, model.ApprovalReqTypeBudgetApproval, model.ApprovalReqTypeEscalation},
	model.RoleManager:    {model.ApprovalReqTypeBudgetApproval, model.ApprovalReqTypeEscalation},
	model.RoleDispatcher: {model.ApprovalReqTypeEscalation},
	model.RoleFieldAgent: {},
}

// VisibleTypes returns the approval request types the role may see.
func VisibleTypes(role string) []string {
	return visibleTypes[role]
}

func typeVisible(role, requestType string) bool {
	for _, t := range visibleTypes[role] {
		if t == requestType {
			return true
		}
	}
	return false
}

// --- Interface ---

type ApprovalService interface {
	Create(ctx context.Context, actor Actor, req CreateApprovalRequestDTO) (ApprovalRequestResponse, error)
	List(ctx context.Context, actor Actor, filter ApprovalListFilter) ([]ApprovalRequestResponse, int64, error)
	Approve(ctx context.Context, actor Actor, id string) (ApprovalRequestResponse, error)
	Reject(ctx context.Context, actor Actor, id string, reason string) (ApprovalRequestResponse, error)
}

type approvalService struct {
	approvalRepo repository.ApprovalRepository
	userRepo     repository.UserRepository
	orderRepo    repository.WorkOrderRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewApprovalService(
	approvalRepo repository.ApprovalRepository,
	userRepo repository.UserRepository,
	orderRepo repository.WorkOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) ApprovalService {
	return &approvalService{
		approvalRepo: approvalRepo,
		userRepo:     userRepo,
		orderRepo:    orderRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *approvalService) Create(ctx context.Context, actor Actor, req CreateApprovalRequestDTO) (ApprovalRequestResponse, error) {
	// Field agents may only raise escalations
	if actor.Role == model.RoleFieldAgent && req.RequestType != model.ApprovalReqTypeEscalation {
		return ApprovalRequestResponse{}, forbidden("field agents may only raise escalations")
	}

	refID, err := uuid.Parse(req.ReferenceID)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("invalid reference_id: %w", err)
	}

	if err := s.validateReference(ctx, req.RequestType, refID); err != nil {
		return ApprovalRequestResponse{}, err
	}

	data := req.RequestData
	if data == "" {
		data = "{}"
	} else if !json.Valid([]byte(data)) {
		return ApprovalRequestResponse{}, errors.New("request_data must be valid JSON")
	}

	requesterID := actor.ID
	approval := &model.ApprovalRequest{
		RequestType: req.RequestType,
		ReferenceID: refID,
		RequestData: data,
		Status:      model.ApprovalPending,
		RequestedBy: &requesterID,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.approvalRepo.Create(txCtx, approval); createErr != nil {
			return fmt.Errorf("failed to create approval request: %w", createErr)
		}
		return s.audit(txCtx, actor, model.ActionCreateApprovalRequest, approval, nil)
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	return s.reload(ctx, approval.ID)
}

func (s *approvalService) List(ctx context.Context, actor Actor, filter ApprovalListFilter) ([]ApprovalRequestResponse, int64, error) {
	types := VisibleTypes(actor.Role)
	if len(types) == 0 {
		return []ApprovalRequestResponse{}, 0, nil
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	approvals, total, err := s.approvalRepo.List(ctx, repository.ApprovalFilter{
		Types:  types,
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch approval requests: %w", err)
	}

	result := make([]ApprovalRequestResponse, 0, len(approvals))
	for i := range approvals {
		result = append(result, toApprovalResponse(&approvals[i]))
	}
	return result, total, nil
}

func (s *approvalService) Approve(ctx context.Context, actor Actor, id string) (ApprovalRequestResponse, error) {
	approvalID, err := uuid.Parse(id)
	if err != nil {
		return ApprovalRequestResponse{}, notFound("approval request not found")
	}

	var approval *model.ApprovalRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err = s.approvalRepo.FindByIDForUpdate(txCtx, approvalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("approval request not found")
			}
			return err
		}

		if !typeVisible(actor.Role, approval.RequestType) {
			return forbidden(fmt.Sprintf("role %s may not decide %s requests", actor.Role, approval.RequestType))
		}
		if approval.Status != model.ApprovalPending {
			return conflict(fmt.Sprintf("approval request is already %s", approval.Status))
		}

		now := time.Now()
		approverID := actor.ID
		approval.Status = model.ApprovalApproved
		approval.ApprovedBy = &approverID
		approval.ApprovedAt = &now

		if saveErr := s.approvalRepo.Update(txCtx, approval); saveErr != nil {
			return fmt.Errorf("failed to update approval request: %w", saveErr)
		}

		// Execute post-approval actions based on request type
		if execErr := s.executeApproval(txCtx, approval); execErr != nil {
			return execErr
		}

		return s.audit(txCtx, actor, model.ActionApproveRequest, approval, nil)
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.publish("approval.approved", approval)
	return s.reload(ctx, approval.ID)
}

func (s *approvalService) Reject(ctx context.Context, actor Actor, id string, reason string) (ApprovalRequestResponse, error) {
	approvalID, err := uuid.Parse(id)
	if err != nil {
		return ApprovalRequestResponse{}, notFound("approval request not found")
	}

	var approval *model.ApprovalRequest
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		approval, err = s.approvalRepo.FindByIDForUpdate(txCtx, approvalID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("approval request not found")
			}
			return err
		}

		if !typeVisible(actor.Role, approval.RequestType) {
			return forbidden(fmt.Sprintf("role %s may not decide %s requests", actor.Role, approval.RequestType))
		}
		if approval.Status != model.ApprovalPending {
			return conflict(fmt.Sprintf("approval request is already %s", approval.Status))
		}

		now := time.Now()
		approverID := actor.ID
		approval.Status = model.ApprovalRejected
		approval.ApprovedBy = &approverID
		approval.ApprovedAt = &now
		approval.RejectionReason = reason

		if saveErr := s.approvalRepo.Update(txCtx, approval); saveErr != nil {
			return fmt.Errorf("failed to update approval request: %w", saveErr)
		}

		return s.audit(txCtx, actor, model.ActionRejectRequest, approval, map[string]interface{}{"reason": reason})
	})
	if err != nil {
		return ApprovalRequestResponse{}, err
	}

	s.publish("approval.rejected", approval)
	return s.reload(ctx, approval.ID)
}

// executeApproval performs the side effects of an approval:
// user_deletion soft-deletes the referenced user, budget_approval applies the
// requested budget to the work order, escalation bumps its priority.
func (s *approvalService) executeApproval(ctx context.Context, approval *model.ApprovalRequest) error {
	switch approval.RequestType {
	case model.ApprovalReqTypeUserDeletion:
		if _, err := s.userRepo.GetByID(ctx, approval.ReferenceID); err != nil {
			return notFound("referenced user not found")
		}
		if err := s.userRepo.Delete(ctx, approval.ReferenceID); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return nil

	case model.ApprovalReqTypeBudgetApproval:
		var data budgetRequestData
		if err := json.Unmarshal([]byte(approval.RequestData), &data); err != nil {
			return fmt.Errorf("invalid budget request data: %w", err)
		}

		order, err := s.orderRepo.FindByIDForUpdate(ctx, approval.ReferenceID)
		if err != nil {
			return notFound("referenced work order not found")
		}

		budget, err := parseBudget(data.BudgetAmount)
		if err != nil {
			return err
		}
		if !budget.Valid {
			return errors.New("budget request data has no budget_amount")
		}

		order.BudgetAmount = budget
		if data.BudgetType != "" {
			order.BudgetType = data.BudgetType
		}
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return fmt.Errorf("failed to apply budget: %w", err)
		}
		return nil

	case model.ApprovalReqTypeEscalation:
		order, err := s.orderRepo.FindByIDForUpdate(ctx, approval.ReferenceID)
		if err != nil {
			return notFound("referenced work order not found")
		}
		order.Priority = model.PriorityUrgent
		if err := s.orderRepo.Update(ctx, order); err != nil {
			return fmt.Errorf("failed to escalate work order: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown request type: %s", approval.RequestType)
	}
}

// --- helpers ---

func (s *approvalService) validateReference(ctx context.Context, requestType string, refID uuid.UUID) error {
	switch requestType {
	case model.ApprovalReqTypeUserDeletion:
		if _, err := s.userRepo.GetByID(ctx, refID); err != nil {
			return notFound("referenced user not found")
		}
	case model.ApprovalReqTypeBudgetApproval, model.ApprovalReqTypeEscalation:
		if _, err := s.orderRepo.FindByID(ctx, refID); err != nil {
			return notFound("referenced work order not found")
		}
	}
	return nil
}

func (s *approvalService) audit(ctx context.Context, actor Actor, action string, approval *model.ApprovalRequest, extra map[string]interface{}) error {
	payload := map[string]interface{}{
		"request_type": approval.RequestType,
		"reference_id": approval.ReferenceID.String(),
	}
	for k, v := range extra {
		payload[k] = v
	}
	details, _ := json.Marshal(payload)

	actorID := actor.ID
	entry := &model.AuditLog{
		UserID:     &actorID,
		Action:     action,
		EntityID:   approval.ID.String(),
		EntityName: approval.RequestType,
		Details:    string(details),
	}
	if err := s.auditRepo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *approvalService) publish(event string, approval *model.ApprovalRequest) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(event, map[string]interface{}{
		"approval_id":  approval.ID.String(),
		"request_type": approval.RequestType,
		"reference_id": approval.ReferenceID.String(),
		"status":       approval.Status,
	})
}

func (s *approvalService) reload(ctx context.Context, id uuid.UUID) (ApprovalRequestResponse, error) {
	approval, err := s.approvalRepo.FindByID(ctx, id)
	if err != nil {
		return ApprovalRequestResponse{}, fmt.Errorf("failed to reload approval request: %w", err)
	}
	return toApprovalResponse(approval), nil
}

func toApprovalResponse(a *model.ApprovalRequest) ApprovalRequestResponse {
	resp := ApprovalRequestResponse{
		ID:              a.ID.String(),
		RequestType:     a.RequestType,
		ReferenceID:     a.ReferenceID.String(),
		RequestData:     a.RequestData,
		Status:          a.Status,
		RejectionReason: a.RejectionReason,
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}

	if a.RequestedBy != nil {
		s := a.RequestedBy.String()
		resp.RequestedBy = &s
	}
	if a.Requester != nil {
		resp.RequesterName = a.Requester.Username
	}
	if a.ApprovedBy != nil {
		s := a.ApprovedBy.String()
		resp.ApprovedBy = &s
	}
	if a.Approver != nil {
		resp.ApproverName = a.Approver.Username
	}
	if a.ApprovedAt != nil {
		s := a.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &s
	}

	return resp
}
