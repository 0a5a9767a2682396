package service

import (
	"context"
	"testing"

	"fieldops/internal/model"
	"fieldops/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newApprovalServiceForTest(approvalRepo *mockApprovalRepo, userRepo *mockUserRepo, orderRepo *mockWorkOrderRepo, auditRepo *mockAuditRepo) ApprovalService {
	return NewApprovalService(approvalRepo, userRepo, orderRepo, auditRepo, mockTxManager{}, nil)
}

func pendingApproval(requestType string, refID uuid.UUID, data string) *model.ApprovalRequest {
	return &model.ApprovalRequest{
		ID:          uuid.New(),
		RequestType: requestType,
		ReferenceID: refID,
		RequestData: data,
		Status:      model.ApprovalPending,
	}
}

// approvalRepoFor wires both finders to the same in-memory row so the reload
// after a decision sees the updated state.
func approvalRepoFor(approval *model.ApprovalRequest) *mockApprovalRepo {
	return &mockApprovalRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.ApprovalRequest, error) {
			return approval, nil
		},
		findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.ApprovalRequest, error) {
			return approval, nil
		},
	}
}

func TestApprovalVisibility(t *testing.T) {
	tests := []struct {
		role string
		want []string
	}{
		{model.RoleAdmin, []string{model.ApprovalReqTypeUserDeletion, model.ApprovalReqTypeBudgetApproval, model.ApprovalReqTypeEscalation}},
		{model.RoleManager, []string{model.ApprovalReqTypeBudgetApproval, model.ApprovalReqTypeEscalation}},
		{model.RoleDispatcher, []string{model.ApprovalReqTypeEscalation}},
		{model.RoleFieldAgent, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			assert.Equal(t, tt.want, VisibleTypes(tt.role))
		})
	}
}

func TestCreateApproval(t *testing.T) {
	t.Run("field agents may only raise escalations", func(t *testing.T) {
		svc := newApprovalServiceForTest(&mockApprovalRepo{}, &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), Actor{ID: uuid.New(), Role: model.RoleFieldAgent}, CreateApprovalRequestDTO{
			RequestType: model.ApprovalReqTypeBudgetApproval,
			ReferenceID: uuid.NewString(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("budget approval needs an existing work order", func(t *testing.T) {
		svc := newApprovalServiceForTest(&mockApprovalRepo{}, &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, CreateApprovalRequestDTO{
			RequestType: model.ApprovalReqTypeBudgetApproval,
			ReferenceID: uuid.NewString(),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("request data must be valid JSON", func(t *testing.T) {
		orderID := uuid.New()
		orderRepo := &mockWorkOrderRepo{
			findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) {
				return &model.WorkOrder{ID: orderID}, nil
			},
		}
		svc := newApprovalServiceForTest(&mockApprovalRepo{}, &mockUserRepo{}, orderRepo, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, CreateApprovalRequestDTO{
			RequestType: model.ApprovalReqTypeBudgetApproval,
			ReferenceID: orderID.String(),
			RequestData: "not json",
		})
		require.Error(t, err)
	})

	t.Run("created requests start pending", func(t *testing.T) {
		orderID := uuid.New()
		var stored *model.ApprovalRequest
		approvalRepo := &mockApprovalRepo{
			createFn: func(_ context.Context, req *model.ApprovalRequest) error {
				req.ID = uuid.New()
				stored = req
				return nil
			},
			findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.ApprovalRequest, error) {
				return stored, nil
			},
		}
		orderRepo := &mockWorkOrderRepo{
			findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) {
				return &model.WorkOrder{ID: orderID}, nil
			},
		}
		auditRepo := &mockAuditRepo{}
		svc := newApprovalServiceForTest(approvalRepo, &mockUserRepo{}, orderRepo, auditRepo)

		resp, err := svc.Create(context.Background(), Actor{ID: uuid.New(), Role: model.RoleFieldAgent}, CreateApprovalRequestDTO{
			RequestType: model.ApprovalReqTypeEscalation,
			ReferenceID: orderID.String(),
		})
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalPending, resp.Status)
		assert.Equal(t, "{}", resp.RequestData)
		require.Len(t, auditRepo.entries, 1)
		assert.Equal(t, model.ActionCreateApprovalRequest, auditRepo.entries[0].Action)
	})
}

func TestListApprovals(t *testing.T) {
	t.Run("field agents see nothing", func(t *testing.T) {
		svc := newApprovalServiceForTest(&mockApprovalRepo{}, &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		result, total, err := svc.List(context.Background(), Actor{ID: uuid.New(), Role: model.RoleFieldAgent}, ApprovalListFilter{})
		require.NoError(t, err)
		assert.Empty(t, result)
		assert.Zero(t, total)
	})

	t.Run("dispatcher queries escalations only", func(t *testing.T) {
		var captured repository.ApprovalFilter
		approvalRepo := &mockApprovalRepo{
			listFn: func(_ context.Context, filter repository.ApprovalFilter) ([]model.ApprovalRequest, int64, error) {
				captured = filter
				return nil, 0, nil
			},
		}
		svc := newApprovalServiceForTest(approvalRepo, &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, _, err := svc.List(context.Background(), Actor{ID: uuid.New(), Role: model.RoleDispatcher}, ApprovalListFilter{Status: model.ApprovalPending})
		require.NoError(t, err)
		assert.Equal(t, []string{model.ApprovalReqTypeEscalation}, captured.Types)
		assert.Equal(t, model.ApprovalPending, captured.Status)
	})
}

func TestApprove(t *testing.T) {
	t.Run("dispatcher may not decide budget requests", func(t *testing.T) {
		approval := pendingApproval(model.ApprovalReqTypeBudgetApproval, uuid.New(), "{}")
		svc := newApprovalServiceForTest(approvalRepoFor(approval), &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, err := svc.Approve(context.Background(), Actor{ID: uuid.New(), Role: model.RoleDispatcher}, approval.ID.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Equal(t, model.ApprovalPending, approval.Status)
	})

	t.Run("decided requests cannot be decided again", func(t *testing.T) {
		approval := pendingApproval(model.ApprovalReqTypeEscalation, uuid.New(), "{}")
		approval.Status = model.ApprovalApproved
		svc := newApprovalServiceForTest(approvalRepoFor(approval), &mockUserRepo{}, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, err := svc.Approve(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, approval.ID.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("approved budget request applies the budget", func(t *testing.T) {
		orderID := uuid.New()
		order := &model.WorkOrder{ID: orderID, Status: model.StatusConfirmed}
		approval := pendingApproval(model.ApprovalReqTypeBudgetApproval, orderID, `{"budget_type":"fixed","budget_amount":"900.50"}`)

		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		auditRepo := &mockAuditRepo{}
		svc := newApprovalServiceForTest(approvalRepoFor(approval), &mockUserRepo{}, orderRepo, auditRepo)

		resp, err := svc.Approve(context.Background(), Actor{ID: uuid.New(), Role: model.RoleManager}, approval.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.ApprovalApproved, resp.Status)
		assert.Equal(t, model.BudgetFixed, order.BudgetType)
		require.True(t, order.BudgetAmount.Valid)
		assert.True(t, order.BudgetAmount.Decimal.Equal(decimal.RequireFromString("900.50")))
		require.Len(t, auditRepo.entries, 1)
		assert.Equal(t, model.ActionApproveRequest, auditRepo.entries[0].Action)
	})

	t.Run("approved escalation bumps priority", func(t *testing.T) {
		orderID := uuid.New()
		order := &model.WorkOrder{ID: orderID, Priority: model.PriorityLow}
		approval := pendingApproval(model.ApprovalReqTypeEscalation, orderID, "{}")

		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newApprovalServiceForTest(approvalRepoFor(approval), &mockUserRepo{}, orderRepo, &mockAuditRepo{})

		_, err := svc.Approve(context.Background(), Actor{ID: uuid.New(), Role: model.RoleDispatcher}, approval.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.PriorityUrgent, order.Priority)
	})

	t.Run("approved user deletion removes the user", func(t *testing.T) {
		userID := uuid.New()
		approval := pendingApproval(model.ApprovalReqTypeUserDeletion, userID, "{}")

		userRepo := &mockUserRepo{
			getByIDFn: func(_ context.Context, id uuid.UUID) (*model.User, error) {
				return &model.User{ID: id, Role: model.RoleFieldAgent}, nil
			},
		}
		svc := newApprovalServiceForTest(approvalRepoFor(approval), userRepo, &mockWorkOrderRepo{}, &mockAuditRepo{})

		_, err := svc.Approve(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, approval.ID.String())
		require.NoError(t, err)
		require.Len(t, userRepo.deleted, 1)
		assert.Equal(t, userID, userRepo.deleted[0])
	})
}

func TestReject(t *testing.T) {
	orderID := uuid.New()
	order := &model.WorkOrder{ID: orderID, Priority: model.PriorityLow}
	approval := pendingApproval(model.ApprovalReqTypeEscalation, orderID, "{}")

	orderRepo := &mockWorkOrderRepo{
		findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
	}
	auditRepo := &mockAuditRepo{}
	svc := newApprovalServiceForTest(approvalRepoFor(approval), &mockUserRepo{}, orderRepo, auditRepo)

	resp, err := svc.Reject(context.Background(), Actor{ID: uuid.New(), Role: model.RoleAdmin}, approval.ID.String(), "duplicate request")
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalRejected, resp.Status)
	assert.Equal(t, "duplicate request", resp.RejectionReason)

	// Rejection has no side effects on the referenced work order.
	assert.Equal(t, model.PriorityLow, order.Priority)
	assert.Empty(t, orderRepo.updated)
	require.Len(t, auditRepo.entries, 1)
	assert.Equal(t, model.ActionRejectRequest, auditRepo.entries[0].Action)
}
