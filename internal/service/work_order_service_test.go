package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldops/internal/model"
	"fieldops/internal/repository"
	"fieldops/internal/workorder"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newWorkOrderServiceForTest(orderRepo *mockWorkOrderRepo, taskRepo *mockTaskRepo, userRepo *mockUserRepo, auditRepo *mockAuditRepo) *workOrderService {
	svc := NewWorkOrderService(orderRepo, taskRepo, userRepo, auditRepo, mockTxManager{}, nil).(*workOrderService)
	svc.now = func() time.Time { return testNow }
	return svc
}

func scheduledOrder(assignee uuid.UUID, due time.Time) *model.WorkOrder {
	id := assignee
	return &model.WorkOrder{
		ID:         uuid.New(),
		Title:      "Install router",
		Status:     model.StatusScheduled,
		WorkStatus: model.WorkStatusNotStarted,
		Priority:   model.PriorityMedium,
		AssigneeID: &id,
		DueDate:    due,
	}
}

func TestConfirm(t *testing.T) {
	agentID := uuid.New()
	dispatcher := Actor{ID: uuid.New(), Role: model.RoleDispatcher}
	agent := Actor{ID: agentID, Role: model.RoleFieldAgent}

	t.Run("dispatcher confirms regardless of due date", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(72*time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		auditRepo := &mockAuditRepo{}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, auditRepo)

		resp, err := svc.Confirm(context.Background(), dispatcher, order.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, resp.Status)
		require.Len(t, auditRepo.entries, 1)
		assert.Equal(t, model.ActionConfirmWorkOrder, auditRepo.entries[0].Action)
	})

	t.Run("assignee blocked 48h before due date", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(48*time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Confirm(context.Background(), agent, order.ID.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Contains(t, err.Error(), workorder.ReasonOutsideWindow)
		assert.Equal(t, model.StatusScheduled, order.Status)
	})

	t.Run("assignee confirms 12h before due date", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(12*time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		resp, err := svc.Confirm(context.Background(), agent, order.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, resp.Status)
	})

	t.Run("assignee confirms past-due order", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(-2*time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Confirm(context.Background(), agent, order.ID.String())
		require.NoError(t, err)
	})

	t.Run("other agent may not confirm", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(2*time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Confirm(context.Background(), Actor{ID: uuid.New(), Role: model.RoleFieldAgent}, order.ID.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbidden)
		assert.Contains(t, err.Error(), workorder.ReasonNotAssignee)
	})

	t.Run("repeat confirm conflicts", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(2*time.Hour))
		order.Status = model.StatusConfirmed
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Confirm(context.Background(), dispatcher, order.ID.String())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("unknown order", func(t *testing.T) {
		svc := newWorkOrderServiceForTest(&mockWorkOrderRepo{}, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Confirm(context.Background(), dispatcher, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestUpdateWorkStatus(t *testing.T) {
	agentID := uuid.New()
	agent := Actor{ID: agentID, Role: model.RoleFieldAgent}
	manager := Actor{ID: uuid.New(), Role: model.RoleManager}

	inProgress := func(ws string) *model.WorkOrder {
		o := scheduledOrder(agentID, testNow.Add(time.Hour))
		o.Status = model.StatusInProgress
		o.WorkStatus = ws
		return o
	}

	t.Run("scheduled order rejects status change", func(t *testing.T) {
		order := scheduledOrder(agentID, testNow.Add(time.Hour))
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusInRoute})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("forward steps advance one at a time", func(t *testing.T) {
		order := inProgress(model.WorkStatusNotStarted)
		order.Status = model.StatusConfirmed
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		resp, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusInRoute})
		require.NoError(t, err)
		assert.Equal(t, model.WorkStatusInRoute, resp.WorkStatus)
		assert.Equal(t, model.StatusInProgress, resp.Status)
	})

	t.Run("skipping a step conflicts", func(t *testing.T) {
		order := inProgress(model.WorkStatusNotStarted)
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCheckedOut})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("completion blocked while tasks remain", func(t *testing.T) {
		order := inProgress(model.WorkStatusCheckedOut)
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		taskRepo := &mockTaskRepo{
			countIncompleteFn: func(_ context.Context, _ uuid.UUID) (int64, error) { return 2, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, taskRepo, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCompleted})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
		assert.Contains(t, err.Error(), "2 task(s) still incomplete")
		assert.Equal(t, model.WorkStatusCheckedOut, order.WorkStatus)
	})

	t.Run("completion with all tasks done bills the order", func(t *testing.T) {
		order := inProgress(model.WorkStatusCheckedOut)
		order.BudgetType = model.BudgetFixed
		order.BudgetAmount = decimal.NullDecimal{Decimal: decimal.NewFromInt(1200), Valid: true}
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		auditRepo := &mockAuditRepo{}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, auditRepo)

		resp, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCompleted})
		require.NoError(t, err)
		assert.Equal(t, model.WorkStatusCompleted, resp.WorkStatus)
		assert.Equal(t, model.StatusCompleted, resp.Status)
		assert.Equal(t, model.PaymentPending, resp.PaymentStatus)
		require.Len(t, auditRepo.entries, 1)
		assert.Equal(t, model.ActionWorkStatusChange, auditRepo.entries[0].Action)
	})

	t.Run("completed order reopens to checked_out", func(t *testing.T) {
		order := inProgress(model.WorkStatusCompleted)
		order.Status = model.StatusCompleted
		order.PaymentStatus = model.PaymentPending
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		resp, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCheckedOut})
		require.NoError(t, err)
		assert.Equal(t, model.WorkStatusCheckedOut, resp.WorkStatus)
		assert.Equal(t, model.StatusInProgress, resp.Status)
		assert.Empty(t, resp.PaymentStatus)
	})

	t.Run("paid order stays closed", func(t *testing.T) {
		order := inProgress(model.WorkStatusCompleted)
		order.Status = model.StatusCompleted
		order.PaymentStatus = model.PaymentPaid
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), agent, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCheckedOut})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("cancelled order rejects status change", func(t *testing.T) {
		order := inProgress(model.WorkStatusCheckedIn)
		order.Status = model.StatusCancelled
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), manager, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusCheckedOut})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("other agent may not drive the sequence", func(t *testing.T) {
		order := inProgress(model.WorkStatusNotStarted)
		order.Status = model.StatusConfirmed
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.UpdateWorkStatus(context.Background(), Actor{ID: uuid.New(), Role: model.RoleFieldAgent}, order.ID.String(), UpdateWorkStatusRequest{WorkStatus: model.WorkStatusInRoute})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrForbidden)
	})
}

func TestMarkPaid(t *testing.T) {
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	t.Run("pending payment settles", func(t *testing.T) {
		order := scheduledOrder(uuid.New(), testNow)
		order.Status = model.StatusCompleted
		order.WorkStatus = model.WorkStatusCompleted
		order.PaymentStatus = model.PaymentPending
		order.BudgetAmount = decimal.NullDecimal{Decimal: decimal.NewFromInt(500), Valid: true}
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		auditRepo := &mockAuditRepo{}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, auditRepo)

		resp, err := svc.MarkPaid(context.Background(), admin, order.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
		require.Len(t, auditRepo.entries, 1)
		assert.Equal(t, model.ActionMarkPaid, auditRepo.entries[0].Action)
	})

	t.Run("open order cannot be paid", func(t *testing.T) {
		order := scheduledOrder(uuid.New(), testNow)
		order.Status = model.StatusInProgress
		orderRepo := &mockWorkOrderRepo{
			findForUpdateFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.MarkPaid(context.Background(), admin, order.ID.String())
		assert.ErrorIs(t, err, ErrConflict)
	})
}

func TestTransitionDecision(t *testing.T) {
	agentID := uuid.New()
	agent := Actor{ID: agentID, Role: model.RoleFieldAgent}

	order := scheduledOrder(agentID, testNow.Add(time.Hour))
	order.Status = model.StatusInProgress
	order.WorkStatus = model.WorkStatusCheckedOut

	orderRepo := &mockWorkOrderRepo{
		findByIDFn: func(_ context.Context, _ uuid.UUID) (*model.WorkOrder, error) { return order, nil },
	}
	taskRepo := &mockTaskRepo{
		listByWorkOrderFn: func(_ context.Context, _ uuid.UUID) ([]model.Task, error) {
			return []model.Task{{IsCompleted: true}, {IsCompleted: false}}, nil
		},
	}
	svc := newWorkOrderServiceForTest(orderRepo, taskRepo, &mockUserRepo{}, &mockAuditRepo{})

	decision, err := svc.Transition(context.Background(), agent, order.ID.String())
	require.NoError(t, err)
	assert.Equal(t, workorder.LabelCompleteTasksFirst, decision.Label)
	assert.True(t, decision.Disabled)
	assert.Equal(t, "1 task(s) still incomplete", decision.DisabledReason)
}

func TestListScopesFieldAgents(t *testing.T) {
	agentID := uuid.New()
	var captured repository.WorkOrderFilter
	orderRepo := &mockWorkOrderRepo{
		listFn: func(_ context.Context, filter repository.WorkOrderFilter) ([]model.WorkOrder, int64, error) {
			captured = filter
			return nil, 0, nil
		},
	}
	svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

	// The agent asks for someone else's orders; the filter is overridden.
	_, _, err := svc.List(context.Background(), Actor{ID: agentID, Role: model.RoleFieldAgent}, WorkOrderListFilter{AssigneeID: uuid.NewString()})
	require.NoError(t, err)
	require.NotNil(t, captured.AssigneeID)
	assert.Equal(t, agentID, *captured.AssigneeID)
}

func TestCreateWorkOrder(t *testing.T) {
	manager := Actor{ID: uuid.New(), Role: model.RoleManager}

	t.Run("assignee must be a field agent", func(t *testing.T) {
		dispatcherID := uuid.New()
		userRepo := &mockUserRepo{
			getByIDFn: func(_ context.Context, id uuid.UUID) (*model.User, error) {
				return &model.User{ID: id, Role: model.RoleDispatcher}, nil
			},
		}
		svc := newWorkOrderServiceForTest(&mockWorkOrderRepo{}, &mockTaskRepo{}, userRepo, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), manager, CreateWorkOrderRequest{
			Title:      "Site survey",
			DueDate:    testNow.Add(48 * time.Hour),
			AssigneeID: dispatcherID.String(),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field agent")
	})

	t.Run("budget amount requires a budget type", func(t *testing.T) {
		svc := newWorkOrderServiceForTest(&mockWorkOrderRepo{}, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), manager, CreateWorkOrderRequest{
			Title:        "Site survey",
			DueDate:      testNow.Add(48 * time.Hour),
			BudgetAmount: "250.00",
		})
		require.Error(t, err)
	})

	t.Run("new orders start scheduled and not started", func(t *testing.T) {
		auditRepo := &mockAuditRepo{}
		svc := newWorkOrderServiceForTest(&mockWorkOrderRepo{}, &mockTaskRepo{}, &mockUserRepo{}, auditRepo)

		resp, err := svc.Create(context.Background(), manager, CreateWorkOrderRequest{
			Title:   "Site survey",
			DueDate: testNow.Add(48 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusScheduled, resp.Status)
		assert.Equal(t, model.WorkStatusNotStarted, resp.WorkStatus)
		assert.Equal(t, model.PriorityMedium, resp.Priority)
		require.Len(t, auditRepo.entries, 1)
	})

	t.Run("repository failure surfaces", func(t *testing.T) {
		orderRepo := &mockWorkOrderRepo{
			createFn: func(_ context.Context, _ *model.WorkOrder) error { return errors.New("insert failed") },
		}
		svc := newWorkOrderServiceForTest(orderRepo, &mockTaskRepo{}, &mockUserRepo{}, &mockAuditRepo{})

		_, err := svc.Create(context.Background(), manager, CreateWorkOrderRequest{
			Title:   "Site survey",
			DueDate: testNow.Add(48 * time.Hour),
		})
		require.Error(t, err)
	})
}
